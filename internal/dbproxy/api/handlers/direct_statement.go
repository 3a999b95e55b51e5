package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yaw/dbproxy/internal/dbproxy/dispatcher"
)

// DirectStatement runs a batch of caller supplied CQL.
func (h *Handler) DirectStatement(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		h.writeError(c, dispatcher.RouteDirectStatement, err)
		return
	}

	items, err := parseDirectBatch(body)
	if err != nil {
		h.writeError(c, dispatcher.RouteDirectStatement, err)
		return
	}

	response, err := h.dispatcher.DirectStatement(c.Request.Context(), items)
	if err != nil {
		h.writeError(c, dispatcher.RouteDirectStatement, err)
		return
	}

	h.writeJSON(c, http.StatusOK, response)
}
