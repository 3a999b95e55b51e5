package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yaw/dbproxy/internal/dbproxy/dispatcher"
)

// ExecuteStatement runs a batch of registered statements.
func (h *Handler) ExecuteStatement(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		h.writeError(c, dispatcher.RouteExecuteStatement, err)
		return
	}

	items, err := parseRegisteredBatch(body)
	if err != nil {
		h.writeError(c, dispatcher.RouteExecuteStatement, err)
		return
	}

	response, err := h.dispatcher.ExecuteStatement(c.Request.Context(), items)
	if err != nil {
		h.writeError(c, dispatcher.RouteExecuteStatement, err)
		return
	}

	h.writeJSON(c, http.StatusOK, response)
}
