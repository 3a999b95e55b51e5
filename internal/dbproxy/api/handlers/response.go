package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yaw/dbproxy/internal/dbproxy/apierror"
	"github.com/yaw/dbproxy/internal/dbproxy/jsonx"
)

const contentTypeJSON = "application/json"

// TraceIDKey is the gin context key holding the request trace id.
const TraceIDKey = "trace_id"

func (h *Handler) writeJSON(c *gin.Context, status int, body interface{}) {
	data, err := jsonx.API.Marshal(body)
	if err != nil {
		h.logger.Errorf("Failed to encode response: %v", err)
		status = http.StatusInternalServerError
		data, _ = jsonx.API.Marshal(apierror.Internal(apierror.KindInternal, err.Error()))
	}
	c.Data(status, contentTypeJSON, data)
}

// WriteError writes err as the error object. Errors that are not *apierror.Error
// are reported as database failures.
func WriteError(c *gin.Context, err error) {
	apiErr := apierror.FromError(err)
	data, encErr := jsonx.API.Marshal(apiErr)
	if encErr != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(apiErr.HTTPStatus(), contentTypeJSON, data)
}

func (h *Handler) writeError(c *gin.Context, route string, err error) {
	apiErr := apierror.FromError(err)
	traceID, _ := c.Get(TraceIDKey)
	if apiErr.HTTPStatus() >= http.StatusInternalServerError {
		h.logger.Error("Batch failed", "trace_id", traceID, "route", route,
			"status", apiErr.StatusCode, "error_message", apiErr.Kind, "message", apiErr.Message, "detail", apiErr.Detail)
	} else {
		h.logger.Debug("Batch rejected", "trace_id", traceID, "route", route,
			"status", apiErr.StatusCode, "error_message", apiErr.Kind, "detail", apiErr.Detail)
	}
	WriteError(c, apiErr)
}
