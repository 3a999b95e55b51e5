package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yaw/dbproxy/internal/dbproxy/metrics"
)

const serviceName = "dbproxy"

type rootStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Root answers the liveness probes on / and /v2/ with a fixed body.
func (h *Handler) Root(c *gin.Context) {
	h.writeJSON(c, http.StatusOK, rootStatus{Status: "ok", Service: serviceName})
}

type databaseStatus struct {
	Status  string `json:"status"`
	Release string `json:"release_version,omitempty"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status    string         `json:"status"`
	Service   string         `json:"service"`
	Timestamp int64          `json:"timestamp"`
	Latency   string         `json:"latency"`
	Database  databaseStatus `json:"database"`
}

// HealthCheck probes the cluster through the shared session.
func (h *Handler) HealthCheck(c *gin.Context) {
	startTime := time.Now()

	response := healthResponse{
		Status:    "ok",
		Service:   serviceName,
		Timestamp: startTime.Unix(),
		Database:  databaseStatus{Status: "healthy"},
	}
	httpStatus := http.StatusOK

	release, err := h.health.HealthCheck(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Database health check failed: %v", err)
		response.Status = "degraded"
		response.Database = databaseStatus{Status: "unhealthy", Error: err.Error()}
		httpStatus = http.StatusServiceUnavailable
		metrics.HealthChecksTotal.WithLabelValues("unhealthy").Inc()
	} else {
		response.Database.Release = release
		metrics.HealthChecksTotal.WithLabelValues("healthy").Inc()
	}

	response.Latency = time.Since(startTime).String()
	h.logger.Debugf("Health check completed: status=%s, duration=%s", response.Status, response.Latency)

	h.writeJSON(c, httpStatus, response)
}
