package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yaw/dbproxy/internal/dbproxy/api/handlers"
	"github.com/yaw/dbproxy/internal/dbproxy/apierror"
	"github.com/yaw/dbproxy/internal/dbproxy/metrics"
	"github.com/yaw/dbproxy/pkg/logging"
)

const TraceIDHeader = "X-Trace-ID"

// RecoveryMiddleware turns a panic into a 500 error object.
func RecoveryMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				endpoint := endpointOf(c)
				metrics.PanicRecoveriesTotal.WithLabelValues(endpoint).Inc()

				traceID, _ := c.Get(handlers.TraceIDKey)
				logger.Errorf("Panic recovered: trace_id=%v %v\nStack trace: %s", traceID, err, debug.Stack())

				handlers.WriteError(c, apierror.Internal(apierror.KindInternal, fmt.Sprint(err)))
				c.Abort()
			}
		}()

		c.Next()
	}
}

// TraceMiddleware propagates or assigns the request trace id.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(handlers.TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

// LoggerMiddleware logs every request except metrics scrapes.
func LoggerMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		traceID, _ := c.Get(handlers.TraceIDKey)

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"trace_id", traceID,
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"bytes_in", c.Request.ContentLength,
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("Request processed", fields...)
			return
		}
		logger.Info("Request processed", fields...)
	}
}

// MetricsMiddleware records request counts, latency and in-flight requests.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		endpoint := endpointOf(c)
		method := c.Request.Method

		metrics.ActiveRequests.WithLabelValues(endpoint).Inc()
		defer metrics.ActiveRequests.WithLabelValues(endpoint).Dec()

		c.Next()

		metrics.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(startTime).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// endpointOf prefers the route pattern so unknown paths do not explode label cardinality.
func endpointOf(c *gin.Context) string {
	if endpoint := c.FullPath(); endpoint != "" {
		return endpoint
	}
	return "unmatched"
}
