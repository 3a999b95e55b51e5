package session

import (
	"context"

	"github.com/gocql/gocql"

	"github.com/yaw/dbproxy/internal/dbproxy/metrics"
	"github.com/yaw/dbproxy/pkg/logging"
)

// observer feeds driver events into Prometheus and the debug log.
type observer struct {
	logger logging.Logger
}

var (
	_ gocql.QueryObserver   = (*observer)(nil)
	_ gocql.ConnectObserver = (*observer)(nil)
)

func (o *observer) ObserveQuery(_ context.Context, q gocql.ObservedQuery) {
	host := hostLabel(q.Host)
	metrics.DatabaseQueryDuration.WithLabelValues(host).Observe(q.End.Sub(q.Start).Seconds())

	outcome := "success"
	if q.Err != nil {
		outcome = ClassifyError(q.Err)
		o.logger.Debug("query failed", "host", host, "attempt", q.Attempt, "class", outcome, "error", q.Err)
	}
	metrics.DatabaseQueriesTotal.WithLabelValues(host, outcome).Inc()
}

func (o *observer) ObserveConnect(c gocql.ObservedConnect) {
	host := hostLabel(c.Host)
	if c.Err != nil {
		o.logger.Warn("connection to node failed", "host", host, "error", c.Err)
		metrics.DatabaseConnectsTotal.WithLabelValues(host, "failure").Inc()
		return
	}
	metrics.DatabaseConnectsTotal.WithLabelValues(host, "success").Inc()
}

func hostLabel(h *gocql.HostInfo) string {
	if h == nil {
		return "unknown"
	}
	return h.ConnectAddressAndPort()
}
