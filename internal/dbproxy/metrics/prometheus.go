package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "dbproxy"
	subsystem = "gateway"
)

var (
	startTime = time.Now()

	// UptimeSeconds tracks the gateway uptime in seconds
	UptimeSeconds = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "uptime_seconds",
		Help:      "The uptime of the gateway in seconds",
	}, func() float64 { return time.Since(startTime).Seconds() })

	// StartupDuration tracks the time taken to connect and prepare the catalog
	StartupDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "startup_duration_seconds",
		Help:      "Time taken in seconds for the gateway to start",
	})

	RegisteredStatements = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "registered_statements",
		Help:      "Statements in the catalog by preparation mode",
	}, []string{"mode"})

	HealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "health_checks_total",
		Help:      "Total health check requests",
	}, []string{"status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	ActiveRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_requests",
		Help:      "Currently active HTTP requests",
	}, []string{"endpoint"})

	PanicRecoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "panic_recoveries_total",
		Help:      "Total panics recovered by the HTTP middleware",
	}, []string{"endpoint"})

	// BatchItemsTotal counts dispatched batch items by route and outcome kind
	BatchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "batch_items_total",
		Help:      "Batch items dispatched, by route and outcome",
	}, []string{"route", "outcome"})

	BatchItemDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "batch_item_duration_seconds",
		Help:      "Time spent executing one batch item, permit wait included",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	PermitsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "admission_permits_in_use",
		Help:      "Admission permits currently held by batch items",
	})

	PermitWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "admission_wait_seconds",
		Help:      "Time spent waiting for an admission permit",
		Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// Driver level metrics fed by the session observers
	DatabaseQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scylla",
		Name:      "queries_total",
		Help:      "Queries sent to the cluster by host and outcome",
	}, []string{"host", "outcome"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scylla",
		Name:      "query_duration_seconds",
		Help:      "Query latency observed by the driver",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"host"})

	DatabaseConnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scylla",
		Name:      "connects_total",
		Help:      "Connection attempts to cluster nodes by outcome",
	}, []string{"host", "outcome"})

	PreparedStatementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scylla",
		Name:      "prepared_statements_total",
		Help:      "Statements prepared at startup by outcome",
	}, []string{"outcome"})
)
