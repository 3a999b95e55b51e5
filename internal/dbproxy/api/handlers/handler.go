package handlers

import (
	"context"

	"github.com/yaw/dbproxy/internal/dbproxy/dispatcher"
	"github.com/yaw/dbproxy/pkg/logging"
)

// Dispatcher runs validated batches. *dispatcher.Dispatcher implements it.
type Dispatcher interface {
	ExecuteStatement(ctx context.Context, items []dispatcher.RegisteredItem) (dispatcher.Response, error)
	DirectStatement(ctx context.Context, items []dispatcher.DirectItem) (dispatcher.Response, error)
}

// HealthChecker probes the database. *session.Session implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (string, error)
}

type Handler struct {
	dispatcher     Dispatcher
	health         HealthChecker
	logger         logging.Logger
	payloadMaxSize int64
}

func NewHandler(dispatcher Dispatcher, health HealthChecker, logger logging.Logger, payloadMaxSize int64) *Handler {
	return &Handler{
		dispatcher:     dispatcher,
		health:         health,
		logger:         logger,
		payloadMaxSize: payloadMaxSize,
	}
}
