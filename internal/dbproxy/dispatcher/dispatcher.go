// Package dispatcher executes validated batches against the cluster.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yaw/dbproxy/internal/dbproxy/apierror"
	"github.com/yaw/dbproxy/internal/dbproxy/coercion"
	"github.com/yaw/dbproxy/internal/dbproxy/jsonx"
	"github.com/yaw/dbproxy/internal/dbproxy/metrics"
	"github.com/yaw/dbproxy/internal/dbproxy/paging"
	"github.com/yaw/dbproxy/internal/dbproxy/session"
	"github.com/yaw/dbproxy/pkg/logging"
)

// Dispatcher is shared by all requests.
type Dispatcher struct {
	registry Registry
	executor Executor
	permits  *semaphore.Weighted
	logger   logging.Logger
}

// call is one bound item waiting for execution.
type call struct {
	statementID string
	run         func(ctx context.Context) (*session.Result, error)
}

// New creates a Dispatcher admitting at most parallelFiles items at once.
func New(registry Registry, executor Executor, parallelFiles int64, logger logging.Logger) *Dispatcher {
	if parallelFiles < 1 {
		parallelFiles = 1
	}
	return &Dispatcher{
		registry: registry,
		executor: executor,
		permits:  semaphore.NewWeighted(parallelFiles),
		logger:   logger,
	}
}

// ExecuteStatement runs registered statements. Every item is resolved and its
// parameters coerced before the first one is sent.
func (d *Dispatcher) ExecuteStatement(ctx context.Context, items []RegisteredItem) (Response, error) {
	calls := make([]call, 0, len(items))
	for _, item := range items {
		c, err := d.bindRegistered(item)
		if err != nil {
			metrics.BatchItemsTotal.WithLabelValues(RouteExecuteStatement, outcome(err)).Inc()
			return nil, err
		}
		calls = append(calls, c)
	}
	return d.run(ctx, RouteExecuteStatement, calls)
}

// DirectStatement runs caller supplied CQL without parameters.
func (d *Dispatcher) DirectStatement(ctx context.Context, items []DirectItem) (Response, error) {
	calls := make([]call, 0, len(items))
	for _, item := range items {
		item := item
		calls = append(calls, call{
			statementID: item.StatementID,
			run: func(ctx context.Context) (*session.Result, error) {
				var state []byte
				if item.PerPageResults > 0 {
					state = paging.Decode(item.Paging)
				}
				return d.executor.ExecuteRaw(ctx, item.Statement, item.PerPageResults, true, nil, state)
			},
		})
	}
	return d.run(ctx, RouteDirectStatement, calls)
}

func (d *Dispatcher) bindRegistered(item RegisteredItem) (call, error) {
	entry, ok := d.registry.Get(item.StatementID)
	if !ok {
		return call{}, apierror.NotFound(apierror.KindUnknownStatement,
			fmt.Sprintf("statement_id %q is not registered", item.StatementID))
	}
	desc := entry.Descriptor

	coerced, err := coercion.CoerceAll(item.StatementID, item.QueryData, desc.ParamTypes)
	if err != nil {
		return call{}, err
	}
	values := make([]interface{}, len(coerced))
	for i, v := range coerced {
		values[i] = v
	}

	pageSize := desc.EffectivePageSize()
	var state []byte
	if desc.IsQuery && pageSize > 0 {
		state = paging.Decode(item.Paging)
	}

	return call{
		statementID: item.StatementID,
		run: func(ctx context.Context) (*session.Result, error) {
			if entry.Prepared != nil {
				return d.executor.ExecutePrepared(ctx, entry.Prepared, desc.IsQuery, values, state)
			}
			return d.executor.ExecuteRaw(ctx, desc.Text, pageSize, desc.IsQuery, values, state)
		},
	}, nil
}

// run executes calls in order. Each call holds one admission permit and runs
// detached from ctx cancellation; a cancelled ctx stops the batch between calls.
func (d *Dispatcher) run(ctx context.Context, route string, calls []call) (Response, error) {
	response := make(Response, len(calls))

	for _, c := range calls {
		if err := ctx.Err(); err != nil {
			return nil, apierror.Cancelled(err.Error())
		}

		start := time.Now()
		result, err := d.admit(ctx, c)
		metrics.BatchItemDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		metrics.BatchItemsTotal.WithLabelValues(route, outcome(err)).Inc()
		if err != nil {
			d.logger.Debug("Batch item failed", "route", route, "statement_id", c.statementID, "error", err)
			return nil, err
		}

		if _, dup := response[c.statementID]; dup {
			d.logger.Debug("Duplicate statement_id in batch, keeping the later result", "statement_id", c.statementID)
		}
		response[c.statementID] = result
	}
	return response, nil
}

func (d *Dispatcher) admit(ctx context.Context, c call) (*Result, error) {
	waitStart := time.Now()
	if err := d.permits.Acquire(ctx, 1); err != nil {
		return nil, apierror.Cancelled(err.Error())
	}
	metrics.PermitWaitDuration.Observe(time.Since(waitStart).Seconds())
	metrics.PermitsInUse.Inc()
	defer func() {
		metrics.PermitsInUse.Dec()
		d.permits.Release(1)
	}()

	raw, err := c.run(context.WithoutCancel(ctx))
	if err != nil {
		return nil, apierror.Scylla(err)
	}
	return toResult(c.statementID, raw)
}

// toResult checks that every row is a JSON object and encodes the paging state.
func toResult(statementID string, raw *session.Result) (*Result, error) {
	result := &Result{Records: make([]json.RawMessage, 0)}
	if raw == nil {
		return result, nil
	}
	for i, row := range raw.Rows {
		if !jsonx.ValidObject(row) {
			return nil, &apierror.Error{
				StatusCode: 500,
				Message:    fmt.Sprintf("statement: %s - row: %d", statementID, i),
				Kind:       apierror.KindRowIsNotJSON,
				Detail:     "rows must be produced with SELECT JSON",
			}
		}
		result.Records = append(result.Records, json.RawMessage(row))
	}
	result.RecordsNumber = len(result.Records)
	result.PagingState = paging.Encode(raw.PagingState)
	return result, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return apierror.FromError(err).Kind
}
