package statements

import (
	"context"
	"fmt"
	"sort"

	"github.com/yaw/dbproxy/internal/dbproxy/metrics"
	"github.com/yaw/dbproxy/internal/dbproxy/session"
	"github.com/yaw/dbproxy/pkg/logging"
)

// Preparer prepares statement text on the cluster.
type Preparer interface {
	Prepare(ctx context.Context, text string, pageSize int) (*session.PreparedStatement, error)
}

// Entry is a catalog statement ready for execution. Prepared is set exactly when
// Descriptor.IsPrepared is; otherwise Descriptor.Text is sent as is.
type Entry struct {
	Descriptor *Descriptor
	Prepared   *session.PreparedStatement
}

// Registry is read-only once New returns and safe for concurrent lookups.
type Registry struct {
	entries map[string]Entry
}

// New prepares every prepared descriptor. Any failure aborts construction.
func New(ctx context.Context, descriptors []*Descriptor, preparer Preparer, logger logging.Logger) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(descriptors))}

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.entries[d.Name]; exists {
			logger.Warn("Duplicate statement name, later definition wins", "statement", d.Name)
		}

		entry := Entry{Descriptor: d}
		if d.IsPrepared {
			prepared, err := preparer.Prepare(ctx, d.Text, d.EffectivePageSize())
			if err != nil {
				metrics.PreparedStatementsTotal.WithLabelValues("failure").Inc()
				return nil, fmt.Errorf("failed to prepare statement %s: %w", d.Name, err)
			}
			metrics.PreparedStatementsTotal.WithLabelValues("success").Inc()
			entry.Prepared = prepared
			logger.Debug("Prepared statement", "statement", d.Name, "page_size", prepared.PageSize)
		}
		r.entries[d.Name] = entry
	}

	prepared := 0
	for _, e := range r.entries {
		if e.Prepared != nil {
			prepared++
		}
	}
	metrics.RegisteredStatements.WithLabelValues("prepared").Set(float64(prepared))
	metrics.RegisteredStatements.WithLabelValues("raw").Set(float64(len(r.entries) - prepared))
	logger.Infof("Statement registry ready: %d statements, %d prepared", len(r.entries), prepared)
	logger.Debug("Registered statements", "names", r.Names())

	return r, nil
}

// Get looks up a statement by name.
func (r *Registry) Get(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
