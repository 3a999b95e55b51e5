// Package statements holds the catalog of named statements the gateway serves.
package statements

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/yaw/dbproxy/internal/dbproxy/coercion"
)

// Descriptor is one immutable catalog entry.
type Descriptor struct {
	Name       string
	Text       string
	IsQuery    bool
	IsPrepared bool
	IsPaged    bool
	// PageSize is the number of rows per page when IsPaged is set.
	PageSize   int
	ParamTypes []coercion.TypeTag
}

// EffectivePageSize is the page size executions of this statement use; 0 means unpaged.
func (d *Descriptor) EffectivePageSize() int {
	if !d.IsPaged {
		return 0
	}
	return d.PageSize
}

func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("statement name cannot be empty")
	}
	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("statement %s: text cannot be empty", d.Name)
	}
	if d.IsPaged && d.PageSize <= 0 {
		return fmt.Errorf("statement %s: paged statements need per_page_results > 0, got %d", d.Name, d.PageSize)
	}
	if d.PageSize < 0 || d.PageSize > math.MaxInt32 {
		return fmt.Errorf("statement %s: per_page_results out of range: %d", d.Name, d.PageSize)
	}
	return nil
}
