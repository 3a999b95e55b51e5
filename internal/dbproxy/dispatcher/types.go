package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/yaw/dbproxy/internal/dbproxy/coercion"
	"github.com/yaw/dbproxy/internal/dbproxy/session"
	"github.com/yaw/dbproxy/internal/dbproxy/statements"
)

// Executor runs statements on the cluster. *session.Session implements it.
type Executor interface {
	ExecutePrepared(ctx context.Context, stmt *session.PreparedStatement, isQuery bool, values []interface{}, pagingState []byte) (*session.Result, error)
	ExecuteRaw(ctx context.Context, text string, pageSize int, isQuery bool, values []interface{}, pagingState []byte) (*session.Result, error)
}

// Registry resolves statement ids. *statements.Registry implements it.
type Registry interface {
	Get(name string) (statements.Entry, bool)
}

// RegisteredItem is one element of an execute_statement batch.
type RegisteredItem struct {
	StatementID string
	QueryData   []coercion.Param
	Paging      string
}

// DirectItem is one element of a direct_statement batch.
type DirectItem struct {
	StatementID    string
	Statement      string
	PerPageResults int
	Paging         string
}

// Result is the per-item response object.
type Result struct {
	Records       []json.RawMessage `json:"records"`
	RecordsNumber int               `json:"records_number"`
	PagingState   string            `json:"paging_state"`
}

// Response maps each caller supplied statement_id to its result.
type Response map[string]*Result

const (
	RouteExecuteStatement = "execute_statement"
	RouteDirectStatement  = "direct_statement"
)
