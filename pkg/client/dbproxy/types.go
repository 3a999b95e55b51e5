package dbproxy

import (
	"encoding/json"
	"fmt"
)

// RegisteredOperation runs a statement from the gateway catalog.
type RegisteredOperation struct {
	StatementID string        `json:"statement_id"`
	QueryData   []interface{} `json:"query_data"`
	Paging      string        `json:"paging"`
}

// DirectOperation runs caller supplied CQL. PerPageResults of 0 fetches every row.
type DirectOperation struct {
	StatementID    string `json:"statement_id"`
	Statement      string `json:"statement"`
	PerPageResults int    `json:"per_page_results"`
	Paging         string `json:"paging"`
}

type batch[T any] struct {
	Operation []T `json:"operation"`
}

// Result is one statement's page of rows.
type Result struct {
	Records       []json.RawMessage `json:"records"`
	RecordsNumber int               `json:"records_number"`
	PagingState   string            `json:"paging_state"`
}

// HasMore reports whether another page can be requested with PagingState.
func (r Result) HasMore() bool {
	return r.PagingState != ""
}

// APIError is the error object returned by the gateway.
type APIError struct {
	StatusCode uint16 `json:"status_code"`
	Message    string `json:"message"`
	Kind       string `json:"error_message"`
	Detail     string `json:"custom_error_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dbproxy: %d %s: %s: %s", e.StatusCode, e.Message, e.Kind, e.Detail)
}
