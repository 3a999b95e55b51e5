// Package apierror defines the single error object returned to gateway callers.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds reported in the error_message field.
const (
	KindNoOperation             = "no_operation_in_request"
	KindOperationNotArray       = "operation_must_be_an_array"
	KindOperationItemNotObject  = "operation_item_must_be_an_object"
	KindNoQueryData             = "no_query_data_in_request"
	KindNoStatementID           = "no_statement_id_in_request"
	KindNoPaging                = "no_paging_in_request"
	KindNoPerPageResults        = "no_per_page_results_in_request"
	KindQueryDataNotArray       = "query_data_must_be_an_array"
	KindStatementIDNotString    = "statement_id_must_be_a_string"
	KindStatementNotString      = "statement_must_be_a_string"
	KindPagingNotString         = "paging_must_be_a_string"
	KindPerPageResultsNotNumber = "per_page_results_must_be_a_number"
	KindQueryDataLengthMismatch = "query_data_length_mismatch"
	KindInvalidJSON             = "invalid_json"
	KindPayloadTooLarge         = "payload_too_large"
	KindUnknownStatement        = "unknown_statement"
	KindRowIsNotJSON            = "row_is_not_json"
	KindRequestCancelled        = "request_cancelled"
	KindInternal                = "internal_error"
	KindRouteNotFound           = "route_not_found"
	KindScylla                  = "scylla_error"
)

// StatusClientClosedRequest is the non-standard status logged for abandoned requests.
const StatusClientClosedRequest = 499

// Error is serialised as the response body of every failed call.
type Error struct {
	StatusCode uint16 `json:"status_code"`
	Message    string `json:"message"`
	Kind       string `json:"error_message"`
	Detail     string `json:"custom_error_message"`
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Message, e.Kind)
	}
	return fmt.Sprintf("%d %s: %s: %s", e.StatusCode, e.Message, e.Kind, e.Detail)
}

// HTTPStatus is StatusCode, or 500 when StatusCode is not a usable HTTP status.
func (e *Error) HTTPStatus() int {
	if e.StatusCode < 100 || e.StatusCode > 599 {
		return http.StatusInternalServerError
	}
	return int(e.StatusCode)
}

func New(status uint16, kind, detail string) *Error {
	return &Error{
		StatusCode: status,
		Message:    http.StatusText(int(status)),
		Kind:       kind,
		Detail:     detail,
	}
}

func BadRequest(kind, detail string) *Error {
	return New(http.StatusBadRequest, kind, detail)
}

func NotFound(kind, detail string) *Error {
	return New(http.StatusNotFound, kind, detail)
}

func Internal(kind, detail string) *Error {
	return New(http.StatusInternalServerError, kind, detail)
}

func PayloadTooLarge(detail string) *Error {
	return New(http.StatusRequestEntityTooLarge, KindPayloadTooLarge, detail)
}

// Cancelled reports a batch abandoned because the caller went away.
func Cancelled(detail string) *Error {
	return &Error{
		StatusCode: StatusClientClosedRequest,
		Message:    "Client Closed Request",
		Kind:       KindRequestCancelled,
		Detail:     detail,
	}
}

// Scylla wraps a driver failure; the driver message is passed through.
func Scylla(err error) *Error {
	return Internal(KindScylla, err.Error())
}

// As reports whether err is or wraps an *Error.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// FromError converts any error to an *Error. Unclassified errors are database failures.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	if apiErr, ok := As(err); ok {
		return apiErr
	}
	return Scylla(err)
}
