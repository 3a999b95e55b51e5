package dbproxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httppkg "github.com/yaw/dbproxy/pkg/http"
	"github.com/yaw/dbproxy/pkg/logging"
	"github.com/yaw/dbproxy/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := httppkg.DefaultHTTPConfig()
	config.RetryConfig = &retry.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	client, err := NewClient(logging.NewNoOpLogger(), server.URL+"/", config)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "https://localhost", nil)
	assert.Error(t, err)

	_, err = NewClient(logging.NewNoOpLogger(), "", nil)
	assert.Error(t, err)
}

func TestClient_ExecuteStatement(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, executeStatementPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"operation":[
			{"statement_id":"insert_item","query_data":["alpha",42],"paging":""},
			{"statement_id":"count","query_data":[],"paging":""}
		]}`, string(body))

		_, _ = w.Write([]byte(`{"insert_item":{"records":[],"records_number":0,"paging_state":""},"count":{"records":[{"n":1}],"records_number":1,"paging_state":""}}`))
	})

	results, err := client.ExecuteStatement(context.Background(),
		RegisteredOperation{StatementID: "insert_item", QueryData: []interface{}{"alpha", 42}},
		RegisteredOperation{StatementID: "count"},
	)
	require.NoError(t, err)

	assert.Equal(t, 0, results["insert_item"].RecordsNumber)
	require.Len(t, results["count"].Records, 1)
	assert.JSONEq(t, `{"n":1}`, string(results["count"].Records[0]))
}

func TestClient_ErrorObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status_code":400,"message":"Bad Request","error_message":"operation_must_be_an_array","custom_error_message":"operation is a object"}`))
	})

	_, err := client.DirectStatement(context.Background(), DirectOperation{StatementID: "a", Statement: "SELECT JSON 1 FROM t"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, uint16(400), apiErr.StatusCode)
	assert.Equal(t, "operation_must_be_an_array", apiErr.Kind)
}

func TestClient_NonJSONError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.DirectStatement(context.Background(), DirectOperation{StatementID: "a", Statement: "SELECT JSON 1 FROM t"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, uint16(http.StatusBadGateway), apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Detail)
}

func TestClient_DirectPages(t *testing.T) {
	rows := []string{`{"id":0}`, `{"id":1}`, `{"id":2}`, `{"id":3}`, `{"id":4}`}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req batch[DirectOperation]
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		op := req.Operation[0]

		start := 0
		if op.Paging != "" {
			start, _ = strconv.Atoi(op.Paging)
		}
		end := start + op.PerPageResults
		next := strconv.Itoa(end)
		if end >= len(rows) {
			end = len(rows)
			next = ""
		}

		result := Result{Records: []json.RawMessage{}, PagingState: next}
		for _, row := range rows[start:end] {
			result.Records = append(result.Records, json.RawMessage(row))
		}
		result.RecordsNumber = len(result.Records)
		_ = json.NewEncoder(w).Encode(map[string]Result{op.StatementID: result})
	})

	var (
		pages []int
		seen  []string
	)
	err := client.DirectPages(context.Background(),
		DirectOperation{StatementID: "scan", Statement: "SELECT JSON * FROM t", PerPageResults: 2},
		func(page int, result Result) error {
			pages = append(pages, page)
			for _, r := range result.Records {
				seen = append(seen, string(r))
			}
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, rows, seen)
}

func TestClient_DirectPages_StopEarly(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"scan":{"records":[{"id":1}],"records_number":1,"paging_state":"AAQ"}}`))
	})

	err := client.DirectPages(context.Background(),
		DirectOperation{StatementID: "scan", Statement: "SELECT JSON * FROM t", PerPageResults: 1},
		func(page int, _ Result) error {
			if page == 2 {
				return ErrStopPaging
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DirectPages_RequiresPageSize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	err := client.DirectPages(context.Background(), DirectOperation{StatementID: "scan"}, func(int, Result) error { return nil })
	assert.Error(t, err)
}

func TestClient_HealthCheck(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, healthPath, r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	assert.NoError(t, client.HealthCheck(context.Background()))

	healthy.Store(false)
	assert.Error(t, client.HealthCheck(context.Background()))
}
