package dbproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	httppkg "github.com/yaw/dbproxy/pkg/http"
	"github.com/yaw/dbproxy/pkg/logging"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	executeStatementPath = "/v2/execute_statement"
	directStatementPath  = "/v2/direct_statement"
	healthPath           = "/v2/health"
)

// Client talks to a dbproxy gateway.
type Client struct {
	logger     logging.Logger
	baseURL    string
	httpClient httppkg.HTTPClientInterface
}

// NewClient creates a Client for baseURL ("https://host:port"). A nil httpConfig uses the defaults.
func NewClient(logger logging.Logger, baseURL string, httpConfig *httppkg.HTTPConfig) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("gateway URL cannot be empty")
	}

	httpClient, err := httppkg.NewHTTPClient(httpConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// ExecuteStatement sends a batch of registered statements. Batches are sent once and never replayed.
func (c *Client) ExecuteStatement(ctx context.Context, ops ...RegisteredOperation) (map[string]Result, error) {
	for i := range ops {
		if ops[i].QueryData == nil {
			ops[i].QueryData = []interface{}{}
		}
	}
	return c.post(ctx, executeStatementPath, batch[RegisteredOperation]{Operation: ops})
}

// DirectStatement sends a batch of ad-hoc statements.
func (c *Client) DirectStatement(ctx context.Context, ops ...DirectOperation) (map[string]Result, error) {
	return c.post(ctx, directStatementPath, batch[DirectOperation]{Operation: ops})
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (map[string]Result, error) {
	payload, err := jsonAPI.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	resp, err := c.httpClient.Post(ctx, c.baseURL+path, "application/json", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to send batch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, data)
	}

	var results map[string]Result
	if err := jsonAPI.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response body: %w", err)
	}
	return results, nil
}

func decodeError(status int, data []byte) error {
	apiErr := &APIError{}
	if err := jsonAPI.Unmarshal(data, apiErr); err != nil || apiErr.Kind == "" {
		return &APIError{StatusCode: uint16(status), Message: http.StatusText(status), Detail: strings.TrimSpace(string(data))}
	}
	return apiErr
}

// HealthCheck asks the gateway to probe its database.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.httpClient.Get(ctx, c.baseURL+healthPath)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status code %d", resp.StatusCode)
	}
	return nil
}

// ErrStopPaging ends a DirectPages loop early without an error.
var ErrStopPaging = errors.New("stop paging")

// DirectPages runs op page by page, feeding each page to fn, until the gateway
// returns no continuation or fn returns an error. op.PerPageResults must be positive.
func (c *Client) DirectPages(ctx context.Context, op DirectOperation, fn func(page int, result Result) error) error {
	if op.PerPageResults <= 0 {
		return fmt.Errorf("per_page_results must be positive to page, got %d", op.PerPageResults)
	}

	for page := 1; ; page++ {
		results, err := c.DirectStatement(ctx, op)
		if err != nil {
			return err
		}
		result, ok := results[op.StatementID]
		if !ok {
			return fmt.Errorf("response has no result for %s", op.StatementID)
		}

		if err := fn(page, result); err != nil {
			if errors.Is(err, ErrStopPaging) {
				return nil
			}
			return err
		}
		if !result.HasMore() {
			return nil
		}
		c.logger.Debugf("Fetching page %d of %s", page+1, op.StatementID)
		op.Paging = result.PagingState
	}
}

// Close closes idle connections.
func (c *Client) Close() {
	c.httpClient.Close()
}
