package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/yaw/dbproxy/pkg/logging"
	"github.com/yaw/dbproxy/pkg/retry"
)

// HTTPConfig holds the transport and retry settings of an HTTPClient.
type HTTPConfig struct {
	RetryConfig     *retry.RetryConfig
	Timeout         time.Duration
	IdleConnTimeout time.Duration
	// MaxResponseSize caps how much of a failed response is kept in StatusError.
	MaxResponseSize int64
	// TLSConfig is used for https URLs; nil means the system defaults.
	TLSConfig *tls.Config
}

func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		RetryConfig:     retry.DefaultRetryConfig(),
		Timeout:         30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
		MaxResponseSize: 4096,
	}
}

func (c *HTTPConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.IdleConnTimeout <= 0 {
		return fmt.Errorf("idleConnTimeout must be positive")
	}
	if c.MaxResponseSize < 0 {
		return fmt.Errorf("maxResponseSize must be >= 0")
	}
	if c.RetryConfig == nil {
		return fmt.Errorf("retryConfig cannot be nil")
	}
	return c.RetryConfig.Validate()
}

// StatusError is returned by DoWithRetry when every attempt ended with a retryable status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryableStatus reports statuses worth another attempt: the server was
// unavailable or asked the client to slow down, so no work was done.
func IsRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// HTTPClient wraps http.Client with an optional retry loop.
type HTTPClient struct {
	client     *http.Client
	HTTPConfig *HTTPConfig
	logger     logging.Logger
}

var _ HTTPClientInterface = (*HTTPClient)(nil)

func NewHTTPClient(httpConfig *HTTPConfig, logger logging.Logger) (*HTTPClient, error) {
	if httpConfig == nil {
		httpConfig = DefaultHTTPConfig()
	}
	if err := httpConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid HTTP config: %w", err)
	}

	if httpConfig.RetryConfig.ShouldRetry == nil {
		rc := *httpConfig.RetryConfig
		rc.ShouldRetry = func(err error, _ int) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return IsRetryableStatus(statusErr.StatusCode)
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		httpConfig.RetryConfig = &rc
	}

	client := &http.Client{
		Timeout: httpConfig.Timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: httpConfig.TLSConfig,
			IdleConnTimeout: httpConfig.IdleConnTimeout,
			DialContext: (&net.Dialer{
				Timeout:   httpConfig.Timeout / 2,
				KeepAlive: httpConfig.IdleConnTimeout,
			}).DialContext,
			TLSHandshakeTimeout: httpConfig.Timeout / 2,
			ForceAttemptHTTP2:   true,
		},
	}

	return &HTTPClient{
		client:     client,
		HTTPConfig: httpConfig,
		logger:     logger,
	}, nil
}

// NewTLSConfig trusts only the PEM certificates in caPath.
// An empty caPath returns nil, which selects the system roots.
func NewTLSConfig(caPath string, insecureSkipVerify bool) (*tls.Config, error) {
	if caPath == "" && !insecureSkipVerify {
		return nil, nil
	}
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecureSkipVerify, // #nosec G402 -- opt-in for local self-signed gateways
	}
	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", caPath)
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

// Do sends req once. The caller closes the response body.
func (c *HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(ctx))
}

// DoWithRetry resends req while the retry predicate allows it. Responses with a
// retryable status are drained and turned into *StatusError; other responses are
// returned as is. The caller closes the response body.
func (c *HTTPClient) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading request body for retry: %w", err)
		}
		if err := req.Body.Close(); err != nil {
			c.logger.Warnf("Failed to close request body: %v", err)
		}
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	operation := func() (*http.Response, error) {
		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to get request body: %w", err)
			}
			attempt.Body = body
		}

		resp, err := c.client.Do(attempt)
		if err != nil {
			return nil, err
		}
		if IsRetryableStatus(resp.StatusCode) {
			bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, c.HTTPConfig.MaxResponseSize))
			if err := resp.Body.Close(); err != nil {
				c.logger.Warnf("Failed to close response body: %v", err)
			}
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(bodyBytes), 200)}
		}
		return resp, nil
	}

	return retry.Retry(ctx, operation, c.HTTPConfig.RetryConfig, c.logger)
}

// Get performs a GET request with retries.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.DoWithRetry(ctx, req)
}

// Post performs a single POST request. POST bodies are not replayed.
func (c *HTTPClient) Post(ctx context.Context, url, contentType string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Close closes idle connections.
func (c *HTTPClient) Close() {
	c.client.CloseIdleConnections()
}
