package http

import (
	"context"
	"crypto/tls"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaw/dbproxy/pkg/logging"
	"github.com/yaw/dbproxy/pkg/retry"
)

func fastConfig() *HTTPConfig {
	config := DefaultHTTPConfig()
	config.Timeout = 5 * time.Second
	config.RetryConfig = &retry.RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	return config
}

func TestHTTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*HTTPConfig)
		expectedErr string
	}{
		{"default is valid", func(*HTTPConfig) {}, ""},
		{"zero timeout", func(c *HTTPConfig) { c.Timeout = 0 }, "timeout must be positive"},
		{"zero idle timeout", func(c *HTTPConfig) { c.IdleConnTimeout = 0 }, "idleConnTimeout must be positive"},
		{"negative response size", func(c *HTTPConfig) { c.MaxResponseSize = -1 }, "maxResponseSize must be >= 0"},
		{"nil retry config", func(c *HTTPConfig) { c.RetryConfig = nil }, "retryConfig cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultHTTPConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestNewHTTPClient_NilConfig_UsesDefaultConfig(t *testing.T) {
	client, err := NewHTTPClient(nil, logging.NewNoOpLogger())

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, client.client.Timeout)
	assert.NotNil(t, client.HTTPConfig.RetryConfig.ShouldRetry)
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, IsRetryableStatus(http.StatusServiceUnavailable))
	assert.True(t, IsRetryableStatus(http.StatusTooManyRequests))
	assert.False(t, IsRetryableStatus(http.StatusInternalServerError))
	assert.False(t, IsRetryableStatus(http.StatusBadRequest))
}

func TestHTTPClient_DoWithRetry_RetryableStatus_RetriesAndSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := NewHTTPClient(fastConfig(), logging.NewNoOpLogger())
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := client.DoWithRetry(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_DoWithRetry_ServerError_NotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewHTTPClient(fastConfig(), logging.NewNoOpLogger())
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClient_DoWithRetry_ExhaustedReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
	}))
	defer server.Close()

	client, err := NewHTTPClient(fastConfig(), logging.NewNoOpLogger())
	require.NoError(t, err)

	_, err = client.Get(context.Background(), server.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "draining", statusErr.Body)
}

func TestHTTPClient_DoWithRetry_ContextCancelled_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewHTTPClient(fastConfig(), logging.NewNoOpLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPClient_Post_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewHTTPClient(fastConfig(), logging.NewNoOpLogger())
	require.NoError(t, err)

	resp, err := client.Post(context.Background(), server.URL, "application/json", []byte(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewTLSConfig(t *testing.T) {
	tlsConfig, err := NewTLSConfig("", false)
	require.NoError(t, err)
	assert.Nil(t, tlsConfig)

	tlsConfig, err = NewTLSConfig("", true)
	require.NoError(t, err)
	assert.True(t, tlsConfig.InsecureSkipVerify)

	_, err = NewTLSConfig(filepath.Join(t.TempDir(), "missing.pem"), false)
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))
	_, err = NewTLSConfig(garbage, false)
	assert.Error(t, err)
}

func TestHTTPClient_TrustsConfiguredCA(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer server.Close()

	caPath := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	require.NoError(t, os.WriteFile(caPath, certPEM, 0o600))

	tlsConfig, err := NewTLSConfig(caPath, false)
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)

	config := fastConfig()
	config.TLSConfig = tlsConfig
	client, err := NewHTTPClient(config, logging.NewNoOpLogger())
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "secure", string(body))
}
