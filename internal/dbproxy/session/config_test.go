package session

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaw/dbproxy/pkg/retry"
)

func validConfig() *Config {
	return NewConfig("10.0.0.1", "10.0.0.2", "10.0.0.3").
		WithDatacenter("eu-west").
		WithCredentials("gateway", "secret")
}

func TestNewConfig_Defaults(t *testing.T) {
	config := NewConfig("node0", " ", "node2")

	assert.Equal(t, []string{"node0", "node2"}, config.Hosts)
	assert.Equal(t, 9042, config.Port)
	assert.Equal(t, CompressionLZ4, config.Compression)
	assert.True(t, config.HostVerification)
	assert.Equal(t, gocql.LocalQuorum, config.Consistency)
	assert.NotNil(t, config.RetryConfig)
}

func TestConfig_Builders(t *testing.T) {
	rc := &retry.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}
	config := validConfig().
		WithPort(19042).
		WithKeyspace("app").
		WithCompression(" Snappy ").
		WithTLS("/etc/scylla/ca.crt", false).
		WithNumConns(4).
		WithTimeouts(5*time.Second, 2*time.Second).
		WithConsistency(gocql.One).
		WithRetryConfig(rc)

	assert.Equal(t, 19042, config.Port)
	assert.Equal(t, "app", config.Keyspace)
	assert.Equal(t, CompressionSnappy, config.Compression)
	assert.Equal(t, "/etc/scylla/ca.crt", config.CAPath)
	assert.False(t, config.HostVerification)
	assert.Equal(t, 4, config.NumConns)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, 2*time.Second, config.ConnectTimeout)
	assert.Equal(t, gocql.One, config.Consistency)
	assert.Same(t, rc, config.RetryConfig)
	assert.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no hosts", func(c *Config) { c.Hosts = nil }, "at least one host"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port must be between"},
		{"no datacenter", func(c *Config) { c.Datacenter = "" }, "datacenter cannot be empty"},
		{"user without password", func(c *Config) { c.Password = "" }, "username and password"},
		{"unknown compression", func(c *Config) { c.Compression = "zstd" }, "unsupported compression"},
		{"no connections", func(c *Config) { c.NumConns = 0 }, "connections per host"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }, "connect timeout"},
		{"old protocol", func(c *Config) { c.ProtoVersion = 2 }, "protocol version"},
		{"negative page size", func(c *Config) { c.PageSize = -1 }, "page size"},
		{"anonymous", func(c *Config) { c.Username, c.Password = "", "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	original := validConfig()
	clone := original.Clone()

	clone.Hosts[0] = "changed"
	clone.RetryConfig.MaxRetries = 99

	assert.Equal(t, "10.0.0.1", original.Hosts[0])
	assert.Equal(t, 5, original.RetryConfig.MaxRetries)
}

func TestConfig_ContactPoints(t *testing.T) {
	config := NewConfig("10.0.0.1", "node1:19042", "::1").WithPort(9142)

	assert.Equal(t, []string{"10.0.0.1:9142", "node1:19042", "[::1]:9142"}, config.ContactPoints())
}

func TestNewCluster_Wiring(t *testing.T) {
	config := validConfig().WithNumConns(3).WithKeyspace("app")

	cluster, err := newCluster(config, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1:9042", "10.0.0.2:9042", "10.0.0.3:9042"}, cluster.Hosts)
	assert.Equal(t, 3, cluster.NumConns)
	assert.Equal(t, "app", cluster.Keyspace)
	assert.IsType(t, &LZ4Compressor{}, cluster.Compressor)
	assert.NotNil(t, cluster.PoolConfig.HostSelectionPolicy)
	assert.NotNil(t, cluster.QueryObserver)
	assert.NotNil(t, cluster.ConnectObserver)
	assert.Nil(t, cluster.SslOpts)
	assert.Nil(t, cluster.RetryPolicy)

	auth, ok := cluster.Authenticator.(gocql.PasswordAuthenticator)
	require.True(t, ok)
	assert.Equal(t, "gateway", auth.Username)
}

func TestNewCluster_MissingCA(t *testing.T) {
	config := validConfig().WithTLS("/nonexistent/scylla_cert.crt", true)

	_, err := newCluster(config, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read CA certificate")
}
