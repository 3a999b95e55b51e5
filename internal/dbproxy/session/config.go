package session

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/yaw/dbproxy/pkg/retry"
)

// Compression names accepted by Config.Compression.
const (
	CompressionLZ4    = "lz4"
	CompressionSnappy = "snappy"
	CompressionNone   = "none"
)

// Config holds the configuration for the cluster session.
type Config struct {
	Hosts            []string
	Port             int
	Keyspace         string
	Username         string
	Password         string
	Datacenter       string
	Compression      string
	CAPath           string
	HostVerification bool
	NumConns         int
	Timeout          time.Duration
	ConnectTimeout   time.Duration
	Consistency      gocql.Consistency
	ProtoVersion     int
	SocketKeepalive  time.Duration
	MaxPreparedStmts int
	PageSize         int
	RetryConfig      *retry.RetryConfig
}

// NewConfig creates a Config for the given contact points with sensible defaults.
func NewConfig(hosts ...string) *Config {
	return &Config{
		Hosts:            compactHosts(hosts),
		Port:             9042,
		Compression:      CompressionLZ4,
		HostVerification: true,
		NumConns:         2,
		Timeout:          30 * time.Second,
		ConnectTimeout:   10 * time.Second,
		Consistency:      gocql.LocalQuorum,
		ProtoVersion:     4,
		SocketKeepalive:  15 * time.Second,
		MaxPreparedStmts: 1000,
		PageSize:         5000,
		RetryConfig:      retry.DefaultRetryConfig(),
	}
}

func (c *Config) WithPort(port int) *Config {
	c.Port = port
	return c
}

func (c *Config) WithKeyspace(keyspace string) *Config {
	c.Keyspace = keyspace
	return c
}

func (c *Config) WithCredentials(username, password string) *Config {
	c.Username = username
	c.Password = password
	return c
}

// WithDatacenter sets the local datacenter used by the DC-aware policy.
func (c *Config) WithDatacenter(dc string) *Config {
	c.Datacenter = dc
	return c
}

func (c *Config) WithCompression(compression string) *Config {
	c.Compression = strings.ToLower(strings.TrimSpace(compression))
	return c
}

// WithTLS enables TLS trusting caPath. With hostVerification off the chain is
// still verified against the CA but the node's host name is not.
func (c *Config) WithTLS(caPath string, hostVerification bool) *Config {
	c.CAPath = caPath
	c.HostVerification = hostVerification
	return c
}

// WithNumConns sets the connections opened per node.
func (c *Config) WithNumConns(n int) *Config {
	c.NumConns = n
	return c
}

func (c *Config) WithTimeouts(timeout, connectTimeout time.Duration) *Config {
	c.Timeout = timeout
	c.ConnectTimeout = connectTimeout
	return c
}

func (c *Config) WithConsistency(consistency gocql.Consistency) *Config {
	c.Consistency = consistency
	return c
}

func (c *Config) WithRetryConfig(retryConfig *retry.RetryConfig) *Config {
	c.RetryConfig = retryConfig
	return c
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return fmt.Errorf("at least one host must be specified")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", c.Port)
	}
	if c.Datacenter == "" {
		return fmt.Errorf("datacenter cannot be empty")
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("username and password must be set together")
	}
	switch c.Compression {
	case CompressionLZ4, CompressionSnappy, CompressionNone, "":
	default:
		return fmt.Errorf("unsupported compression %q", c.Compression)
	}
	if c.NumConns <= 0 {
		return fmt.Errorf("connections per host must be positive, got: %d", c.NumConns)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", c.Timeout)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got: %v", c.ConnectTimeout)
	}
	if c.ProtoVersion < 3 || c.ProtoVersion > 4 {
		return fmt.Errorf("protocol version must be 3 or 4, got: %d", c.ProtoVersion)
	}
	if c.MaxPreparedStmts < 0 {
		return fmt.Errorf("max prepared statements cannot be negative, got: %d", c.MaxPreparedStmts)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("page size cannot be negative, got: %d", c.PageSize)
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	clone.Hosts = append([]string(nil), c.Hosts...)
	if c.RetryConfig != nil {
		rc := *c.RetryConfig
		clone.RetryConfig = &rc
	}
	return &clone
}

// ContactPoints returns the hosts joined with the configured port unless they carry one.
func (c *Config) ContactPoints() []string {
	points := make([]string, 0, len(c.Hosts))
	for _, host := range c.Hosts {
		if _, _, err := net.SplitHostPort(host); err == nil {
			points = append(points, host)
			continue
		}
		points = append(points, net.JoinHostPort(host, strconv.Itoa(c.Port)))
	}
	return points
}

func compactHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
