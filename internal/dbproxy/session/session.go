// Package session owns the pooled connection to the ScyllaDB cluster.
package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gocql/gocql"

	"github.com/yaw/dbproxy/pkg/logging"
	"github.com/yaw/dbproxy/pkg/retry"
)

// PreparedStatement is a statement the server has already parsed and cached.
type PreparedStatement struct {
	Text     string
	PageSize int
}

// Result of one statement execution.
type Result struct {
	// Rows holds the first column of every row; statements are expected to be SELECT JSON.
	Rows        [][]byte
	PagingState []byte
}

// Session is safe for concurrent use by all requests.
type Session struct {
	session *gocql.Session
	config  *Config
	logger  logging.Logger
}

// New connects to the cluster, retrying transient failures per config.RetryConfig.
func New(ctx context.Context, config *Config, logger logging.Logger) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	cluster, err := newCluster(config, logger)
	if err != nil {
		return nil, err
	}

	retryConfig := config.RetryConfig
	if retryConfig != nil && retryConfig.ShouldRetry == nil {
		rc := *retryConfig
		rc.ShouldRetry = func(err error, _ int) bool { return IsTransient(err) }
		retryConfig = &rc
	}

	session, err := retry.Retry(ctx, cluster.CreateSession, retryConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", strings.Join(config.Hosts, ","), err)
	}

	logger.Info("Connected to cluster", "hosts", config.Hosts, "datacenter", config.Datacenter,
		"compression", config.Compression, "tls", config.CAPath != "")

	return &Session{session: session, config: config, logger: logger}, nil
}

func newCluster(config *Config, logger logging.Logger) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(config.ContactPoints()...)
	cluster.Port = config.Port
	cluster.Keyspace = config.Keyspace
	cluster.Timeout = config.Timeout
	cluster.ConnectTimeout = config.ConnectTimeout
	cluster.NumConns = config.NumConns
	cluster.Consistency = config.Consistency
	cluster.ProtoVersion = config.ProtoVersion
	cluster.SocketKeepalive = config.SocketKeepalive
	cluster.MaxPreparedStmts = config.MaxPreparedStmts
	cluster.PageSize = config.PageSize
	cluster.Compressor = newCompressor(config.Compression)
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(
		gocql.DCAwareRoundRobinPolicy(config.Datacenter),
	)
	// Statements are never retried by the gateway; a failure is reported to the caller.
	cluster.RetryPolicy = nil
	cluster.Logger = logging.DriverLogger{Logger: logger}

	obs := &observer{logger: logger}
	cluster.QueryObserver = obs
	cluster.ConnectObserver = obs

	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	if config.CAPath != "" {
		tlsConfig, err := clientTLSConfig(config.CAPath, config.HostVerification)
		if err != nil {
			return nil, err
		}
		cluster.SslOpts = &gocql.SslOptions{
			Config:                 tlsConfig,
			EnableHostVerification: config.HostVerification,
		}
	}
	return cluster, nil
}

// clientTLSConfig trusts only caPath. Without host verification the peer chain is
// still checked against the CA.
func clientTLSConfig(caPath string, hostVerification bool) (*tls.Config, error) {
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caPath)
	}

	config := &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	if hostVerification {
		return config, nil
	}

	config.InsecureSkipVerify = true
	config.VerifyConnection = func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return errors.New("node presented no certificate")
		}
		intermediates := x509.NewCertPool()
		for _, cert := range cs.PeerCertificates[1:] {
			intermediates.AddCert(cert)
		}
		_, err := cs.PeerCertificates[0].Verify(x509.VerifyOptions{
			Roots:         pool,
			Intermediates: intermediates,
		})
		return err
	}
	return config, nil
}

// Prepare makes the server parse and cache text so that syntax and schema
// errors surface at startup. Later executions reuse the driver's cached handle.
func (s *Session) Prepare(ctx context.Context, text string, pageSize int) (*PreparedStatement, error) {
	if pageSize < 0 {
		return nil, fmt.Errorf("page size cannot be negative, got: %d", pageSize)
	}
	// The routing key lookup prepares the statement; placeholder values are nil.
	q := s.session.Query(text, placeholderValues(text)...).WithContext(ctx)
	defer q.Release()
	if _, err := q.GetRoutingKey(); err != nil {
		return nil, err
	}
	return &PreparedStatement{Text: text, PageSize: pageSize}, nil
}

// ExecutePrepared runs a statement returned by Prepare.
func (s *Session) ExecutePrepared(ctx context.Context, stmt *PreparedStatement, isQuery bool, values []interface{}, pagingState []byte) (*Result, error) {
	if stmt == nil {
		return nil, errors.New("nil prepared statement")
	}
	return s.execute(ctx, stmt.Text, stmt.PageSize, isQuery, values, pagingState)
}

// ExecuteRaw runs text without a startup preparation.
func (s *Session) ExecuteRaw(ctx context.Context, text string, pageSize int, isQuery bool, values []interface{}, pagingState []byte) (*Result, error) {
	return s.execute(ctx, text, pageSize, isQuery, values, pagingState)
}

// execute fetches one page starting at pagingState when pageSize > 0, and every
// row otherwise.
func (s *Session) execute(ctx context.Context, text string, pageSize int, isQuery bool, values []interface{}, pagingState []byte) (*Result, error) {
	q := s.session.Query(text, values...).WithContext(ctx)
	defer q.Release()

	if !isQuery {
		if err := q.Exec(); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}

	if pageSize > 0 {
		q = q.PageSize(pageSize).PageState(pagingState)
	}

	iter := q.Iter()
	rows, scanErr := collectRows(iter)
	state := iter.PageState()
	if err := iter.Close(); err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}

	result := &Result{Rows: rows}
	if pageSize > 0 && len(state) > 0 {
		result.PagingState = append([]byte(nil), state...)
	}
	return result, nil
}

// collectRows reads the first column of each row as text.
func collectRows(iter *gocql.Iter) ([][]byte, error) {
	columns := iter.Columns()
	if len(columns) == 0 {
		return [][]byte{}, nil
	}

	rowData, err := iter.RowData()
	if err != nil {
		return nil, err
	}

	rows := make([][]byte, 0, iter.NumRows())
	for iter.Scan(rowData.Values...) {
		switch v := rowData.Values[0].(type) {
		case *string:
			rows = append(rows, []byte(*v))
		case *[]byte:
			rows = append(rows, append([]byte(nil), (*v)...))
		default:
			return nil, fmt.Errorf("first column %q is %s, expected text", columns[0].Name, columns[0].TypeInfo.Type())
		}
	}
	return rows, nil
}

// placeholderValues returns enough nil values to cover every bind marker in text.
func placeholderValues(text string) []interface{} {
	n := strings.Count(text, "?") + strings.Count(text, ":")
	values := make([]interface{}, n)
	for i := range values {
		values[i] = (*string)(nil)
	}
	return values
}

// Close closes the underlying session.
func (s *Session) Close() {
	if s.session != nil {
		s.session.Close()
	}
}
