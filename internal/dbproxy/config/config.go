// Package config loads the gateway settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yaw/dbproxy/pkg/env"
)

type Config struct {
	devMode bool

	// HTTPS listener
	host        string
	port        string
	region      string
	tlsCertFile string
	tlsKeyFile  string

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	// Log filter, zap level or RUST_LOG style directives
	logLevel string

	// ScyllaDB cluster
	dbNodes               []string
	dbPort                int
	dbUser                string
	dbPassword            string
	dbDatacenter          string
	dbKeyspace            string
	dbCompression         string
	dbCACert              string
	dbTLSHostVerification bool
	dbTimeout             time.Duration
	dbConnectTimeout      time.Duration
	dbParallelism         int

	// Admission and request limits
	parallelFiles  int64
	payloadMaxSize int64

	// Statement catalog file, empty for the embedded catalog
	statementsFile string
}

var cfg Config

// Init loads .env when present and reads every setting. Unset variables take their defaults.
func Init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	cfg = Config{
		devMode:     env.GetEnvBool("DEV_MODE", false),
		host:        env.GetEnvFirst("0.0.0.0", "HOST", "host"),
		port:        env.GetEnvFirst("8443", "PORT", "port"),
		region:      env.GetEnvFirst("", "REGION", "region"),
		tlsCertFile: env.GetEnvString("TLS_CERT_FILE", "cert.pem"),
		tlsKeyFile:  env.GetEnvString("TLS_KEY_FILE", "key.pem"),

		readTimeout:     env.GetEnvDuration("READ_TIMEOUT", 30*time.Second),
		writeTimeout:    env.GetEnvDuration("WRITE_TIMEOUT", 60*time.Second),
		shutdownTimeout: env.GetEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		logLevel: env.GetEnvFirst("", "LOG_LEVEL", "RUST_LOG", "rust_log"),

		dbNodes: []string{
			env.GetEnvFirst("", "DB_NODE0", "db_node0"),
			env.GetEnvFirst("", "DB_NODE1", "db_node1"),
			env.GetEnvFirst("", "DB_NODE2", "db_node2"),
		},
		dbPort:                env.GetEnvInt("DB_PORT", 9042),
		dbUser:                env.GetEnvFirst("", "DB_USER", "db_user"),
		dbPassword:            env.GetEnvFirst("", "DB_PASSWORD", "db_password"),
		dbDatacenter:          env.GetEnvFirst("", "DB_DC", "db_dc"),
		dbKeyspace:            env.GetEnvString("DB_KEYSPACE", ""),
		dbCompression:         env.GetEnvString("DB_COMPRESSION", "lz4"),
		dbCACert:              env.GetEnvString("DB_CA_CERT", "scylla_cert.crt"),
		dbTLSHostVerification: env.GetEnvBool("DB_TLS_HOST_VERIFICATION", false),
		dbTimeout:             env.GetEnvDuration("DB_TIMEOUT", 30*time.Second),
		dbConnectTimeout:      env.GetEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		dbParallelism:         envIntFirst(2, "DB_PARALLELISM", "db_parallelism"),

		parallelFiles:  int64(envIntFirst(2*runtime.NumCPU(), "PARALLEL_FILES", "parallel_files")),
		payloadMaxSize: int64(envIntFirst(1<<20, "PAYLOAD_MAX_SIZE", "payload_max_size")),

		statementsFile: env.GetEnvString("STATEMENTS_FILE", ""),
	}

	if err := validateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

// envIntFirst reads the first of keys that is set and holds an integer.
func envIntFirst(defaultValue int, keys ...string) int {
	raw := env.GetEnvFirst(strconv.Itoa(defaultValue), keys...)
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("Environment variable %s is not an int, using default value: %d\n", keys[0], defaultValue)
		return defaultValue
	}
	return n
}

// validateConfig rejects only settings the gateway cannot run with.
func validateConfig() error {
	if !env.IsValidPort(cfg.port) {
		return fmt.Errorf("invalid port: %s", cfg.port)
	}
	if !env.IsValidPort(strconv.Itoa(cfg.dbPort)) {
		return fmt.Errorf("invalid database port: %d", cfg.dbPort)
	}
	if len(GetDatabaseNodes()) == 0 {
		return errors.New("no database node configured: set DB_NODE0, DB_NODE1 or DB_NODE2")
	}
	for _, node := range GetDatabaseNodes() {
		host := node
		if h, p, err := net.SplitHostPort(node); err == nil {
			if !env.IsValidPort(p) {
				return fmt.Errorf("invalid database node port: %s", node)
			}
			host = h
		}
		if !env.IsValidHost(host) {
			return fmt.Errorf("invalid database node: %s", node)
		}
	}
	if cfg.parallelFiles < 1 {
		return fmt.Errorf("parallel_files must be at least 1, got %d", cfg.parallelFiles)
	}
	if cfg.payloadMaxSize < 1 {
		return fmt.Errorf("payload_max_size must be positive, got %d", cfg.payloadMaxSize)
	}
	if cfg.dbParallelism < 1 {
		return fmt.Errorf("db_parallelism must be at least 1, got %d", cfg.dbParallelism)
	}
	if !cfg.devMode {
		if env.IsEmpty(cfg.tlsCertFile) || env.IsEmpty(cfg.tlsKeyFile) {
			return errors.New("TLS certificate and key are required outside development mode")
		}
	}
	return nil
}

func IsDevMode() bool {
	return cfg.devMode
}

func GetHost() string {
	return cfg.host
}

func GetPort() string {
	return cfg.port
}

func GetRegion() string {
	return cfg.region
}

func GetTLSCertFile() string {
	return cfg.tlsCertFile
}

func GetTLSKeyFile() string {
	return cfg.tlsKeyFile
}

func GetReadTimeout() time.Duration {
	return cfg.readTimeout
}

func GetWriteTimeout() time.Duration {
	return cfg.writeTimeout
}

func GetShutdownTimeout() time.Duration {
	return cfg.shutdownTimeout
}

func GetLogLevel() string {
	return cfg.logLevel
}

// GetDatabaseNodes returns the configured nodes, skipping unset slots.
func GetDatabaseNodes() []string {
	nodes := make([]string, 0, len(cfg.dbNodes))
	for _, node := range cfg.dbNodes {
		if !env.IsEmpty(node) {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func GetDatabasePort() int {
	return cfg.dbPort
}

func GetDatabaseUser() string {
	return cfg.dbUser
}

func GetDatabasePassword() string {
	return cfg.dbPassword
}

func GetDatabaseDatacenter() string {
	return cfg.dbDatacenter
}

func GetDatabaseKeyspace() string {
	return cfg.dbKeyspace
}

func GetDatabaseCompression() string {
	return cfg.dbCompression
}

func GetDatabaseCACert() string {
	return cfg.dbCACert
}

func GetDatabaseTLSHostVerification() bool {
	return cfg.dbTLSHostVerification
}

func GetDatabaseTimeout() time.Duration {
	return cfg.dbTimeout
}

func GetDatabaseConnectTimeout() time.Duration {
	return cfg.dbConnectTimeout
}

func GetDatabaseParallelism() int {
	return cfg.dbParallelism
}

func GetParallelFiles() int64 {
	return cfg.parallelFiles
}

func GetPayloadMaxSize() int64 {
	return cfg.payloadMaxSize
}

func GetStatementsFile() string {
	return cfg.statementsFile
}
