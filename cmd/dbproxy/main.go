package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yaw/dbproxy/internal/dbproxy/api"
	"github.com/yaw/dbproxy/internal/dbproxy/config"
	"github.com/yaw/dbproxy/internal/dbproxy/dispatcher"
	"github.com/yaw/dbproxy/internal/dbproxy/metrics"
	"github.com/yaw/dbproxy/internal/dbproxy/session"
	"github.com/yaw/dbproxy/internal/dbproxy/statements"
	"github.com/yaw/dbproxy/pkg/logging"
)

func main() {
	startTime := time.Now()

	if err := config.Init(); err != nil {
		panic(fmt.Sprintf("Failed to initialize config: %v", err))
	}

	logger, err := logging.NewZapLogger(logging.LoggerConfig{
		ProcessName:   logging.GatewayProcess,
		IsDevelopment: config.IsDevMode(),
		Level:         config.GetLogLevel(),
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting dbproxy...",
		"dev_mode", config.IsDevMode(),
		"host", config.GetHost(),
		"port", config.GetPort(),
		"region", config.GetRegion(),
		"db_nodes", config.GetDatabaseNodes(),
		"parallel_files", config.GetParallelFiles(),
	)

	sessionConfig := session.NewConfig(config.GetDatabaseNodes()...).
		WithPort(config.GetDatabasePort()).
		WithKeyspace(config.GetDatabaseKeyspace()).
		WithCredentials(config.GetDatabaseUser(), config.GetDatabasePassword()).
		WithDatacenter(config.GetDatabaseDatacenter()).
		WithCompression(config.GetDatabaseCompression()).
		WithTLS(config.GetDatabaseCACert(), config.GetDatabaseTLSHostVerification()).
		WithNumConns(config.GetDatabaseParallelism()).
		WithTimeouts(config.GetDatabaseTimeout(), config.GetDatabaseConnectTimeout())

	ctx := context.Background()

	db, err := session.New(ctx, sessionConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to the database: %v", err)
	}
	defer db.Close()

	descriptors, err := statements.LoadCatalog(config.GetStatementsFile())
	if err != nil {
		logger.Fatalf("Failed to load statement catalog: %v", err)
	}
	registry, err := statements.New(ctx, descriptors, db, logger)
	if err != nil {
		logger.Fatalf("Failed to build statement registry: %v", err)
	}

	server := api.NewServer(api.Config{
		Host:           config.GetHost(),
		Port:           config.GetPort(),
		TLSCertFile:    config.GetTLSCertFile(),
		TLSKeyFile:     config.GetTLSKeyFile(),
		DevMode:        config.IsDevMode(),
		ReadTimeout:    config.GetReadTimeout(),
		WriteTimeout:   config.GetWriteTimeout(),
		PayloadMaxSize: config.GetPayloadMaxSize(),
	}, api.Dependencies{
		Dispatcher: dispatcher.New(registry, db, config.GetParallelFiles(), logger),
		Health:     db,
		Logger:     logger,
	})

	var wg sync.WaitGroup
	serverErrors := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			serverErrors <- err
		}
	}()

	metrics.StartupDuration.Set(time.Since(startTime).Seconds())
	logger.Infof("dbproxy ready in %s with %d statements", time.Since(startTime), registry.Len())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error received", "error", err)
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())
	}

	performGracefulShutdown(server, &wg, logger)
}

func performGracefulShutdown(server *api.Server, wg *sync.WaitGroup, logger logging.Logger) {
	logger.Info("Initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), config.GetShutdownTimeout())
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("Shutdown complete")
}
