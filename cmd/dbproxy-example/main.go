package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/yaw/dbproxy/pkg/client/dbproxy"
	httppkg "github.com/yaw/dbproxy/pkg/http"
	"github.com/yaw/dbproxy/pkg/logging"
)

func main() {
	app := &cli.App{
		Name:  "dbproxy-example",
		Usage: "Page through a SELECT JSON statement via a dbproxy gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "https://localhost:8443", EnvVars: []string{"DBPROXY_URL"}, Usage: "gateway base URL"},
			&cli.StringFlag{Name: "ca-cert", EnvVars: []string{"DBPROXY_CA_CERT"}, Usage: "PEM file trusted for the gateway certificate"},
			&cli.BoolFlag{Name: "insecure", EnvVars: []string{"DBPROXY_INSECURE"}, Usage: "skip gateway certificate verification"},
			&cli.StringFlag{Name: "statement", Value: "SELECT JSON * FROM system.peers", Usage: "CQL to run, must be SELECT JSON"},
			&cli.IntFlag{Name: "page-size", Value: 2, Usage: "rows per page"},
			&cli.IntFlag{Name: "max-pages", Value: 0, Usage: "stop after this many pages, 0 for all"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln("Example failed:", err)
	}
}

func run(c *cli.Context) error {
	logger, err := logging.NewZapLogger(logging.NewDefaultConfig(logging.ClientProcess))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	tlsConfig, err := httppkg.NewTLSConfig(c.String("ca-cert"), c.Bool("insecure"))
	if err != nil {
		return err
	}
	httpConfig := httppkg.DefaultHTTPConfig()
	httpConfig.TLSConfig = tlsConfig

	client, err := dbproxy.NewClient(logger, c.String("url"), httpConfig)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.HealthCheck(ctx); err != nil {
		logger.Warnf("Gateway health check failed: %v", err)
	}

	maxPages := c.Int("max-pages")
	total := 0
	err = client.DirectPages(ctx, dbproxy.DirectOperation{
		StatementID:    "example",
		Statement:      c.String("statement"),
		PerPageResults: c.Int("page-size"),
	}, func(page int, result dbproxy.Result) error {
		total += result.RecordsNumber
		logger.Info("Page received", "page", page, "records", result.RecordsNumber, "paging_state", result.PagingState)
		for _, record := range result.Records {
			fmt.Println(string(record))
		}
		if maxPages > 0 && page >= maxPages {
			return dbproxy.ErrStopPaging
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Infof("Done, %d records", total)
	return nil
}
