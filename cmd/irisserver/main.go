package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/irislabs/iris-serving/internal/api"
	"github.com/irislabs/iris-serving/internal/classifier"
	"github.com/irislabs/iris-serving/internal/config"
	chiserver "github.com/irislabs/iris-serving/pkg/http_server/chi_server"
	"github.com/irislabs/iris-serving/pkg/logging"
	"github.com/irislabs/iris-serving/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "irisserver:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("IRIS_CONFIG"), "path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry(
		metrics.WithLogger(logger),
		metrics.WithMaxSeries(cfg.Metrics.MaxSeries),
	)

	instr, err := metrics.NewInstrumentation(registry, "predict",
		metrics.WithBuckets(cfg.Metrics.Buckets))
	if err != nil {
		return fmt.Errorf("build instrumentation: %w", err)
	}

	handler := api.New(classifier.New(), instr, logger)

	server, err := chiserver.New(logger,
		chiserver.WithConfig(chiserver.Config{
			Address:            cfg.Server.Address,
			ReadTimeout:        cfg.Server.ReadTimeout,
			WriteTimeout:       cfg.Server.WriteTimeout,
			IdleTimeout:        cfg.Server.IdleTimeout,
			BodyLimit:          cfg.Server.BodyLimit,
			ServiceName:        cfg.Service.Name,
			ServiceVersion:     cfg.Service.Version,
			Environment:        cfg.Service.Environment,
			EnableHealthChecks: true,
		}),
		chiserver.WithMetricsRegistry(registry),
	)
	if err != nil {
		return err
	}

	server.RegisterRouters(handler)

	return server.Start(context.Background())
}
