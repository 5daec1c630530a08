package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/grid-ingest/internal/adapter/http"
	"github.com/couchcryptid/grid-ingest/internal/adapter/httpclient"
	kafkaadapter "github.com/couchcryptid/grid-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/grid-ingest/internal/capacity"
	"github.com/couchcryptid/grid-ingest/internal/config"
	"github.com/couchcryptid/grid-ingest/internal/emission"
	"github.com/couchcryptid/grid-ingest/internal/observability"
	"github.com/couchcryptid/grid-ingest/internal/parser"
	"github.com/couchcryptid/grid-ingest/internal/pipeline"
	"github.com/couchcryptid/grid-ingest/internal/source/constant"
	"github.com/couchcryptid/grid-ingest/internal/zone"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	zones, err := zone.Load(cfg.ConfigDir)
	if err != nil {
		logger.Error("failed to load zone configuration", "error", err, "config_dir", cfg.ConfigDir)
		os.Exit(1)
	}
	capacities := capacity.NewResolver(logger, zones)
	factors := emission.NewResolver(zones)

	catalog := parser.NewCatalog()
	if err := constant.New(capacities, clock).Register(catalog); err != nil {
		logger.Error("failed to register adapters", "error", err)
		os.Exit(1)
	}
	registry, err := parser.Build(zones, catalog)
	if err != nil {
		logger.Error("failed to bind parsers", "error", err)
		os.Exit(1)
	}
	logger.Info("parser registry built", "adapters", registry.Len(), "zones", len(zones.ZoneKeys()))

	sessions := httpclient.New(cfg.UpstreamTimeout, cfg.ProxyURLTemplate)
	fetcher, err := pipeline.NewFetcher(registry, zones, sessions, cfg.RejectAllZeros, clock, logger, metrics)
	if err != nil {
		logger.Error("failed to build fetcher", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(fetcher, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, httpadapter.Resolvers{
		Zones:      zones,
		Capacities: capacities,
		Factors:    factors,
		Clock:      clock,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
