package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/climate-records/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-records/internal/adapter/kafka"
	"github.com/couchcryptid/climate-records/internal/catalog"
	"github.com/couchcryptid/climate-records/internal/config"
	"github.com/couchcryptid/climate-records/internal/observability"
	"github.com/couchcryptid/climate-records/internal/pipeline"
	"github.com/couchcryptid/climate-records/internal/record"
	"github.com/couchcryptid/climate-records/internal/subhourly"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	groups, err := subhourly.New()
	if err != nil {
		logger.Error("failed to build sub-hour registry", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	metrics.CatalogEntries.WithLabelValues("station").Set(float64(len(cat.Stations())))
	metrics.CatalogEntries.WithLabelValues("variable").Set(float64(len(cat.Variables())))
	metrics.CatalogEntries.WithLabelValues("subhourly_group").Set(float64(len(groups.GroupIDs())))
	logger.Info("catalog loaded",
		"path", cfg.CatalogPath,
		"stations", len(cat.Stations()),
		"variables", len(cat.Variables()),
		"lookup_cache_size", cfg.LookupCacheSize,
	)

	lookup := catalog.NewCached(cat, cfg.LookupCacheSize, metrics.LookupCache)
	resolver := record.NewResolver(lookup, groups)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(resolver, pipeline.Options{
		FillMissing: cfg.FillMissing,
		Subhourly:   cfg.Subhourly,
	}, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, groups, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start record pipeline.
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
