package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/disaster-correlation-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/disaster-correlation-etl/internal/adapter/kafka"
	"github.com/couchcryptid/disaster-correlation-etl/internal/config"
	"github.com/couchcryptid/disaster-correlation-etl/internal/engine"
	"github.com/couchcryptid/disaster-correlation-etl/internal/observability"
	"github.com/couchcryptid/disaster-correlation-etl/internal/pipeline"
	"github.com/couchcryptid/disaster-correlation-etl/internal/schema"
	"github.com/couchcryptid/disaster-correlation-etl/internal/source"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	table, err := loadTaxonomy(cfg)
	if err != nil {
		logger.Error("failed to build hazard taxonomy", "error", err)
		os.Exit(1)
	}
	logger.Info("hazard taxonomy loaded", "rows", table.Len(), "path", cfg.TaxonomyPath)

	registry, err := source.NewDefaultRegistry(table)
	if err != nil {
		logger.Error("failed to register source adapters", "error", err)
		os.Exit(1)
	}

	eng := engine.New(table,
		engine.WithSourceTag(cfg.CorrelationSourceTag),
		engine.WithAllowPartial(cfg.AllowPartialRecords),
		engine.WithWorkers(cfg.EngineWorkers),
	)

	opts := []pipeline.TransformerOption{pipeline.WithDefaultSource(cfg.DefaultSource)}
	if cfg.SchemaValidation {
		validator, err := schema.NewValidator()
		if err != nil {
			logger.Error("failed to compile record schema", "error", err)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithValidator(validator))
	}
	transformer := pipeline.NewTransformer(registry, eng, logger, metrics, opts...)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, registry.Names(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
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

func loadTaxonomy(cfg *config.Config) (*taxonomy.Table, error) {
	if cfg.TaxonomyPath != "" {
		return taxonomy.LoadFile(cfg.TaxonomyPath)
	}
	return taxonomy.Default()
}
