package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkwell-dev/website/internal/ingestion"
	"github.com/inkwell-dev/website/internal/ingestion/assembler"
	"github.com/inkwell-dev/website/internal/ingestion/driver"
	"github.com/inkwell-dev/website/internal/ingestion/gate"
	"github.com/inkwell-dev/website/internal/ingestion/publisher"
	"github.com/inkwell-dev/website/internal/ingestion/summarizer"
	"github.com/inkwell-dev/website/internal/store"
	"github.com/inkwell-dev/website/internal/web/cache"
	"github.com/inkwell-dev/website/pkg/config"
	"github.com/inkwell-dev/website/pkg/kafka"
	"github.com/inkwell-dev/website/pkg/metrics"
	"github.com/inkwell-dev/website/pkg/postgres"
	"github.com/inkwell-dev/website/pkg/resilience"
)

// connectPostgres retries the initial connection so the site can start
// alongside its database container.
func connectPostgres(ctx context.Context, cfg config.PostgresConfig) (*postgres.Client, error) {
	var db *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{}, func() error {
		var err error
		db, err = postgres.New(cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	slog.Info("connected to postgres")
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// pipeline holds the ingestion driver and the resources it owns.
type pipeline struct {
	driver  *driver.Driver
	guard   *summarizer.Guard
	closers []func() error
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			slog.Warn("failed to close ingestion resource", "error", err)
		}
	}
}

// buildPipeline wires gate, assembler, summarizer and publisher around the
// article store.
func buildPipeline(ctx context.Context, cfg *config.Config, articles *store.ArticleStore, m *metrics.Metrics) (*pipeline, error) {
	p := &pipeline{}

	var summary assembler.Summarizer
	if cfg.Summarizer.Enabled {
		gemini, err := summarizer.NewGemini(ctx, cfg.Summarizer)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, gemini.Close)
		p.guard = summarizer.NewGuard(gemini, cfg.Summarizer.Timeout, m)
		summary = p.guard
		slog.Info("summarizer enabled", "model", cfg.Summarizer.Model, "on_failure", cfg.Summarizer.OnFailure)
	}

	var events publisher.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.PublishedTopic)
		p.closers = append(p.closers, producer.Close)
		events = producer
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.PublishedTopic)
	}

	p.driver = driver.New(cfg.Articles, driver.Deps{
		Gate:      gate.New(articles),
		Assembler: assembler.New(summary, cfg.Summarizer.OnFailure),
		Publisher: publisher.New(articles, events),
		Metrics:   m,
	})
	return p, nil
}

// invalidatingRunner flushes cached pages after a run that published
// something.
type invalidatingRunner struct {
	driver *driver.Driver
	cache  *cache.PageCache
}

func (r invalidatingRunner) Run(ctx context.Context) (*ingestion.Report, error) {
	report, err := r.driver.Run(ctx)
	if report != nil && report.Published > 0 {
		if cerr := r.cache.Invalidate(ctx); cerr != nil {
			slog.Warn("failed to invalidate page cache", "error", cerr)
		}
	}
	return report, err
}
