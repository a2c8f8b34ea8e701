// Package publisher performs the store write of the ingestion pipeline and
// announces newly published articles on Kafka.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/inkwell-dev/website/internal/ingestion"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/inkwell-dev/website/pkg/kafka"
)

// Writer inserts an article unless its id already exists. Inserting an
// existing id is not an error; inserted reports whether a row was added.
type Writer interface {
	InsertIfAbsent(ctx context.Context, art *ingestion.Article) (inserted bool, err error)
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates article persistence and event production.
type Publisher struct {
	store  Writer
	events EventPublisher
	logger *slog.Logger
}

// New creates a Publisher. events may be nil when Kafka is disabled.
func New(store Writer, events EventPublisher) *Publisher {
	return &Publisher{
		store:  store,
		events: events,
		logger: slog.Default().With("component", "publisher"),
	}
}

// Publish writes art and, when a row was inserted, emits a PublishedEvent.
// A failed event is logged only: the article is already persisted and the
// next run would skip it anyway.
func (p *Publisher) Publish(ctx context.Context, art *ingestion.Article) (bool, error) {
	inserted, err := p.store.InsertIfAbsent(ctx, art)
	if err != nil {
		return false, fmt.Errorf("%w: article %d: %v", apperrors.ErrStoreWrite, art.ID, err)
	}
	if !inserted {
		p.logger.Info("article already present at write time", "article_id", art.ID)
		return false, nil
	}
	if p.events == nil {
		return true, nil
	}

	event := kafka.Event{
		Key: strconv.FormatInt(art.ID, 10),
		Value: ingestion.PublishedEvent{
			ArticleID:   art.ID,
			Title:       art.Title,
			Tags:        art.Tags,
			PublishDate: art.PublishDate.Format(ingestion.DateLayout),
			PublishedAt: time.Now().UTC(),
		},
	}
	if err := p.events.Publish(ctx, event); err != nil {
		p.logger.Error("failed to announce published article",
			"article_id", art.ID,
			"error", err,
		)
	}
	return true, nil
}
