package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/inkwell-dev/website/pkg/postgres"
)

type Subscriber struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriberStore manages the subscriber table. Emails are stored
// lower-cased.
type SubscriberStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewSubscriberStore(db *postgres.Client) *SubscriberStore {
	return &SubscriberStore{
		db:     db,
		logger: slog.Default().With("component", "subscriber-store"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create adds email unless it is already subscribed. created reports whether
// a row was inserted.
func (s *SubscriberStore) Create(ctx context.Context, email string) (bool, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO subscriber (email) VALUES ($1) ON CONFLICT (email) DO NOTHING`,
		normalizeEmail(email),
	)
	if err != nil {
		return false, fmt.Errorf("inserting subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting subscriber: %w", err)
	}
	return n == 1, nil
}

func (s *SubscriberStore) Get(ctx context.Context, email string) (*Subscriber, error) {
	var sub Subscriber
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT email, created_at FROM subscriber WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&sub.Email, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching subscriber: %w", err)
	}
	return &sub, nil
}

// Delete removes email. Removing an unknown address returns
// ErrSubscriberNotFound.
func (s *SubscriberStore) Delete(ctx context.Context, email string) error {
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM subscriber WHERE email = $1`, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("deleting subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting subscriber: %w", err)
	}
	if n == 0 {
		return apperrors.ErrSubscriberNotFound
	}
	s.logger.Info("subscriber removed")
	return nil
}
