// Package store persists articles and newsletter subscribers in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-dev/website/internal/ingestion"
	"github.com/inkwell-dev/website/internal/search"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/inkwell-dev/website/pkg/postgres"
	"github.com/lib/pq"
)

// listColumns leaves out the body, which listings never show.
const listColumns = `id, title, summary, '' AS body, publish_date, tags`

const fullColumns = `id, title, summary, body, publish_date, tags`

// ArticleStore reads and writes the blog table.
type ArticleStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewArticleStore(db *postgres.Client) *ArticleStore {
	return &ArticleStore{
		db:     db,
		logger: slog.Default().With("component", "article-store"),
	}
}

// SitemapEntry is the minimal article projection used by sitemap.xml.
type SitemapEntry struct {
	ID          int64
	PublishDate time.Time
}

// Exists reports whether an article with id is stored.
func (s *ArticleStore) Exists(ctx context.Context, id int64) (bool, error) {
	var found bool
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blog WHERE id = $1)`, id,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("looking up article %d: %w", id, err)
	}
	return found, nil
}

// InsertIfAbsent writes art unless its id is taken. A conflict is not an
// error; inserted is false and the stored row is left untouched.
func (s *ArticleStore) InsertIfAbsent(ctx context.Context, art *ingestion.Article) (bool, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO blog (id, title, summary, body, publish_date, tags)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		art.ID, art.Title, art.Summary, art.Body,
		art.PublishDate.Format(ingestion.DateLayout), pq.Array(art.Tags),
	)
	if err != nil {
		return false, fmt.Errorf("inserting article %d: %w", art.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting article %d: %w", art.ID, err)
	}
	return n == 1, nil
}

// Get returns the full article, or ErrArticleNotFound.
func (s *ArticleStore) Get(ctx context.Context, id int64) (*ingestion.Article, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT `+fullColumns+` FROM blog WHERE id = $1`, id)
	art, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrArticleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching article %d: %w", id, err)
	}
	return art, nil
}

// List returns one page of articles, newest first, without bodies.
func (s *ArticleStore) List(ctx context.Context, limit, offset int) ([]ingestion.Article, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+listColumns+` FROM blog
		 ORDER BY publish_date DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return s.collect(rows)
}

func (s *ArticleStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.DB.QueryRowContext(ctx, `SELECT count(*) FROM blog`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

// Search returns at most limit articles matching plan, newest first. An
// empty plan matches nothing.
func (s *ArticleStore) Search(ctx context.Context, plan *search.Plan, limit int) ([]ingestion.Article, error) {
	if plan.Empty() {
		return []ingestion.Article{}, nil
	}
	query, args := buildSearchQuery(plan, limit)
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching articles: %w", err)
	}
	return s.collect(rows)
}

// All lists every article id with its date, for the sitemap.
func (s *ArticleStore) All(ctx context.Context) ([]SitemapEntry, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, publish_date FROM blog ORDER BY publish_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sitemap entries: %w", err)
	}
	defer rows.Close()

	entries := make([]SitemapEntry, 0)
	for rows.Next() {
		var e SitemapEntry
		if err := rows.Scan(&e.ID, &e.PublishDate); err != nil {
			return nil, fmt.Errorf("scanning sitemap entry: %w", err)
		}
		e.PublishDate = e.PublishDate.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *ArticleStore) collect(rows *sql.Rows) ([]ingestion.Article, error) {
	defer rows.Close()
	articles := make([]ingestion.Article, 0)
	for rows.Next() {
		art, err := scanArticle(rows)
		if err != nil {
			s.logger.Error("failed to scan article row", "error", err)
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, *art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating articles: %w", err)
	}
	return articles, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(sc scanner) (*ingestion.Article, error) {
	var art ingestion.Article
	var tags []string
	if err := sc.Scan(&art.ID, &art.Title, &art.Summary, &art.Body, &art.PublishDate, pq.Array(&tags)); err != nil {
		return nil, err
	}
	art.PublishDate = art.PublishDate.UTC()
	art.Tags = tags
	return &art, nil
}
