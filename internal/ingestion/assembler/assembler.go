// Package assembler converts extracted front matter into canonical Article
// records.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-dev/website/internal/ingestion"
	"github.com/inkwell-dev/website/internal/ingestion/frontmatter"
	"github.com/inkwell-dev/website/pkg/config"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
)

const tagSeparator = ", "

// Summarizer produces a short summary for an article body.
type Summarizer interface {
	Summarize(ctx context.Context, body string) (string, error)
}

// Assembler builds Articles. The zero summarizer leaves summaries empty.
type Assembler struct {
	summarizer Summarizer
	onFailure  string
	logger     *slog.Logger
}

// New returns an Assembler. summarizer may be nil. onFailure is
// config.OnFailureSkip or config.OnFailureEmpty.
func New(summarizer Summarizer, onFailure string) *Assembler {
	if onFailure == "" {
		onFailure = config.OnFailureSkip
	}
	return &Assembler{
		summarizer: summarizer,
		onFailure:  onFailure,
		logger:     slog.Default().With("component", "assembler"),
	}
}

// Assemble resolves the raw front-matter strings of a complete Metadata
// record. The summary is left empty; see Summarize.
func (a *Assembler) Assemble(md *frontmatter.Metadata) (*ingestion.Article, error) {
	if missing := md.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", apperrors.ErrIncompleteMetadata, missing)
	}

	id, err := ParseID(md.ID.Text)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(md.Title.Text)
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", apperrors.ErrIncompleteMetadata)
	}
	date, err := ParseDate(md.Date.Text)
	if err != nil {
		return nil, err
	}
	tags, err := ParseTags(md.Tags.Text)
	if err != nil {
		return nil, err
	}

	return &ingestion.Article{
		ID:          id,
		Title:       title,
		Summary:     "",
		Body:        md.Body,
		PublishDate: date,
		Tags:        tags,
	}, nil
}

// Summarize fills art.Summary through the configured summarizer. Under the
// "empty" policy a failure is logged and the summary stays empty; under
// "skip" it is returned wrapped in ErrSummarization.
func (a *Assembler) Summarize(ctx context.Context, art *ingestion.Article) error {
	if a.summarizer == nil {
		return nil
	}
	summary, err := a.summarizer.Summarize(ctx, art.Body)
	if err == nil {
		art.Summary = strings.TrimSpace(summary)
		return nil
	}
	err = fmt.Errorf("%w: article %d: %v", apperrors.ErrSummarization, art.ID, err)
	if a.onFailure == config.OnFailureEmpty {
		a.logger.Warn("summary left empty", "article_id", art.ID, "error", err)
		art.Summary = ""
		return nil
	}
	return err
}

// ParseID parses a signed decimal article id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrMalformedID, raw)
	}
	return id, nil
}

// ParseDate parses a YYYY-MM-DD date, rejecting impossible calendar days.
func ParseDate(raw string) (time.Time, error) {
	date, err := time.Parse(ingestion.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrMalformedDate, raw)
	}
	return date, nil
}

// ParseTags splits a ", "-separated list. Elements are trimmed of spaces and
// stray commas and empty elements dropped; at least one tag must remain.
func ParseTags(raw string) ([]string, error) {
	parts := strings.Split(raw, tagSeparator)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.Trim(p, " \t,"); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrMalformedTags, raw)
	}
	return tags, nil
}
