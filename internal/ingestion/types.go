// Package ingestion defines the article record produced from Markdown
// sources, the per-file results of an ingestion run, and the event emitted
// when an article is first published.
package ingestion

import (
	"sort"
	"time"
)

// DateLayout is the front-matter date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Article is the canonical record derived from one source file. ID is the
// natural key taken from the front matter.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Body        string    `json:"body"`
	PublishDate time.Time `json:"publish_date"`
	Tags        []string  `json:"tags"`
}

// Outcome classifies what happened to one source file.
type Outcome string

const (
	// OutcomePublished means the article was written to the store.
	OutcomePublished Outcome = "published"
	// OutcomeSkipped means the article already existed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRejected means the file carried no complete front matter
	// (drafts, notes, partial headers).
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed covers unreadable files, malformed values, and
	// summarizer or store failures.
	OutcomeFailed Outcome = "failed"
)

// Result is the terminal state of one file in a run.
type Result struct {
	Path      string  `json:"path"`
	ArticleID int64   `json:"article_id,omitempty"`
	Outcome   Outcome `json:"outcome"`
	Err       error   `json:"-"`
	Error     string  `json:"error,omitempty"`
}

// Report aggregates the results of a run.
type Report struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Published int       `json:"published"`
	Skipped   int       `json:"skipped"`
	Rejected  int       `json:"rejected"`
	Failed    int       `json:"failed"`
	Results   []Result  `json:"results"`
}

// NewReport counts results and orders them by path.
func NewReport(started time.Time, results []Result) *Report {
	r := &Report{
		StartedAt: started,
		Duration:  time.Since(started).Round(time.Millisecond).String(),
		Results:   results,
	}
	sort.Slice(r.Results, func(i, j int) bool { return r.Results[i].Path < r.Results[j].Path })
	for i := range r.Results {
		res := &r.Results[i]
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
		switch res.Outcome {
		case OutcomePublished:
			r.Published++
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeRejected:
			r.Rejected++
		case OutcomeFailed:
			r.Failed++
		}
	}
	return r
}

// Total is the number of source files seen.
func (r *Report) Total() int {
	return len(r.Results)
}

// PublishedEvent is the Kafka payload produced after an article is first
// written to the store.
type PublishedEvent struct {
	ArticleID   int64     `json:"article_id"`
	Title       string    `json:"title"`
	Tags        []string  `json:"tags"`
	PublishDate string    `json:"publish_date"`
	PublishedAt time.Time `json:"published_at"`
}
