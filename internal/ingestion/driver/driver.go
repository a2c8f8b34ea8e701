// Package driver runs the ingestion pipeline over a directory of Markdown
// sources: extract, assemble, gate, summarize and publish, one file at a time
// or through a bounded worker group.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-dev/website/internal/ingestion"
	"github.com/inkwell-dev/website/internal/ingestion/assembler"
	"github.com/inkwell-dev/website/internal/ingestion/frontmatter"
	"github.com/inkwell-dev/website/internal/ingestion/gate"
	"github.com/inkwell-dev/website/pkg/config"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/inkwell-dev/website/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Gatekeeper decides whether an article id still needs publishing.
type Gatekeeper interface {
	Check(ctx context.Context, id int64) gate.Decision
}

// Publisher writes an article, reporting whether a row was inserted.
type Publisher interface {
	Publish(ctx context.Context, art *ingestion.Article) (bool, error)
}

// Deps are the collaborators of a Driver. Metrics may be nil.
type Deps struct {
	Gate      Gatekeeper
	Assembler *assembler.Assembler
	Publisher Publisher
	Metrics   *metrics.Metrics
}

type Driver struct {
	dir        string
	extensions []string
	workers    int
	deps       Deps
	logger     *slog.Logger

	// runs are serialized; the watcher and the admin endpoint may overlap.
	mu sync.Mutex
}

func New(cfg config.ArticlesConfig, deps Deps) *Driver {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{".md"}
	}
	return &Driver{
		dir:        cfg.Dir,
		extensions: exts,
		workers:    workers,
		deps:       deps,
		logger:     slog.Default().With("component", "ingest-driver"),
	}
}

// Run processes every source file under the directory. Per-file failures are
// recorded in the report and never returned; the error is non-nil only when
// the directory cannot be read or ctx is cancelled.
func (d *Driver) Run(ctx context.Context) (*ingestion.Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	started := time.Now()
	d.logger.Info("ingestion run started", "dir", d.dir, "workers", d.workers)

	paths, walkFailures, err := d.collect()
	if err != nil {
		d.observeRun(started, "aborted")
		d.logger.Error("ingestion run aborted", "dir", d.dir, "error", err)
		return nil, err
	}

	results := make([]ingestion.Result, len(paths), len(paths)+len(walkFailures))
	runErr := d.processAll(ctx, paths, results)
	// unprocessed slots after cancellation carry no outcome
	done := results[:0]
	for _, r := range results {
		if r.Outcome != "" {
			done = append(done, r)
		}
	}
	done = append(done, walkFailures...)

	for _, r := range done {
		d.countFile(r.Outcome)
	}
	report := ingestion.NewReport(started, done)

	status := "ok"
	if runErr != nil {
		status = "aborted"
	}
	d.observeRun(started, status)
	d.logger.Info("ingestion run finished",
		"status", status,
		"files", report.Total(),
		"published", report.Published,
		"skipped", report.Skipped,
		"rejected", report.Rejected,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	return report, runErr
}

func (d *Driver) processAll(ctx context.Context, paths []string, results []ingestion.Result) error {
	if d.workers == 1 {
		for i, path := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = d.processFile(ctx, path)
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = d.processFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// collect walks the directory and returns the source paths in lexical order.
// Subdirectories that cannot be listed become failed results.
func (d *Driver) collect() ([]string, []ingestion.Result, error) {
	info, err := os.Stat(d.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", apperrors.ErrDirectoryUnavailable, d.dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", apperrors.ErrDirectoryUnavailable, d.dir)
	}

	var paths []string
	var failures []ingestion.Result
	err = filepath.WalkDir(d.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == d.dir {
				return fmt.Errorf("%w: %s: %v", apperrors.ErrDirectoryUnavailable, d.dir, err)
			}
			d.logger.Warn("cannot read directory entry", "path", path, "error", err)
			failures = append(failures, ingestion.Result{
				Path:    d.rel(path),
				Outcome: ingestion.OutcomeFailed,
				Err:     fmt.Errorf("%w: %v", apperrors.ErrFileUnreadable, err),
			})
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != d.dir && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !d.isSource(entry.Name()) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return paths, failures, nil
}

func (d *Driver) isSource(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range d.extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func (d *Driver) rel(path string) string {
	if rel, err := filepath.Rel(d.dir, path); err == nil {
		return rel
	}
	return path
}

// processFile runs one source through every stage. Failures end up in the
// returned result.
func (d *Driver) processFile(ctx context.Context, path string) ingestion.Result {
	res := ingestion.Result{Path: d.rel(path)}
	logger := d.logger.With("path", res.Path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return d.fail(logger, res, fmt.Errorf("%w: %v", apperrors.ErrFileUnreadable, err))
	}

	md := frontmatter.Extract(string(raw))
	if !md.Complete() {
		res.Outcome = ingestion.OutcomeRejected
		res.Err = fmt.Errorf("%w: missing %v", apperrors.ErrIncompleteMetadata, md.Missing())
		logger.Info("skipping file without complete front matter", "missing", fmt.Sprint(md.Missing()))
		return res
	}
	if !md.HasBody() {
		return d.fail(logger, res, apperrors.ErrTruncatedDocument)
	}

	art, err := d.deps.Assembler.Assemble(&md)
	if err != nil {
		return d.fail(logger, res, err)
	}
	res.ArticleID = art.ID
	logger = logger.With("article_id", art.ID)

	if d.deps.Gate.Check(ctx, art.ID) == gate.DecisionSkip {
		res.Outcome = ingestion.OutcomeSkipped
		logger.Debug("article already published")
		return res
	}

	if err := d.deps.Assembler.Summarize(ctx, art); err != nil {
		return d.fail(logger, res, err)
	}

	inserted, err := d.deps.Publisher.Publish(ctx, art)
	if err != nil {
		return d.fail(logger, res, err)
	}
	if !inserted {
		res.Outcome = ingestion.OutcomeSkipped
		return res
	}
	res.Outcome = ingestion.OutcomePublished
	logger.Info("article published", "title", art.Title)
	return res
}

func (d *Driver) fail(logger *slog.Logger, res ingestion.Result, err error) ingestion.Result {
	res.Outcome = ingestion.OutcomeFailed
	res.Err = err
	switch {
	case !apperrors.IsFileLocal(err):
		logger.Error("file failed with unclassified error", "error", err)
	case errors.Is(err, apperrors.ErrStoreWrite), errors.Is(err, apperrors.ErrSummarization):
		logger.Error("file failed", "error", err)
	default:
		logger.Warn("file rejected", "error", err)
	}
	return res
}

func (d *Driver) countFile(outcome ingestion.Outcome) {
	if d.deps.Metrics == nil {
		return
	}
	d.deps.Metrics.IngestFilesTotal.WithLabelValues(string(outcome)).Inc()
}

func (d *Driver) observeRun(started time.Time, status string) {
	if d.deps.Metrics == nil {
		return
	}
	d.deps.Metrics.IngestRunDuration.Observe(time.Since(started).Seconds())
	d.deps.Metrics.IngestRunsTotal.WithLabelValues(status).Inc()
}
