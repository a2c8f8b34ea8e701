package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/inkwell-dev/website/internal/ingestion"
	ingesthandler "github.com/inkwell-dev/website/internal/ingestion/handler"
	"github.com/inkwell-dev/website/internal/search"
	"github.com/inkwell-dev/website/internal/store"
	"github.com/inkwell-dev/website/internal/web/handler"
	"github.com/inkwell-dev/website/internal/web/ratelimit"
	"github.com/inkwell-dev/website/internal/web/render"
	"github.com/inkwell-dev/website/internal/web/resume"
	"github.com/inkwell-dev/website/pkg/config"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/inkwell-dev/website/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyArticles struct{}

func (emptyArticles) Get(ctx context.Context, id int64) (*ingestion.Article, error) {
	return nil, apperrors.ErrArticleNotFound
}
func (emptyArticles) List(ctx context.Context, limit, offset int) ([]ingestion.Article, error) {
	return nil, nil
}
func (emptyArticles) Count(ctx context.Context) (int, error) { return 0, nil }
func (emptyArticles) Search(ctx context.Context, plan *search.Plan, limit int) ([]ingestion.Article, error) {
	return nil, nil
}
func (emptyArticles) All(ctx context.Context) ([]store.SitemapEntry, error) { return nil, nil }

type noSubscribers struct{}

func (noSubscribers) Create(ctx context.Context, email string) (bool, error) { return true, nil }
func (noSubscribers) Delete(ctx context.Context, email string) error         { return nil }

type runnerFunc func(ctx context.Context) (*ingestion.Report, error)

func (f runnerFunc) Run(ctx context.Context) (*ingestion.Report, error) { return f(ctx) }

func newSiteHandler(t *testing.T) *handler.Handler {
	t.Helper()
	renderer, err := render.New(4)
	require.NoError(t, err)
	h, err := handler.New(handler.Deps{
		Articles:    emptyArticles{},
		Subscribers: noSubscribers{},
		Renderer:    renderer,
		Resume:      &resume.Resume{},
	}, config.SiteConfig{Title: "Notes", BaseURL: "http://localhost"}, config.BlogConfig{
		PerPage: 10, MaxPerPage: 50, LatestCount: 3, SearchLimit: 10,
	})
	require.NoError(t, err)
	return h
}

func TestPublicRoutes(t *testing.T) {
	r := New(newSiteHandler(t), Options{Health: health.NewChecker()})

	for path, want := range map[string]int{
		"/":             http.StatusOK,
		"/blogs":        http.StatusOK,
		"/blog/7":       http.StatusNotFound,
		"/resume":       http.StatusOK,
		"/radar":        http.StatusOK,
		"/robots.txt":   http.StatusOK,
		"/sitemap.xml":  http.StatusOK,
		"/health/live":  http.StatusOK,
		"/health/ready": http.StatusOK,
		"/missing":      http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), path)
	}
}

func TestAssetsServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644))
	r := New(newSiteHandler(t), Options{AssetsDir: dir})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/style.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
}

func TestFormsAreRateLimited(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute)
	t.Cleanup(limiter.Close)
	r := New(newSiteHandler(t), Options{Limiter: limiter})

	codes := make([]int, 0, 3)
	for range 3 {
		form := url.Values{"search_string": {"golang"}}
		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// page views are not limited
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminIngestOutlivesRequestTimeout(t *testing.T) {
	ingest := ingesthandler.New(runnerFunc(func(ctx context.Context) (*ingestion.Report, error) {
		time.Sleep(50 * time.Millisecond)
		return ingestion.NewReport(time.Now(), nil), ctx.Err()
	}), "s3cret")
	r := New(newSiteHandler(t), Options{Ingest: ingest, RequestTimeout: 10 * time.Millisecond})

	req := httptest.NewRequest(http.MethodPost, "/admin/ingest", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/ingest", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminIngestUnmountedWithoutToken(t *testing.T) {
	r := New(newSiteHandler(t), Options{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/ingest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
