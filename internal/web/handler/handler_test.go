package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/inkwell-dev/website/internal/ingestion"
	"github.com/inkwell-dev/website/internal/search"
	"github.com/inkwell-dev/website/internal/store"
	"github.com/inkwell-dev/website/internal/web/render"
	"github.com/inkwell-dev/website/internal/web/resume"
	"github.com/inkwell-dev/website/pkg/config"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArticles struct {
	articles  []ingestion.Article
	searchErr error
	lastLimit int
	lastOff   int
	searched  *search.Plan
}

func (f *fakeArticles) Get(ctx context.Context, id int64) (*ingestion.Article, error) {
	for i := range f.articles {
		if f.articles[i].ID == id {
			return &f.articles[i], nil
		}
	}
	return nil, apperrors.ErrArticleNotFound
}

func (f *fakeArticles) List(ctx context.Context, limit, offset int) ([]ingestion.Article, error) {
	f.lastLimit, f.lastOff = limit, offset
	if offset >= len(f.articles) {
		return []ingestion.Article{}, nil
	}
	end := min(offset+limit, len(f.articles))
	return f.articles[offset:end], nil
}

func (f *fakeArticles) Count(ctx context.Context) (int, error) {
	return len(f.articles), nil
}

func (f *fakeArticles) Search(ctx context.Context, plan *search.Plan, limit int) ([]ingestion.Article, error) {
	f.searched = plan
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []ingestion.Article
	for _, a := range f.articles {
		if strings.Contains(strings.ToLower(a.Title), plan.Terms[0]) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeArticles) All(ctx context.Context) ([]store.SitemapEntry, error) {
	out := make([]store.SitemapEntry, 0, len(f.articles))
	for _, a := range f.articles {
		out = append(out, store.SitemapEntry{ID: a.ID, PublishDate: a.PublishDate})
	}
	return out, nil
}

type fakeSubscribers struct {
	emails map[string]bool
	err    error
}

func (f *fakeSubscribers) Create(ctx context.Context, email string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.emails[email] {
		return false, nil
	}
	f.emails[email] = true
	return true, nil
}

func (f *fakeSubscribers) Delete(ctx context.Context, email string) error {
	if f.err != nil {
		return f.err
	}
	if !f.emails[email] {
		return apperrors.ErrSubscriberNotFound
	}
	delete(f.emails, email)
	return nil
}

func sampleArticles(n int) []ingestion.Article {
	out := make([]ingestion.Article, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, ingestion.Article{
			ID:          int64(i),
			Title:       "Article " + string(rune('A'+i-1)),
			Summary:     "summary",
			Body:        "# Heading\n\nBody of the article.",
			PublishDate: time.Date(2024, 1, i, 0, 0, 0, 0, time.UTC),
			Tags:        []string{"go"},
		})
	}
	return out
}

func newTestHandler(t *testing.T, articles *fakeArticles, subs *fakeSubscribers) *Handler {
	t.Helper()
	renderer, err := render.New(16)
	require.NoError(t, err)
	h, err := New(Deps{
		Articles:    articles,
		Subscribers: subs,
		Renderer:    renderer,
		Resume: &resume.Resume{
			Experience: []resume.Experience{{Employer: "Acme", Title: "Engineer", Period: resume.Period{From: "2020", To: "now"}}},
		},
	}, config.SiteConfig{Title: "Notes", BaseURL: "https://example.org/"}, config.BlogConfig{
		PerPage: 2, MaxPerPage: 3, LatestCount: 3, SearchLimit: 10,
	})
	require.NoError(t, err)
	return h
}

// mux mirrors the public routes the router mounts.
func testMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /blogs", h.Blogs)
	mux.HandleFunc("GET /blog/{id}", h.Blog)
	mux.HandleFunc("GET /resume", h.Resume)
	mux.HandleFunc("GET /radar", h.Radar)
	mux.HandleFunc("POST /search", h.Search)
	mux.HandleFunc("POST /subscribe", h.Subscribe)
	mux.HandleFunc("POST /unsubscribe", h.Unsubscribe)
	mux.HandleFunc("GET /robots.txt", h.RobotsTxt)
	mux.HandleFunc("GET /sitemap.xml", h.SitemapXML)
	mux.HandleFunc("/", h.NotFound)
	return mux
}

func get(t *testing.T, mux http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func postForm(t *testing.T, mux http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestIndexShowsLatest(t *testing.T) {
	articles := &fakeArticles{articles: sampleArticles(5)}
	mux := testMux(newTestHandler(t, articles, nil))

	rec := get(t, mux, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Article A")
	assert.Equal(t, 3, articles.lastLimit)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestBlogRendersMarkdown(t *testing.T) {
	mux := testMux(newTestHandler(t, &fakeArticles{articles: sampleArticles(1)}, nil))

	rec := get(t, mux, "/blog/1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1 id=\"heading\">Heading</h1>")
	assert.Contains(t, body, "January 1, 2024")
	assert.Contains(t, body, "2024-01-01")
}

func TestBlogErrors(t *testing.T) {
	mux := testMux(newTestHandler(t, &fakeArticles{articles: sampleArticles(1)}, nil))

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/blog/99").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/blog/abc").Code)
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/nowhere").Code)
}

func TestBlogsPagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", http.StatusOK, 2, 0},
		{"second page", "?page=2", http.StatusOK, 2, 2},
		{"clamped per page", "?page=1&per_page=100", http.StatusOK, 3, 0},
		{"zero page", "?page=0", http.StatusBadRequest, 0, 0},
		{"non numeric", "?page=two", http.StatusBadRequest, 0, 0},
		{"negative per page", "?per_page=-1", http.StatusBadRequest, 0, 0},
		{"offset overflow", "?page=9223372036854775807&per_page=3", http.StatusBadRequest, 0, 0},
		{"offset overflow default per page", "?page=4611686018427387904", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles := &fakeArticles{articles: sampleArticles(5)}
			mux := testMux(newTestHandler(t, articles, nil))

			rec := get(t, mux, "/blogs"+tt.query)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantLimit, articles.lastLimit)
				assert.Equal(t, tt.wantOffset, articles.lastOff)
			}
		})
	}
}

func TestBlogsParityOrder(t *testing.T) {
	articles := &fakeArticles{articles: sampleArticles(5)}
	mux := testMux(newTestHandler(t, articles, nil))

	body := get(t, mux, "/blogs?per_page=3").Body.String()
	a, b, c := strings.Index(body, "Article A"), strings.Index(body, "Article B"), strings.Index(body, "Article C")
	require.True(t, a >= 0 && b >= 0 && c >= 0)
	// evens first: A, C, then B
	assert.Less(t, a, c)
	assert.Less(t, c, b)
	assert.NotContains(t, body, "Article D")
	assert.Contains(t, body, "page=2")
	assert.NotContains(t, body, "page=0")
}

func TestBlogsLastPageHasNoNextLink(t *testing.T) {
	articles := &fakeArticles{articles: sampleArticles(5)}
	mux := testMux(newTestHandler(t, articles, nil))

	body := get(t, mux, "/blogs?page=2&per_page=3").Body.String()
	assert.Contains(t, body, "Article D")
	assert.Contains(t, body, "Article E")
	assert.Contains(t, body, "page=1")
	assert.NotContains(t, body, "page=3")
}

func TestSearch(t *testing.T) {
	articles := &fakeArticles{articles: sampleArticles(3)}
	mux := testMux(newTestHandler(t, articles, nil))

	rec := postForm(t, mux, "/search", url.Values{"search_string": {"article"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/blog/1")
	assert.NotContains(t, rec.Body.String(), "<html")
	require.NotNil(t, articles.searched)
	assert.Equal(t, []string{"article"}, articles.searched.Terms)
}

func TestSearchEmptyQuery(t *testing.T) {
	articles := &fakeArticles{articles: sampleArticles(3)}
	mux := testMux(newTestHandler(t, articles, nil))

	rec := postForm(t, mux, "/search", url.Values{"search_string": {"  the  "}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, articles.searched)
	assert.NotContains(t, rec.Body.String(), "/blog/")
}

func TestSearchErrorRendersEmpty(t *testing.T) {
	articles := &fakeArticles{articles: sampleArticles(3), searchErr: errors.New("db down")}
	mux := testMux(newTestHandler(t, articles, nil))

	rec := postForm(t, mux, "/search", url.Values{"search_string": {"article"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No articles match")
}

func TestSubscribe(t *testing.T) {
	subs := &fakeSubscribers{emails: map[string]bool{}}
	mux := testMux(newTestHandler(t, &fakeArticles{}, subs))

	rec := postForm(t, mux, "/subscribe", url.Values{"email": {"Reader@Example.org"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thanks for subscribing")
	assert.True(t, subs.emails["reader@example.org"])

	rec = postForm(t, mux, "/subscribe", url.Values{"email": {"reader@example.org"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already subscribed")
}

func TestSubscribeRejectsInvalid(t *testing.T) {
	subs := &fakeSubscribers{emails: map[string]bool{}}
	mux := testMux(newTestHandler(t, &fakeArticles{}, subs))

	for _, email := range []string{"", "nobody", "a@localhost", "Name <a@b.org>"} {
		rec := postForm(t, mux, "/subscribe", url.Values{"email": {email}})
		assert.Equal(t, http.StatusBadRequest, rec.Code, email)
	}
	assert.Empty(t, subs.emails)
}

func TestSubscribeStoreError(t *testing.T) {
	subs := &fakeSubscribers{emails: map[string]bool{}, err: errors.New("db down")}
	mux := testMux(newTestHandler(t, &fakeArticles{}, subs))

	rec := postForm(t, mux, "/subscribe", url.Values{"email": {"a@b.org"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnsubscribeHidesMembership(t *testing.T) {
	subs := &fakeSubscribers{emails: map[string]bool{"a@b.org": true}}
	mux := testMux(newTestHandler(t, &fakeArticles{}, subs))

	first := postForm(t, mux, "/unsubscribe", url.Values{"email": {"a@b.org"}})
	second := postForm(t, mux, "/unsubscribe", url.Values{"email": {"a@b.org"}})
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Empty(t, subs.emails)
}

func TestResumeAndRadar(t *testing.T) {
	mux := testMux(newTestHandler(t, &fakeArticles{}, nil))

	rec := get(t, mux, "/resume")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme")

	assert.Equal(t, http.StatusOK, get(t, mux, "/radar").Code)
}

func TestRobotsAndSitemap(t *testing.T) {
	mux := testMux(newTestHandler(t, &fakeArticles{articles: sampleArticles(2)}, nil))

	robots := get(t, mux, "/robots.txt")
	assert.Contains(t, robots.Body.String(), "Sitemap: https://example.org/sitemap.xml")

	sitemap := get(t, mux, "/sitemap.xml")
	require.Equal(t, http.StatusOK, sitemap.Code)
	body := sitemap.Body.String()
	assert.Contains(t, body, "<loc>https://example.org/blog/2</loc>")
	assert.Contains(t, body, "<lastmod>2024-01-02</lastmod>")
	assert.Contains(t, body, "<loc>https://example.org/radar</loc>")
}

func TestValidEmail(t *testing.T) {
	email, ok := validEmail("  Someone@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "someone@example.com", email)

	_, ok = validEmail(strings.Repeat("a", 250) + "@b.org")
	assert.False(t, ok)
}
