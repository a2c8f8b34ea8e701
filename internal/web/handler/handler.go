// Package handler serves the public website: landing page, blog index,
// article pages, search, résumé, subscriptions, robots.txt and sitemap.xml.
package handler

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell-dev/website/internal/ingestion"
	"github.com/inkwell-dev/website/internal/search"
	"github.com/inkwell-dev/website/internal/store"
	"github.com/inkwell-dev/website/internal/web/cache"
	"github.com/inkwell-dev/website/internal/web/render"
	"github.com/inkwell-dev/website/internal/web/resume"
	"github.com/inkwell-dev/website/pkg/config"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/inkwell-dev/website/pkg/logger"
	"github.com/inkwell-dev/website/pkg/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// ArticleReader is the read side of the article store.
type ArticleReader interface {
	Get(ctx context.Context, id int64) (*ingestion.Article, error)
	List(ctx context.Context, limit, offset int) ([]ingestion.Article, error)
	Count(ctx context.Context) (int, error)
	Search(ctx context.Context, plan *search.Plan, limit int) ([]ingestion.Article, error)
	All(ctx context.Context) ([]store.SitemapEntry, error)
}

// Subscribers manages newsletter sign-ups.
type Subscribers interface {
	Create(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, email string) error
}

// Deps are the collaborators of a Handler. Cache and Metrics may be nil.
type Deps struct {
	Articles    ArticleReader
	Subscribers Subscribers
	Renderer    *render.Renderer
	Cache       *cache.PageCache
	Resume      *resume.Resume
	Metrics     *metrics.Metrics
}

type Handler struct {
	deps   Deps
	site   config.SiteConfig
	blog   config.BlogConfig
	pages  map[string]*template.Template
	logger *slog.Logger
}

// full pages share base.html; fragments are swapped into existing pages.
var (
	pageNames     = []string{"index", "blogs", "blog", "resume", "radar", "error"}
	fragmentNames = []string{"search_results", "subscribe_result"}
)

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("January 2, 2006") },
	"isodate": func(t time.Time) string {
		return t.Format(ingestion.DateLayout)
	},
	"join": strings.Join,
}

func New(deps Deps, site config.SiteConfig, blog config.BlogConfig) (*Handler, error) {
	pages := make(map[string]*template.Template, len(pageNames)+len(fragmentNames))
	for _, name := range pageNames {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS,
			"templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	for _, name := range fragmentNames {
		tmpl, err := template.New(name+".html").Funcs(funcs).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Handler{
		deps:   deps,
		site:   site,
		blog:   blog,
		pages:  pages,
		logger: slog.Default().With("component", "web-handler"),
	}, nil
}

// pageData is passed to every full page.
type pageData struct {
	Site  config.SiteConfig
	Title string
	Data  any
}

// render executes a full page inside base.html.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	h.execute(w, r, status, name, pageData{Site: h.site, Title: title, Data: data})
}

// renderFragment executes a partial that the browser swaps into the
// current page.
func (h *Handler) renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	h.execute(w, r, status, name, data)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, status int, name string, payload any) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.logger.Error("unknown template", "name", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		logger.FromContext(r.Context()).Error("failed to render template", "name", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write response", "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.render(w, r, status, "error", http.StatusText(status), map[string]any{
		"Status":  status,
		"Message": http.StatusText(status),
	})
}
