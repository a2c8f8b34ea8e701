package handler

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/inkwell-dev/website/internal/ingestion"
	"github.com/inkwell-dev/website/internal/search"
	"github.com/inkwell-dev/website/internal/web/cache"
	"github.com/inkwell-dev/website/internal/web/layout"
	apperrors "github.com/inkwell-dev/website/pkg/errors"
	"github.com/inkwell-dev/website/pkg/logger"
)

const latestKey = "blog:latest"

// Index renders the landing page with the most recent articles.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	latest, err := cache.Fetch(r.Context(), h.deps.Cache, latestKey, func(ctx context.Context) ([]ingestion.Article, error) {
		return h.deps.Articles.List(ctx, h.blog.LatestCount, 0)
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "index", h.site.Title, map[string]any{
		"Latest": latest,
	})
}

// listing is the cached data behind one page of the blog index.
type listing struct {
	Articles []ingestion.Article `json:"articles"`
	Total    int                 `json:"total"`
}

// Pagination describes the current index page for the template.
type Pagination struct {
	Page     int
	PerPage  int
	Total    int
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
}

// parsePagination reads page and per_page. Non-numeric or non-positive
// values are rejected; per_page above the configured maximum is clamped.
// A page whose offset would overflow int is rejected.
func (h *Handler) parsePagination(r *http.Request) (page, perPage int, err error) {
	page, perPage = 1, h.blog.PerPage
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "page must be a positive integer, got %q", v)
		}
	}
	if v := q.Get("per_page"); v != "" {
		perPage, err = strconv.Atoi(v)
		if err != nil || perPage < 1 {
			return 0, 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "per_page must be a positive integer, got %q", v)
		}
	}
	perPage = min(perPage, h.blog.MaxPerPage)
	if page > math.MaxInt/perPage {
		return 0, 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "page %d is out of range", page)
	}
	return page, perPage, nil
}

// Blogs renders one page of the article index. Cards are parity-reordered
// for the two-column layout.
func (h *Handler) Blogs(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := h.parsePagination(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	offset := (page - 1) * perPage

	data, err := cache.Fetch(r.Context(), h.deps.Cache, cache.ListKey(page, perPage), func(ctx context.Context) (listing, error) {
		articles, err := h.deps.Articles.List(ctx, perPage, offset)
		if err != nil {
			return listing{}, err
		}
		total, err := h.deps.Articles.Count(ctx)
		if err != nil {
			return listing{}, err
		}
		return listing{Articles: articles, Total: total}, nil
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	pagination := Pagination{
		Page:     page,
		PerPage:  perPage,
		Total:    data.Total,
		HasPrev:  page > 1,
		HasNext:  offset+len(data.Articles) < data.Total,
		PrevPage: page - 1,
		NextPage: page + 1,
	}
	h.render(w, r, http.StatusOK, "blogs", "Blog", map[string]any{
		"Articles":   layout.Reorder(data.Articles),
		"Pagination": pagination,
	})
}

// Blog renders a single article.
func (h *Handler) Blog(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.renderError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid article id %q", raw))
		return
	}

	art, err := h.deps.Articles.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	body, err := h.deps.Renderer.Article(art.ID, art.Body)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "blog", art.Title, map[string]any{
		"Article": art,
		"Body":    body,
	})
}

// Search renders the results fragment for the search form.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	plan := search.Parse(r.PostFormValue("search_string"))
	if plan.Empty() {
		h.renderFragment(w, r, http.StatusOK, "search_results", map[string]any{
			"Articles": []ingestion.Article{},
			"Query":    plan.Raw,
		})
		return
	}

	limit := h.blog.SearchLimit
	results, err := cache.Fetch(r.Context(), h.deps.Cache, cache.SearchKey(plan.Key(), limit), func(ctx context.Context) ([]ingestion.Article, error) {
		return h.deps.Articles.Search(ctx, plan, limit)
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("search failed", "query", plan.Raw, "error", err)
		results = []ingestion.Article{}
	}
	h.renderFragment(w, r, http.StatusOK, "search_results", map[string]any{
		"Articles": results,
		"Query":    plan.Raw,
	})
}

// Resume renders the résumé page.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "resume", "Résumé", h.deps.Resume)
}

// Radar renders the static technology radar page.
func (h *Handler) Radar(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "radar", "Tech radar", nil)
}

// NotFound renders the 404 page for unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, apperrors.ErrArticleNotFound)
}

const maxEmailLen = 254

// validEmail accepts a bare address such as "reader@example.com". Display
// names and angle brackets are refused.
func validEmail(raw string) (string, bool) {
	email := strings.TrimSpace(raw)
	if email == "" || len(email) > maxEmailLen {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", false
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") {
		return "", false
	}
	return strings.ToLower(email), true
}

func (h *Handler) countSubscription(result string) {
	if h.deps.Metrics != nil {
		h.deps.Metrics.SubscriptionsTotal.WithLabelValues(result).Inc()
	}
}

// Subscribe registers the posted email for new-article notifications.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := validEmail(r.PostFormValue("email"))
	if !ok {
		h.countSubscription("invalid")
		h.renderFragment(w, r, http.StatusBadRequest, "subscribe_result", map[string]any{
			"OK":      false,
			"Message": "Please enter a valid email address.",
		})
		return
	}

	created, err := h.deps.Subscribers.Create(r.Context(), email)
	if err != nil {
		h.countSubscription("error")
		logger.FromContext(r.Context()).Error("subscribe failed", "error", err)
		h.renderFragment(w, r, http.StatusInternalServerError, "subscribe_result", map[string]any{
			"OK":      false,
			"Message": "Something went wrong, please try again later.",
		})
		return
	}

	message := "Thanks for subscribing!"
	result := "created"
	if !created {
		message = "You are already subscribed."
		result = "existing"
	}
	h.countSubscription(result)
	h.renderFragment(w, r, http.StatusOK, "subscribe_result", map[string]any{
		"OK":      true,
		"Message": message,
	})
}

// Unsubscribe removes the posted email. The response does not reveal whether
// the address was subscribed.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := validEmail(r.PostFormValue("email"))
	if !ok {
		h.renderFragment(w, r, http.StatusBadRequest, "subscribe_result", map[string]any{
			"OK":      false,
			"Message": "Please enter a valid email address.",
		})
		return
	}
	err := h.deps.Subscribers.Delete(r.Context(), email)
	if err != nil && !errors.Is(err, apperrors.ErrSubscriberNotFound) {
		logger.FromContext(r.Context()).Error("unsubscribe failed", "error", err)
		h.renderFragment(w, r, http.StatusInternalServerError, "subscribe_result", map[string]any{
			"OK":      false,
			"Message": "Something went wrong, please try again later.",
		})
		return
	}
	h.renderFragment(w, r, http.StatusOK, "subscribe_result", map[string]any{
		"OK":      true,
		"Message": "You have been unsubscribed.",
	})
}

// RobotsTxt allows all crawlers and points them at the sitemap.
func (h *Handler) RobotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", strings.TrimRight(h.site.BaseURL, "/"))
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// SitemapXML lists the static pages and every published article.
func (h *Handler) SitemapXML(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Articles.All(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("sitemap failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	base := strings.TrimRight(h.site.BaseURL, "/")
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, path := range []string{"/", "/blogs", "/resume", "/radar"} {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + path})
	}
	for _, e := range entries {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     fmt.Sprintf("%s/blog/%d", base, e.ID),
			LastMod: e.PublishDate.Format(ingestion.DateLayout),
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	w.Write(out)
}
