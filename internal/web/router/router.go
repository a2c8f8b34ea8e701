// Package router wires up the website routes and applies the middleware
// chain (RequestID → AccessLog → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	ingesthandler "github.com/inkwell-dev/website/internal/ingestion/handler"
	"github.com/inkwell-dev/website/internal/web/handler"
	"github.com/inkwell-dev/website/internal/web/ratelimit"
	"github.com/inkwell-dev/website/pkg/health"
	"github.com/inkwell-dev/website/pkg/metrics"
	pkgmw "github.com/inkwell-dev/website/pkg/middleware"
)

// Options carries the optional pieces of the route table. A nil Ingest
// leaves the admin endpoint unmounted; a nil Limiter disables rate limiting.
type Options struct {
	AssetsDir      string
	RequestTimeout time.Duration
	Limiter        *ratelimit.Limiter
	Ingest         *ingesthandler.Handler
	Health         *health.Checker
	Metrics        *metrics.Metrics
}

// New builds the full website handler.
//
// Route table:
//
//	GET    /                 → landing page
//	GET    /blogs            → paginated article index
//	GET    /blog/{id}        → article page
//	GET    /resume           → résumé
//	GET    /radar            → technology radar
//	POST   /search           → search results fragment   (rate limited)
//	POST   /subscribe        → subscription fragment     (rate limited)
//	POST   /unsubscribe      → subscription fragment     (rate limited)
//	GET    /robots.txt
//	GET    /sitemap.xml
//	GET    /assets/...       → static files
//	GET    /health/live
//	GET    /health/ready
//	POST   /admin/ingest     → on-demand ingestion run   (no request timeout)
func New(h *handler.Handler, opts Options) http.Handler {
	site := http.NewServeMux()

	site.HandleFunc("GET /{$}", h.Index)
	site.HandleFunc("GET /blogs", h.Blogs)
	site.HandleFunc("GET /blog/{id}", h.Blog)
	site.HandleFunc("GET /resume", h.Resume)
	site.HandleFunc("GET /radar", h.Radar)
	site.HandleFunc("GET /robots.txt", h.RobotsTxt)
	site.HandleFunc("GET /sitemap.xml", h.SitemapXML)

	forms := func(fn http.HandlerFunc) http.Handler {
		if opts.Limiter == nil {
			return fn
		}
		return ratelimit.Middleware(opts.Limiter)(fn)
	}
	site.Handle("POST /search", forms(h.Search))
	site.Handle("POST /subscribe", forms(h.Subscribe))
	site.Handle("POST /unsubscribe", forms(h.Unsubscribe))

	if opts.AssetsDir != "" {
		site.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(opts.AssetsDir))))
	}
	if opts.Health != nil {
		site.HandleFunc("GET /health/live", opts.Health.LiveHandler())
		site.HandleFunc("GET /health/ready", opts.Health.ReadyHandler())
	}
	site.HandleFunc("/", h.NotFound)

	// the ingestion run can outlast the request timeout
	root := http.NewServeMux()
	root.Handle("/", pkgmw.Timeout(opts.RequestTimeout)(site))
	if opts.Ingest != nil {
		root.HandleFunc("POST /admin/ingest", opts.Ingest.Ingest)
	}

	// request → RequestID → AccessLog → Metrics → root
	var chain http.Handler = root
	if opts.Metrics != nil {
		chain = pkgmw.Metrics(opts.Metrics)(chain)
	}
	chain = pkgmw.AccessLog(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
