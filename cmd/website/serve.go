package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ingesthandler "github.com/inkwell-dev/website/internal/ingestion/handler"
	"github.com/inkwell-dev/website/internal/ingestion/watcher"
	"github.com/inkwell-dev/website/internal/store"
	"github.com/inkwell-dev/website/internal/web/cache"
	"github.com/inkwell-dev/website/internal/web/handler"
	"github.com/inkwell-dev/website/internal/web/ratelimit"
	"github.com/inkwell-dev/website/internal/web/render"
	"github.com/inkwell-dev/website/internal/web/resume"
	"github.com/inkwell-dev/website/internal/web/router"
	"github.com/inkwell-dev/website/pkg/health"
	"github.com/inkwell-dev/website/pkg/metrics"
	"github.com/inkwell-dev/website/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var ingestOnStart, watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the website",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ingest-on-start") {
				cfg.Articles.IngestOnStart = ingestOnStart
			}
			if cmd.Flags().Changed("watch") {
				cfg.Articles.Watch = watch
			}
			ctx := cmd.Context()
			slog.Info("starting website", "port", cfg.Server.Port)

			m := metrics.New(prometheus.DefaultRegisterer)
			if cfg.Metrics.Enabled {
				shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
				defer shutdownMetrics(context.Background())
			}

			db, err := connectPostgres(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			checker := health.NewChecker()
			checker.Register("postgres", health.PingCheck(db, false))

			var pages *cache.PageCache
			if cfg.Redis.Enabled {
				rdb, err := redis.NewClient(cfg.Redis)
				if err != nil {
					// the site still serves without a cache
					slog.Warn("redis unavailable, page cache disabled", "error", err)
				} else {
					defer rdb.Close()
					checker.Register("redis", health.PingCheck(rdb, true))
					pages = cache.New(rdb, cfg.Redis.CacheTTL, m)
					slog.Info("page cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
				}
			}

			articles := store.NewArticleStore(db)
			p, err := buildPipeline(ctx, cfg, articles, m)
			if err != nil {
				return err
			}
			defer p.Close()
			if p.guard != nil {
				checker.Register("summarizer", p.guard.Check)
			}
			runner := invalidatingRunner{driver: p.driver, cache: pages}

			renderer, err := render.New(cfg.Blog.RenderCache)
			if err != nil {
				return err
			}
			cv, err := resume.Load(cfg.Site.ResumePath)
			if err != nil {
				return err
			}
			site, err := handler.New(handler.Deps{
				Articles:    articles,
				Subscribers: store.NewSubscriberStore(db),
				Renderer:    renderer,
				Cache:       pages,
				Resume:      cv,
				Metrics:     m,
			}, cfg.Site, cfg.Blog)
			if err != nil {
				return err
			}

			limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
			defer limiter.Close()

			opts := router.Options{
				AssetsDir:      cfg.Site.AssetsDir,
				RequestTimeout: cfg.Server.RequestTimeout,
				Limiter:        limiter,
				Health:         checker,
				Metrics:        m,
			}
			if cfg.Admin.Token != "" {
				opts.Ingest = ingesthandler.New(runner, cfg.Admin.Token)
			}

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      router.New(site, opts),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			var tasks []func(ctx context.Context)
			if cfg.Articles.IngestOnStart {
				tasks = append(tasks, func(ctx context.Context) {
					if _, err := runner.Run(ctx); err != nil && ctx.Err() == nil {
						slog.Error("startup ingestion failed", "error", err)
					}
				})
			}
			if cfg.Articles.Watch {
				w, err := watcher.New(cfg.Articles, func(ctx context.Context) {
					if _, err := runner.Run(ctx); err != nil && ctx.Err() == nil {
						slog.Error("watch-triggered ingestion failed", "error", err)
					}
				})
				if err != nil {
					return err
				}
				tasks = append(tasks, func(ctx context.Context) {
					if err := w.Run(ctx); err != nil {
						slog.Error("article watcher stopped", "error", err)
					}
				})
			}

			return runServer(ctx, server, cfg.Server.ShutdownTimeout, tasks...)
		},
	}

	cmd.Flags().BoolVar(&ingestOnStart, "ingest-on-start", false, "run the ingestion pipeline once at startup")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run ingestion when article sources change")
	return cmd
}

// runServer serves until ctx is done or the listener fails. Background tasks
// run under a context that is cancelled in both cases, and runServer returns
// only after they and the shutdown have finished.
func runServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, tasks ...func(ctx context.Context)) error {
	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task(runCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-runCtx.Done()
		if ctx.Err() != nil {
			slog.Info("shutdown signal received")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("website listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	slog.Info("website stopped")
	return nil
}
