// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/iisdela/pubsearch/internal/api"
	"github.com/iisdela/pubsearch/internal/catalog"
	"github.com/iisdela/pubsearch/internal/keepalive"
	"github.com/iisdela/pubsearch/internal/mcpserver"
	"github.com/iisdela/pubsearch/internal/metrics"
	"github.com/iisdela/pubsearch/internal/pubservice"
	"github.com/iisdela/pubsearch/internal/snapshot"
	"github.com/iisdela/pubsearch/internal/source"
	"github.com/iisdela/pubsearch/internal/sse"
	"github.com/iisdela/pubsearch/internal/web"
)

// core holds the components shared by every command.
type core struct {
	cfg     *Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	svc     *pubservice.Service
	closers []func() error
}

func (c *core) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(out io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// newProvider builds the configured source provider.
func newProvider(ctx context.Context, cfg SourceConfig) (source.Provider, error) {
	switch cfg.Kind {
	case SourceDir:
		if err := os.MkdirAll(cfg.Dir.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return source.NewDir(cfg.Dir.Path)
	case SourceGSheets:
		return source.NewGSheets(cfg.GSheets.BaseURL, cfg.GSheets.SpreadsheetID, cfg.GSheets.Timeout), nil
	case SourceS3:
		return source.NewS3(ctx, source.S3Options{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKeyID,
			SecretKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// newCore opens the snapshot store, wires the catalog and service and
// performs the initial load. n may be nil.
func newCore(ctx context.Context, app *application, n pubservice.Notifier) (*core, error) {
	cfg := app.config
	logger := newLogger(app.logOut, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", cfg.Source.Kind),
		slog.Bool("snapshot", cfg.Snapshot.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.String("version", app.version))

	c := &core{cfg: cfg, logger: logger, metrics: metrics.New()}

	src, err := newProvider(ctx, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("init source: %w", err)
	}

	var store snapshot.Store
	if cfg.Snapshot.Enabled {
		db, err := snapshot.Open(cfg.Snapshot.Path)
		if err != nil {
			return nil, fmt.Errorf("init snapshot: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		store = db
	}

	cat := catalog.New(src, store, catalog.Tables{
		Publications: cfg.Source.PublicationsTable,
		Authors:      cfg.Source.AuthorsTable,
	}, logger)
	c.svc = pubservice.NewService(cat, c.metrics, n, logger)

	if _, err := c.svc.Reload(ctx); err != nil {
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}
	return c, nil
}

// newPinger builds the configured keep-alive pinger and its cleanup.
func newPinger(cfg KeepaliveConfig) (keepalive.Pinger, func() error) {
	if cfg.Method == KeepaliveBrowser {
		p := keepalive.NewBrowserPinger(cfg.ChromePath, cfg.Wait)
		return p, p.Close
	}
	return keepalive.NewHTTPPinger(cfg.Timeout), func() error { return nil }
}

func jsonStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := newCore(ctx, app, broker)
	if err != nil {
		return err
	}
	defer c.close()
	logger := c.logger
	c.metrics.TrackStreams(broker.ClientCount)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		jsonStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if _, err := c.svc.Dataset(r.Context()); err != nil {
			jsonStatus(w, http.StatusServiceUnavailable, "loading")
			return
		}
		jsonStatus(w, http.StatusOK, "ok")
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	// The page subscribes without credentials, EventSource cannot send headers.
	r.Get("/events", broker.ServeHTTP)
	r.Handle("/metrics", c.metrics.Handler())

	pages := web.NewHandler(c.svc, logger)
	r.Get("/", pages.Index)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := cron.New(cron.WithParser(cronParser))
	if cfg.Refresh.Schedule != "" {
		if _, err := scheduler.AddFunc(cfg.Refresh.Schedule, func() {
			if _, err := c.svc.Reload(ctx); err != nil {
				logger.Warn("scheduled reload failed", slog.String("error", err.Error()))
			}
		}); err != nil {
			return fmt.Errorf("schedule refresh: %w", err)
		}
	}
	if cfg.Keepalive.Schedule != "" && len(cfg.Keepalive.URLs) > 0 {
		pinger, closePinger := newPinger(cfg.Keepalive)
		c.closers = append(c.closers, closePinger)
		runner := keepalive.NewRunner(pinger, cfg.Keepalive.URLs, cfg.Keepalive.LogPath, logger, c.metrics)
		if _, err := scheduler.AddFunc(cfg.Keepalive.Schedule, func() {
			if err := runner.Run(ctx); err != nil {
				logger.Warn("keepalive pass failed", slog.String("error", err.Error()))
			}
		}); err != nil {
			return fmt.Errorf("schedule keepalive: %w", err)
		}
	}
	scheduler.Start()

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload on local edits to the source directory.
	if cfg.Source.Kind == SourceDir && cfg.Source.Dir.Watch {
		g.Go(func() error {
			err := snapshot.Watch(gCtx, cfg.Source.Dir.Path, cfg.Source.Tables(), logger, func(tables []string) {
				broker.PublishSourceChange(tables)
				if _, err := c.svc.Reload(gCtx); err != nil {
					logger.Warn("reload after change failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		<-scheduler.Stop().Done()
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the search tools over stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	c, err := newCore(ctx, app, nil)
	if err != nil {
		return err
	}
	defer c.close()

	c.logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.svc, app.version).ServeStdio()
}

// RunWakeup performs one keep-alive pass over the configured URLs.
func RunWakeup(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config.Keepalive
	logger := newLogger(app.logOut, app.config.App.LogLevel)

	if len(cfg.URLs) == 0 {
		return fmt.Errorf("keepalive: no urls configured")
	}

	pinger, closePinger := newPinger(cfg)
	defer func() {
		if err := closePinger(); err != nil {
			logger.Warn("close pinger failed", slog.String("error", err.Error()))
		}
	}()

	return keepalive.NewRunner(pinger, cfg.URLs, cfg.LogPath, logger, nil).Run(ctx)
}
