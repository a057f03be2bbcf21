// Package app builds the crawl's long-lived services from configuration and
// runs a crawl with the ops server alongside.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/api"
	"github.com/JakeFAU/trademark-crawler/internal/browser"
	"github.com/JakeFAU/trademark-crawler/internal/config"
	"github.com/JakeFAU/trademark-crawler/internal/engine"
	"github.com/JakeFAU/trademark-crawler/internal/forensics"
	"github.com/JakeFAU/trademark-crawler/internal/id"
	"github.com/JakeFAU/trademark-crawler/internal/metrics"
	"github.com/JakeFAU/trademark-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/trademark-crawler/internal/records"
	"github.com/JakeFAU/trademark-crawler/internal/records/clickhouse"
	recmemory "github.com/JakeFAU/trademark-crawler/internal/records/memory"
	"github.com/JakeFAU/trademark-crawler/internal/records/postgres"
	"github.com/JakeFAU/trademark-crawler/internal/records/pubsub"
	"github.com/JakeFAU/trademark-crawler/internal/seen"
	seenmemory "github.com/JakeFAU/trademark-crawler/internal/seen/memory"
	seenredis "github.com/JakeFAU/trademark-crawler/internal/seen/redis"
	"github.com/JakeFAU/trademark-crawler/internal/session"
	"github.com/JakeFAU/trademark-crawler/internal/storage"
	"github.com/JakeFAU/trademark-crawler/internal/storage/gcs"
	"github.com/JakeFAU/trademark-crawler/internal/storage/local"
	blobmemory "github.com/JakeFAU/trademark-crawler/internal/storage/memory"
)

// Option adjusts Build.
type Option func(*App)

// WithOpener replaces the chromedp driver as the page source.
func WithOpener(o engine.Opener) Option {
	return func(a *App) { a.open = o }
}

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	open      engine.Opener
	driver    *browser.Driver
	pool      *session.Pool
	forensics *forensics.Handler
	limiter   *ratelimit.Limiter
	seen      seen.Store
	checks    map[string]api.ReadinessCheck
	closers   []func() error
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{cfg: cfg, logger: logger, checks: map[string]api.ReadinessCheck{}}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Info("building application dependencies",
		zap.String("environment", cfg.Environment),
		zap.String("records_backend", cfg.Records.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("seen_backend", cfg.Seen.Backend),
	)

	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	blobs, err := a.setupStorage(ctx)
	if err != nil {
		return err
	}
	writer, err := a.setupWriter(ctx)
	if err != nil {
		return err
	}
	sinkOpts := []records.Option{records.WithLogger(a.logger)}
	if writer != nil {
		sinkOpts = append(sinkOpts, records.WithWriter(writer))
	}
	for table, dir := range map[records.Table]string{
		records.Navigations: a.cfg.Records.NavigationDir,
		records.Marks:       a.cfg.Records.MarkDir,
		records.Coverages:   a.cfg.Records.CoverageDir,
	} {
		store, err := localDir(dir)
		if err != nil {
			return fmt.Errorf("%s local dir: %w", table, err)
		}
		sinkOpts = append(sinkOpts, records.WithLocalDir(table, store))
	}

	mirrors, err := a.setupMirrors()
	if err != nil {
		return err
	}
	a.forensics = forensics.NewHandler(
		storage.NewArtifactSink(blobs, a.cfg.Environment, a.logger),
		records.NewSink(sinkOpts...),
		forensics.Config{StepTimeout: a.cfg.Crawl.CaptureStepTimeout, Mirrors: mirrors},
		a.logger,
	)

	if a.seen, err = a.setupSeen(ctx); err != nil {
		return err
	}

	a.limiter = ratelimit.New(ratelimit.Config{RequestsPerMinute: a.cfg.Crawl.RequestsPerMinute})
	a.pool = session.NewPool(id.NewGenerator(), proxyConfig(a.cfg.Proxy), a.cfg.Crawl.SessionUsage(), a.logger)
	if a.open == nil {
		a.driver, err = browser.NewDriver(browser.Config{
			Headless:          a.cfg.Crawl.Headless,
			UserAgent:         a.cfg.Crawl.UserAgent,
			NavigationTimeout: a.cfg.Crawl.NavigationTimeout,
			Incognito:         a.cfg.Crawl.Incognito,
			ExecPath:          a.cfg.Crawl.ChromePath,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("browser driver init failed: %w", err)
		}
		a.pool.OnRetire(a.driver)
		a.open = engine.DriverOpener(a.driver)
		a.closers = append(a.closers, func() error {
			a.driver.Close()
			return nil
		})
	}
	return nil
}

func (a *App) setupStorage(ctx context.Context) (storage.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.Bucket, Prefix: a.cfg.Storage.Prefix})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.Bucket))
		return store, nil
	case config.BackendLocal:
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.LocalBaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.LocalBaseDir))
		return store, nil
	case config.BackendMemory:
		a.logger.Info("using in-memory storage backend")
		return blobmemory.NewBlobStore(), nil
	default:
		a.logger.Warn("no artifact storage configured; captures will not be uploaded")
		return nil, nil
	}
}

func (a *App) setupWriter(ctx context.Context) (records.Writer, error) {
	switch a.cfg.Records.Backend {
	case config.BackendClickHouse:
		w, err := clickhouse.New(clickhouse.Config{
			URL:        a.cfg.ClickHouse.URL,
			Database:   a.cfg.ClickHouse.Database,
			User:       a.cfg.ClickHouse.User,
			Key:        a.cfg.ClickHouse.Key,
			MaxRetries: uint64(max(a.cfg.ClickHouse.MaxRetries, 0)),
			Timeout:    a.cfg.ClickHouse.Timeout,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("clickhouse writer init failed: %w", err)
		}
		a.closers = append(a.closers, w.Close)
		a.checks["clickhouse"] = w.Ping
		a.logger.Info("using ClickHouse record writer", zap.String("database", a.cfg.ClickHouse.Database))
		return w, nil
	case config.BackendPostgres:
		w, err := postgres.New(ctx, postgres.Config{
			DSN:             a.cfg.Postgres.DSN,
			Schema:          a.cfg.Postgres.Schema,
			MaxConns:        a.cfg.Postgres.MaxConns,
			MinConns:        a.cfg.Postgres.MinConns,
			MaxConnLifetime: a.cfg.Postgres.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres writer init failed: %w", err)
		}
		a.closers = append(a.closers, func() error {
			w.Close()
			return nil
		})
		if a.cfg.Postgres.Migrate {
			if err := w.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("postgres migrate failed: %w", err)
			}
		}
		a.checks["postgres"] = w.Ping
		a.logger.Info("using Postgres record writer", zap.String("schema", a.cfg.Postgres.Schema))
		return w, nil
	case config.BackendPubSub:
		w, err := pubsub.New(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.Topic)
		if err != nil {
			return nil, fmt.Errorf("pubsub writer init failed: %w", err)
		}
		a.closers = append(a.closers, w.Close)
		a.logger.Info("using Pub/Sub record writer",
			zap.String("project", a.cfg.PubSub.ProjectID), zap.String("topic", a.cfg.PubSub.Topic))
		return w, nil
	case config.BackendMemory:
		a.logger.Info("using in-memory record writer")
		return recmemory.NewWriter(), nil
	default:
		a.logger.Warn("no record writer configured; rows go to local dirs and logs only")
		return nil, nil
	}
}

func (a *App) setupMirrors() (forensics.Mirrors, error) {
	var m forensics.Mirrors
	targets := []struct {
		dir  string
		dest *storage.BlobStore
	}{
		{a.cfg.Artifacts.FailureScreenshotDir, &m.FailureScreenshots},
		{a.cfg.Artifacts.FailureContentDir, &m.FailureContent},
		{a.cfg.Artifacts.SuccessScreenshotDir, &m.SuccessScreenshots},
		{a.cfg.Artifacts.SuccessContentDir, &m.SuccessContent},
	}
	for _, t := range targets {
		store, err := localDir(t.dir)
		if err != nil {
			return m, fmt.Errorf("artifact mirror %s: %w", t.dir, err)
		}
		if store != nil {
			*t.dest = store
		}
	}
	return m, nil
}

func (a *App) setupSeen(ctx context.Context) (seen.Store, error) {
	switch a.cfg.Seen.Backend {
	case config.BackendRedis:
		store, err := seenredis.Connect(ctx, a.cfg.Seen.RedisAddr, a.cfg.Seen.RedisPassword, a.cfg.Seen.RedisDB, a.cfg.Seen.TTL)
		if err != nil {
			return nil, fmt.Errorf("redis seen store init failed: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.checks["redis"] = store.Ping
		a.logger.Info("using Redis seen store", zap.String("addr", a.cfg.Seen.RedisAddr))
		return store, nil
	case config.BackendMemory:
		return seenmemory.New(a.cfg.Seen.LRUSize, a.cfg.Seen.TTL), nil
	default:
		a.logger.Warn("seen store disabled; every request will be attempted")
		return seen.Nop{}, nil
	}
}

// Engine builds a crawl engine running handler over the app's services.
func (a *App) Engine(handler engine.Handler) (*engine.Engine, error) {
	e, err := engine.New(engine.Config{
		Concurrency:    a.cfg.Crawl.Concurrency,
		MaxAttempts:    a.cfg.Crawl.MaxAttempts,
		HandlerTimeout: a.cfg.Crawl.HandlerTimeout,
	}, engine.Deps{
		Open:      a.open,
		Handler:   handler,
		Forensics: a.forensics,
		Sessions:  a.pool,
		Limiter:   a.limiter,
		Seen:      a.seen,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("engine init failed: %w", err)
	}
	return e, nil
}

// Crawl runs handler over seeds with the ops server listening, and blocks
// until the crawl drains or ctx ends.
func (a *App) Crawl(ctx context.Context, handler engine.Handler, seeds ...*engine.Request) error {
	e, err := a.Engine(handler)
	if err != nil {
		return err
	}
	stop, err := a.serveOps()
	if err != nil {
		return err
	}
	defer stop()

	a.logger.Info("crawl started", zap.Int("seeds", len(seeds)))
	if err := e.Run(ctx, seeds...); err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}
	a.logger.Info("crawl finished")
	return nil
}

// OpsHandler serves the ops routes.
func (a *App) OpsHandler() http.Handler {
	return api.NewServer(a.logger.Named("api"), a.checks).Handler()
}

func (a *App) serveOps() (func(), error) {
	if a.cfg.Server.Port == 0 {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(a.cfg.Server.Port)))
	if err != nil {
		return nil, fmt.Errorf("ops server listen: %w", err)
	}
	srv := &http.Server{
		Handler:           a.OpsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("ops server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("ops server error", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("ops server shutdown error", zap.Error(err))
		}
	}, nil
}

// Close releases everything Build opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown finished with errors", zap.Error(err))
		return err
	}
	a.logger.Info("shutdown complete")
	return nil
}

func proxyConfig(c config.ProxyConfig) session.ProxyConfig {
	if !c.Enabled {
		return session.ProxyConfig{}
	}
	return session.ProxyConfig{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Template: c.URLTemplate,
	}
}

// localDir opens dir as a blob store; an empty dir yields nil.
func localDir(dir string) (storage.BlobStore, error) {
	if dir == "" {
		return nil, nil
	}
	store, err := local.New(local.Config{BaseDir: dir})
	if err != nil {
		return nil, err
	}
	return store, nil
}
