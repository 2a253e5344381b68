package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"imdb-titles/internal/adapter/httpapi"
	"imdb-titles/internal/adapter/scheduler"
	"imdb-titles/internal/config"
	"imdb-titles/internal/dataset"
	"imdb-titles/internal/platform/httpclient"
	"imdb-titles/internal/platform/logger"
	"imdb-titles/internal/platform/rediscache"
	"imdb-titles/internal/store/cached"
	"imdb-titles/internal/title"
	"imdb-titles/pkg/retry"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "imdb-titles",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Close flushes the log file.
func (a *App) Close() error {
	return logger.Close(a.log)
}

// Run serves the HTTP API and, when DATASET_SCHEDULE is set, refreshes the
// dataset on that schedule. It returns after SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting", slog.String("store", a.cfg.Store.Driver))

	st, err := a.openStorage(ctx, false)
	if err != nil {
		return err
	}
	defer st.close()

	repo := st.repo
	if cache := a.openCache(ctx); cache != nil {
		defer cache.Close()
		repo = cached.New(st.repo, cache, a.cfg.Cache.TTL, a.log)
	}

	sched := scheduler.New(ctx, scheduler.Config{Logger: a.log})
	if a.cfg.Dataset.Schedule != "" {
		im := a.importer(repo)
		_, err := sched.AddCronJob(a.cfg.Dataset.Schedule, scheduler.RefreshDataset(im, a.opener(), a.cfg.Dataset.Source), scheduler.JobOptions{
			Name:          "dataset-refresh",
			OverlapPolicy: scheduler.SkipIfRunning,
		})
		if err != nil {
			return err
		}
	}
	if st.pool != nil {
		sched.AddTickerJob(time.Minute, scheduler.LogPoolStats(st.pool, a.log), scheduler.JobOptions{Name: "pool-stats"})
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), httpapi.ShutdownTimeout)
		defer cancel()
		if err := sched.StopContext(stopCtx); err != nil {
			a.log.Warn("scheduler stop", slog.Any("error", err))
		}
	}()

	if a.cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.NewHandler(repo, st.health, a.log))

	if err := httpapi.Serve(ctx, a.cfg.HTTP.Addr, router, a.log); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.log.Info("stopped")
	return nil
}

// ImportOptions selects what Import loads.
type ImportOptions struct {
	// Source overrides DATASET_SOURCE.
	Source string
	// Fixtures is a YAML fixture file loaded instead of the dataset.
	Fixtures string
	// Reset drops and recreates the schema first.
	Reset bool
}

// Import runs one import and returns its stats. It stops early on SIGINT or
// SIGTERM.
func (a *App) Import(opts ImportOptions) (dataset.Stats, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := a.openStorage(ctx, opts.Reset)
	if err != nil {
		return dataset.Stats{}, err
	}
	defer st.close()

	repo := st.repo
	if cache := a.openCache(ctx); cache != nil {
		defer cache.Close()
		repo = cached.New(st.repo, cache, a.cfg.Cache.TTL, a.log)
	}
	im := a.importer(repo)

	if opts.Fixtures != "" {
		records, err := dataset.LoadFixtures(opts.Fixtures)
		if err != nil {
			return dataset.Stats{}, err
		}
		return im.ImportRecords(ctx, records)
	}

	source := opts.Source
	if source == "" {
		source = a.cfg.Dataset.Source
	}
	a.log.Info("importing dataset", slog.String("source", source))
	return im.ImportSource(ctx, a.opener(), source)
}

// openCache connects to Redis when configured. A failed connection is logged
// and the service runs uncached.
func (a *App) openCache(ctx context.Context) *rediscache.Cache {
	if a.cfg.Redis.Addr == "" {
		return nil
	}

	rc := rediscache.DefaultConfig()
	rc.Addr = a.cfg.Redis.Addr
	rc.Password = a.cfg.Redis.Password
	rc.DB = a.cfg.Redis.DB

	cache, err := rediscache.New(ctx, rc)
	if err != nil {
		a.log.Warn("redis unavailable, running without cache", slog.Any("error", err))
		return nil
	}
	return cache
}

func (a *App) importer(repo title.Repository) *dataset.Importer {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 5
	return dataset.NewImporter(repo,
		dataset.WithBatchSize(a.cfg.Dataset.BatchSize),
		dataset.WithRetry(cfg),
		dataset.WithLogger(a.log),
	)
}

func (a *App) opener() *dataset.Opener {
	return dataset.NewOpener(httpclient.New(
		httpclient.WithLogger(a.log.With(slog.String("component", "httpclient"))),
		httpclient.WithTimeout(0),
		httpclient.WithRetries(3, time.Second),
		httpclient.WithMaxBackoff(30*time.Second),
		httpclient.WithHeaders(map[string]string{"User-Agent": "imdb-titles"}),
	))
}
