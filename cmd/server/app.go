package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/phrazzld/jd-tailor/internal/cache"
	"github.com/phrazzld/jd-tailor/internal/config"
	"github.com/phrazzld/jd-tailor/internal/dashboard"
	"github.com/phrazzld/jd-tailor/internal/events"
	"github.com/phrazzld/jd-tailor/internal/platform/gemini"
	"github.com/phrazzld/jd-tailor/internal/skills"
	"github.com/phrazzld/jd-tailor/internal/task"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// application holds the shared dependencies of the server. Exactly one cache
// store and one task runner exist per process; everything else receives them
// through its constructor.
type application struct {
	config *config.Config
	logger *slog.Logger

	cache      *cache.Store
	taskRunner *task.Runner
	emitter    *events.InMemoryEventEmitter
	recorder   *dashboard.Recorder
	aggregator *dashboard.Aggregator
	janitor    *dashboard.Janitor
	collector  *dashboard.Collector

	llm        *gemini.Client
	llmEnabled bool
	extractor  *skills.Extractor
}

// appOption customizes newApplication. Tests use it to replace the LLM.
type appOption func(*application)

// withLLM replaces the Gemini client.
func withLLM(client *gemini.Client) appOption {
	return func(app *application) {
		app.llm = client
		app.llmEnabled = true
	}
}

// newApplication creates the application with all dependencies wired. The
// task runner is started; Run serves HTTP and shuts everything down.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(app)
	}

	var err error
	app.cache, err = cache.NewStore(cache.Config{
		Dir:           cfg.Cache.Dir,
		TTL:           cfg.Cache.TTL,
		NamespaceTTLs: cfg.Cache.NamespaceTTLs,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	logger.Info("cache initialized", "dir", app.cache.Dir(), "ttl", cfg.Cache.TTL.String())

	if app.llm == nil {
		if err := app.setupLLM(ctx); err != nil {
			return nil, err
		}
	}

	app.recorder = dashboard.NewRecorder()
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(app.recorder)

	app.taskRunner = task.NewRunner(task.RunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
	}, logger, task.WithEventEmitter(app.emitter))

	app.extractor = skills.NewExtractor(app.llm, app.cache, skills.Config{
		SkillCap: cfg.LLM.SkillCap,
		Compress: cfg.Cache.Compress,
	}, logger, skills.WithObserver(app.recorder))

	app.aggregator = dashboard.NewAggregator(app.cache, app.taskRunner, app.recorder,
		dashboard.WithHistory(dashboard.NewHistory(cfg.Metrics.HistorySize)))
	app.collector = dashboard.NewCollector(app.aggregator, cfg.Metrics.SampleInterval, logger)
	app.janitor = dashboard.NewJanitor(app.aggregator, cfg.Task.CleanupInterval, cfg.Task.Retention, logger)

	app.taskRunner.Start()
	logger.Info("application initialized",
		"llm_enabled", app.llmEnabled,
		"model", app.llm.Model())
	return app, nil
}

// setupLLM creates the Gemini client, or a disabled one when no API key is
// configured so the rest of the API keeps working.
func (app *application) setupLLM(ctx context.Context) error {
	cfg := app.config.LLM
	if cfg.GeminiAPIKey == "" {
		app.logger.Warn("no Gemini API key configured, skills extraction is disabled")
		app.llm = gemini.NewDisabledClient(app.logger, cfg)
		return nil
	}

	client, err := gemini.NewClient(ctx, app.logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	app.llm = client
	app.llmEnabled = true
	return nil
}

// Run serves HTTP and runs the janitor and the metrics collector until ctx ends, then shuts the server
// and the task runner down within the configured timeout.
func (app *application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    net.JoinHostPort(app.config.Server.Host, strconv.Itoa(app.config.Server.Port)),
		Handler: app.setupRouter(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.janitor.Run(gctx)
	})

	g.Go(func() error {
		return app.collector.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")
		return app.shutdown(srv)
	})

	return g.Wait()
}

// shutdown stops accepting requests, then stops the task runner, giving
// running tasks until the shutdown timeout to finish.
func (app *application) shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	var errs error
	if err := srv.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}
	errs = multierr.Append(errs, app.taskRunner.Shutdown(ctx))

	if errs != nil {
		app.logger.Error("shutdown completed with errors", "error", errs)
		return errs
	}
	app.logger.Info("application shutdown completed")
	return nil
}
