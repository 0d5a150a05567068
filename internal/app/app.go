package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
	"github.com/gokatarajesh/learning-platform/internal/assessment/gateway"
	"github.com/gokatarajesh/learning-platform/internal/assessment/gemini"
	"github.com/gokatarajesh/learning-platform/internal/auth"
	"github.com/gokatarajesh/learning-platform/internal/auth/jwt"
	"github.com/gokatarajesh/learning-platform/internal/config"
	"github.com/gokatarajesh/learning-platform/internal/content"
	"github.com/gokatarajesh/learning-platform/internal/jobs"
	"github.com/gokatarajesh/learning-platform/internal/logging"
	"github.com/gokatarajesh/learning-platform/internal/retry"
	"github.com/gokatarajesh/learning-platform/internal/server"
	ws "github.com/gokatarajesh/learning-platform/pkg/http/ws"
)

type backgroundTask struct {
	name string
	run  func(ctx context.Context) error
}

// Application aggregates shared infrastructure (DB, Redis, HTTP server, job workers).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	tasks     []backgroundTask
	bgCancels []context.CancelFunc
	bgDone    []chan struct{}
}

// New bootstraps logger, content store, Redis, the generation pipeline and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	a := &Application{cfg: cfg, logger: logger}

	store, err := a.contentStore(ctx)
	if err != nil {
		return nil, err
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	generator, err := newGenerator(ctx, cfg.Generation, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	executor, err := retry.NewExecutor(retry.Policy{
		MaxAttempts:  cfg.Generation.MaxAttempts,
		Timeout:      cfg.Generation.AttemptTimeout,
		InitialDelay: cfg.Generation.InitialBackoff,
	}, logger, retry.WithMetrics(retry.NewMetrics(prometheus.DefaultRegisterer, "assessment_generation_attempts_total")))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("retry policy: %w", err)
	}

	assessmentMetrics := assessment.NewMetrics(prometheus.DefaultRegisterer)
	aggregator := assessment.NewAggregator(store, assessment.ContextConfig{
		MaxRunes:    cfg.Context.MaxRunes,
		Placeholder: cfg.Context.Placeholder,
	}, logger, assessmentMetrics)
	service := assessment.NewService(aggregator, generator, executor, assessment.ServiceConfig{
		MaxQuestions: cfg.Assessment.MaxQuestions,
		Params: assessment.GenerationParams{
			Temperature:     cfg.Generation.Temperature,
			MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		},
	}, logger, assessmentMetrics)

	jobMetrics := jobs.NewMetrics(prometheus.DefaultRegisterer)
	jobStore := jobs.NewRedisStore(a.redis, cfg.Jobs.ResultTTL)
	jobQueue := jobs.NewRedisQueue(a.redis, cfg.Jobs.QueueKey)
	notifier := jobs.NewRedisNotifier(a.redis, cfg.Jobs.UpdateChannel)
	dispatcher := jobs.NewDispatcher(jobStore, jobQueue, notifier, service, logger, jobMetrics)
	worker := jobs.NewWorker(jobQueue, jobStore, notifier, service, jobs.WorkerConfig{
		Concurrency: cfg.Jobs.Workers,
		JobTimeout:  cfg.Jobs.JobTimeout,
		PollWait:    cfg.Jobs.PollWait,
	}, logger, jobMetrics)

	hub := ws.NewHub(logger)
	broadcaster := jobs.NewBroadcaster(a.redis, hub, cfg.Jobs.UpdateChannel, logger)

	var verifier auth.Verifier
	if cfg.Security.JWTSecret != "" {
		manager, err := jwt.NewManager(jwt.TokenConfig{
			Secret: []byte(cfg.Security.JWTSecret),
			TTL:    cfg.Security.TokenTTL,
			Issuer: cfg.Security.JWTIssuer,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("jwt manager: %w", err)
		}
		verifier = manager
	} else {
		logger.Warn().Msg("JWT secret not configured; API routes are unauthenticated")
	}

	checks := []server.HealthCheck{
		{Name: "content", Check: store.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }},
	}
	a.http = server.NewHTTPServer(cfg, logger, server.Dependencies{
		Questions: service,
		Jobs:      dispatcher,
		Hub:       hub,
		Verifier:  verifier,
		Checks:    checks,
	})

	a.tasks = []backgroundTask{
		{name: "job broadcaster", run: broadcaster.Run},
		{name: "job worker", run: worker.Run},
	}
	return a, nil
}

func (a *Application) contentStore(ctx context.Context) (assessment.ContentReader, error) {
	switch a.cfg.Content.Source {
	case "yaml":
		store, err := content.LoadYAMLFile(a.cfg.Content.YAMLPath)
		if err != nil {
			return nil, err
		}
		a.logger.Info().Str("path", a.cfg.Content.YAMLPath).Msg("serving content from yaml")
		return store, nil
	default:
		poolCfg, err := content.ParseURL(a.cfg.Postgres.URL())
		if err != nil {
			return nil, err
		}
		poolCfg.MaxConns = 10
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		return content.NewPostgresStore(pool)
	}
}

func newGenerator(ctx context.Context, cfg config.Generation, logger zerolog.Logger) (assessment.Generator, error) {
	switch cfg.Backend {
	case "gateway":
		return gateway.NewClient(ctx, gateway.Config{
			BaseURL:      cfg.GatewayURL,
			APIKey:       cfg.GatewayKey,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
			Timeout:      cfg.HTTPTimeout,
		}, logger)
	default:
		return gemini.NewClient(ctx, gemini.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		}, logger)
	}
}

// Run starts the HTTP server and background workers and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	for _, done := range a.bgDone {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			a.logger.Warn().Msg("background workers did not stop before shutdown deadline")
		}
	}

	a.close()
	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	for _, task := range a.tasks {
		bgCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		a.bgCancels = append(a.bgCancels, cancel)
		a.bgDone = append(a.bgDone, done)
		go func(task backgroundTask) {
			defer close(done)
			if err := task.run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Str("task", task.name).Msg("background task stopped")
			}
		}(task)
	}
}

func (a *Application) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}
