// Command server starts the ProjectHub AI assistant HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/ai"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/ai/openrouter"
	httpserver "github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/httpserver"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/queue/redpanda"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/repo/postgres"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/app"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/config"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/safety"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/service/ratelimiter"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/usecase"
)

// redisAdapter narrows *redis.Client to the readiness interface.
type redisAdapter struct{ c *redis.Client }

func (r redisAdapter) Ping(ctx context.Context) app.RedisPingResult { return r.c.Ping(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	creditRepo := postgres.NewCreditRepo(pool)
	chatRepo := postgres.NewChatRepo(pool)
	jobRepo := postgres.NewGuideJobRepo(pool)

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	// Optional shared rate gate for horizontally scaled deployments. Without
	// Redis the process-local window is the only primary-model gate.
	var (
		rdb         *redis.Client
		sharedGate  ratelimiter.Limiter
		redisForApp app.RedisClient
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sharedGate = ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
			"ai:primary": ratelimiter.NewBucketConfigFromPerMinute(cfg.RequestsPerMinute),
		})
		redisForApp = redisAdapter{c: rdb}
		defer func() { _ = rdb.Close() }()
	}

	provider := openrouter.New(cfg)
	queue := ai.NewRequestQueue(cfg.MaxConcurrency)
	window := ai.NewRateWindow(cfg.RequestsPerMinute, cfg.TokensPerMinute)
	orchestrator := ai.NewOrchestrator(provider, queue, window, sharedGate, ai.OrchestratorConfig{
		PrimaryModel:        cfg.PrimaryModel,
		FallbackModel:       cfg.FallbackModel,
		FallbackMaxTokens:   cfg.FallbackMaxTokens,
		RateLimitRetryDelay: cfg.RateLimitRetryDelay,
		QuotaRetryDelay:     cfg.QuotaRetryDelay,
		GenericRetryDelay:   cfg.GenericRetryDelay,
	})

	lists, err := config.LoadSafetyLists(cfg.SafetyConfigDir)
	if err != nil {
		slog.Warn("safety list load failed, using built-in tables", slog.Any("error", err))
	}
	classifier := safety.NewClassifier(lists)
	quick := safety.NewQuickResponder()

	creditSvc := usecase.NewCreditService(creditRepo, cfg.DailyCreditLimit)
	chatSvc := usecase.NewChatService(classifier, quick, creditSvc, orchestrator, chatRepo,
		cfg.Temperature, cfg.MaxTokens, cfg.HistoryContextLimit)
	guideSvc := usecase.NewGuideService(jobRepo, producer)

	dbCheck, redisCheck, kafkaCheck := app.BuildReadinessChecks(pool, redisForApp, producer)
	srv := httpserver.NewServer(cfg, chatSvc, guideSvc, creditSvc, dbCheck, redisCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
