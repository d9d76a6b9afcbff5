// Command worker consumes guide-generation jobs from the Redpanda queue,
// runs them through the model orchestrator, and stores the repaired results.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	ai "github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/ai"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/ai/openrouter"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/queue/redpanda"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/repo/postgres"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/config"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/guide"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	// Expose worker metrics on a dedicated port for scraping.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	pool, err := postgres.NewPool(context.Background(), cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	jobRepo := postgres.NewGuideJobRepo(pool)

	// The worker shares the orchestrator stack with the server: same queue
	// ceiling, same rate window, same two-tier fallback.
	provider := openrouter.New(cfg)
	queue := ai.NewRequestQueue(cfg.MaxConcurrency)
	window := ai.NewRateWindow(cfg.RequestsPerMinute, cfg.TokensPerMinute)
	orchestrator := ai.NewOrchestrator(provider, queue, window, nil, ai.OrchestratorConfig{
		PrimaryModel:        cfg.PrimaryModel,
		FallbackModel:       cfg.FallbackModel,
		FallbackMaxTokens:   cfg.FallbackMaxTokens,
		RateLimitRetryDelay: cfg.RateLimitRetryDelay,
		QuotaRetryDelay:     cfg.QuotaRetryDelay,
		GenericRetryDelay:   cfg.GenericRetryDelay,
	})

	generator := guide.NewGenerator(orchestrator, cfg.Temperature, cfg.MaxTokens)
	handler := redpanda.NewGuideJobHandler(jobRepo, generator)

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroupID, handler, cfg.ConsumerMaxConcurrency)
	if err != nil {
		slog.Error("redpanda consumer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = consumer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil && err != context.Canceled {
		slog.Error("consumer stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
