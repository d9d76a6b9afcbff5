package ai

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/service/ratelimiter"
)

// OrchestratorConfig carries the model identifiers and backoff delays for
// the two-tier state machine.
type OrchestratorConfig struct {
	PrimaryModel        string
	FallbackModel       string
	FallbackMaxTokens   int
	RateLimitRetryDelay time.Duration
	QuotaRetryDelay     time.Duration
	GenericRetryDelay   time.Duration
}

// Orchestrator runs every chat call through the bounded queue, gates the
// primary model on the rate window, and falls back to the secondary model
// on qualifying failures. Strictly two tiers: primary, fallback, terminal.
type Orchestrator struct {
	provider domain.ModelProvider
	queue    *RequestQueue
	window   *RateWindow
	cfg      OrchestratorConfig

	// shared is the optional cross-process limiter; nil means the
	// process-local window is the only gate.
	shared ratelimiter.Limiter

	sleep func(time.Duration)
}

// NewOrchestrator wires the orchestrator. shared may be nil.
func NewOrchestrator(provider domain.ModelProvider, queue *RequestQueue, window *RateWindow, shared ratelimiter.Limiter, cfg OrchestratorConfig) *Orchestrator {
	if cfg.FallbackMaxTokens <= 0 {
		cfg.FallbackMaxTokens = 2000
	}
	return &Orchestrator{
		provider: provider,
		queue:    queue,
		window:   window,
		cfg:      cfg,
		shared:   shared,
		sleep:    time.Sleep,
	}
}

// Chat executes one logical chat operation as a queued task.
func (o *Orchestrator) Chat(ctx domain.Context, req domain.ChatCallRequest) (domain.ModelCallResult, error) {
	return o.queue.Submit(ctx, func(ctx domain.Context) (domain.ModelCallResult, error) {
		return o.run(ctx, req)
	})
}

type failureClass int

const (
	failureGeneric failureClass = iota
	failureRateLimit
	failureQuota
)

// classifyFailure buckets a provider error by its rate-limit or quota
// signals. Provider adapters wrap explicit statuses in the domain
// sentinels; free-text matching covers errors that arrive unwrapped.
func classifyFailure(err error) failureClass {
	if errors.Is(err, domain.ErrUpstreamRateLimit) {
		return failureRateLimit
	}
	if errors.Is(err, domain.ErrUpstreamQuota) {
		return failureQuota
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return failureRateLimit
	case strings.Contains(msg, "402") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "credit") || strings.Contains(msg, "insufficient"):
		return failureQuota
	}
	return failureGeneric
}

func (o *Orchestrator) run(ctx domain.Context, req domain.ChatCallRequest) (domain.ModelCallResult, error) {
	if o.allowPrimary(ctx) {
		res, err := o.attempt(ctx, o.cfg.PrimaryModel, req, req.MaxTokens, false)
		if err == nil {
			return res, nil
		}
		switch classifyFailure(err) {
		case failureRateLimit:
			slog.Warn("primary model rate limited, falling back",
				slog.String("model", o.cfg.PrimaryModel), slog.Any("error", err))
			o.sleep(o.cfg.RateLimitRetryDelay)
		case failureQuota:
			slog.Warn("primary model quota exhausted, falling back",
				slog.String("model", o.cfg.PrimaryModel), slog.Any("error", err))
			o.sleep(o.cfg.QuotaRetryDelay)
		default:
			slog.Warn("primary model failed, falling back once",
				slog.String("model", o.cfg.PrimaryModel), slog.Any("error", err))
			o.sleep(o.cfg.GenericRetryDelay)
		}
	} else {
		slog.Info("rate gate closed, skipping primary model",
			slog.String("fallback_model", o.cfg.FallbackModel))
		observability.AIRateGateSkipsTotal.Inc()
	}

	res, err := o.attempt(ctx, o.cfg.FallbackModel, req, o.cfg.FallbackMaxTokens, true)
	if err != nil {
		slog.Error("fallback model failed, no further tiers",
			slog.String("model", o.cfg.FallbackModel), slog.Any("error", err))
		return domain.ModelCallResult{}, fmt.Errorf("op=orchestrator.chat: %w", domain.ErrServiceBusy)
	}
	return res, nil
}

// allowPrimary consults the local window and, when configured, the shared
// limiter. Shared-limiter errors fail open to the local decision.
func (o *Orchestrator) allowPrimary(ctx domain.Context) bool {
	if !o.window.AllowPrimary() {
		return false
	}
	if o.shared != nil {
		allowed, _, err := o.shared.Allow(ctx, "ai:primary", 1)
		if err != nil {
			slog.Warn("shared limiter unavailable, using local window only", slog.Any("error", err))
			return true
		}
		return allowed
	}
	return true
}

func (o *Orchestrator) attempt(ctx domain.Context, model string, req domain.ChatCallRequest, maxTokens int, fallback bool) (domain.ModelCallResult, error) {
	start := time.Now()
	resp, err := o.provider.ChatCompletion(ctx, domain.ProviderRequest{
		Model:        model,
		Messages:     req.Messages,
		Temperature:  req.Temperature,
		MaxTokens:    maxTokens,
		JSONResponse: req.JSONResponse,
	})
	if err != nil {
		return domain.ModelCallResult{}, err
	}
	o.window.RecordUsage(resp.TotalTokens)
	tier := "primary"
	if fallback {
		tier = "fallback"
	}
	observability.AIModelCallsTotal.WithLabelValues(model, tier).Inc()
	return domain.ModelCallResult{
		Content:    resp.Content,
		Model:      model,
		TokensUsed: resp.TotalTokens,
		Duration:   time.Since(start),
		IsFallback: fallback,
	}, nil
}
