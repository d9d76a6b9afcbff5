// Package openrouter implements the model-provider port against the
// OpenRouter (OpenAI-compatible) chat completions API.
package openrouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"log/slog"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/ai/tokencount"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/config"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// Client implements domain.ModelProvider using OpenRouter.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs a provider client. The HTTP timeout doubles as the
// per-call hang guard: a stuck provider call settles as a failure instead
// of occupying a queue slot indefinitely.
func New(cfg config.Config) *Client {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("OpenRouter %s %s", r.Method, r.URL.Path)
		}),
	)
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: timeout, Transport: transport},
		counter: tokencount.NewCounter(),
	}
}

type chatCompletionRequest struct {
	Model          string               `json:"model"`
	Messages       []domain.ChatMessage `json:"messages"`
	Temperature    float64              `json:"temperature"`
	MaxTokens      int                  `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat      `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatCompletion calls OpenRouter with one concrete model. Transient 5xx
// responses retry with exponential backoff inside this single attempt;
// 429 and quota statuses surface immediately as the matching sentinel so
// the orchestrator can decide on fallback.
func (c *Client) ChatCompletion(ctx domain.Context, req domain.ProviderRequest) (domain.ProviderResponse, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		slog.Error("OpenRouter API key missing", slog.String("provider", "openrouter"))
		return domain.ProviderResponse{}, fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrInvalidArgument)
	}

	body := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONResponse {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	b, _ := json.Marshal(body)

	var out chatCompletionResponse
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.AIRequestDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
		if err != nil {
			observability.AIRequestsTotal.WithLabelValues(req.Model, "transport_error").Inc()
			if errors.Is(err, ctx.Err()) || isTimeout(err) {
				return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err))
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			slog.Error("failed to read response body", slog.String("provider", "openrouter"), slog.Any("error", err))
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			observability.AIRequestsTotal.WithLabelValues(req.Model, "rate_limited").Inc()
			slog.Warn("ai provider rate limited",
				slog.String("provider", "openrouter"),
				slog.String("model", req.Model),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			// Not retried here: the orchestrator owns the fallback decision.
			return backoff.Permanent(fmt.Errorf("%w: status 429", domain.ErrUpstreamRateLimit))
		case resp.StatusCode == http.StatusPaymentRequired:
			observability.AIRequestsTotal.WithLabelValues(req.Model, "quota").Inc()
			slog.Warn("ai provider quota exhausted",
				slog.String("provider", "openrouter"),
				slog.String("model", req.Model),
				slog.String("body", snippet(bodyBytes)))
			return backoff.Permanent(fmt.Errorf("%w: status 402", domain.ErrUpstreamQuota))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			observability.AIRequestsTotal.WithLabelValues(req.Model, "client_error").Inc()
			slog.Warn("ai provider 4xx",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("model", req.Model),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
				slog.String("body", snippet(bodyBytes)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			// 5xx and others: retryable within this attempt's backoff budget
			observability.AIRequestsTotal.WithLabelValues(req.Model, "server_error").Inc()
			slog.Error("ai provider non-2xx",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("model", req.Model),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
				slog.String("body", snippet(bodyBytes)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}

		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			slog.Error("ai provider decode error",
				slog.String("provider", "openrouter"),
				slog.String("model", req.Model),
				slog.Any("error", err))
			return err
		}
		observability.AIRequestsTotal.WithLabelValues(req.Model, "ok").Inc()
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier

	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return domain.ProviderResponse{}, fmt.Errorf("op=openrouter.chat model=%s: %w", req.Model, err)
	}

	if len(out.Choices) == 0 {
		slog.Error("OpenRouter API returned empty choices", slog.String("model", req.Model))
		return domain.ProviderResponse{}, fmt.Errorf("op=openrouter.chat model=%s: empty choices", req.Model)
	}

	content := out.Choices[0].Message.Content
	tokens := out.Usage.TotalTokens
	if tokens == 0 {
		// Some models omit usage; estimate so the rate window still fills.
		tokens = c.counter.Estimate(req.Model, req.Messages, content)
	}
	return domain.ProviderResponse{Content: content, TotalTokens: tokens}, nil
}

func snippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
