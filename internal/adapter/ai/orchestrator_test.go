package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

type providerCall struct {
	Model     string
	MaxTokens int
}

type scriptedProvider struct {
	mu    sync.Mutex
	calls []providerCall
	// errs maps a model name to the error its calls return; models not
	// present answer successfully.
	errs map[string]error
}

func (p *scriptedProvider) ChatCompletion(_ domain.Context, req domain.ProviderRequest) (domain.ProviderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, providerCall{Model: req.Model, MaxTokens: req.MaxTokens})
	if err, ok := p.errs[req.Model]; ok && err != nil {
		return domain.ProviderResponse{}, err
	}
	return domain.ProviderResponse{Content: "answer from " + req.Model, TotalTokens: 42}, nil
}

func newTestOrchestrator(p *scriptedProvider, window *RateWindow) *Orchestrator {
	if window == nil {
		window = NewRateWindow(100, 0)
	}
	o := NewOrchestrator(p, NewRequestQueue(2), window, nil, OrchestratorConfig{
		PrimaryModel:        "primary/model",
		FallbackModel:       "fallback/model",
		RateLimitRetryDelay: 2 * time.Second,
		QuotaRetryDelay:     time.Second,
		GenericRetryDelay:   time.Second,
	})
	o.sleep = func(time.Duration) {}
	return o
}

func TestOrchestrator_PrimarySucceeds(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{}
	o := newTestOrchestrator(p, nil)

	res, err := o.Chat(context.Background(), domain.ChatCallRequest{MaxTokens: 4096})
	require.NoError(t, err)
	assert.Equal(t, "primary/model", res.Model)
	assert.False(t, res.IsFallback)
	assert.Equal(t, 42, res.TokensUsed)
	require.Len(t, p.calls, 1)
	assert.Equal(t, 4096, p.calls[0].MaxTokens)
}

func TestOrchestrator_RateLimitFallsBack(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{errs: map[string]error{"primary/model": domain.ErrUpstreamRateLimit}}
	o := newTestOrchestrator(p, nil)

	var slept []time.Duration
	o.sleep = func(d time.Duration) { slept = append(slept, d) }

	res, err := o.Chat(context.Background(), domain.ChatCallRequest{MaxTokens: 4096})
	require.NoError(t, err)
	assert.True(t, res.IsFallback)
	assert.Equal(t, "fallback/model", res.Model)
	require.Len(t, p.calls, 2)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)
	// Fallback attempts use the fallback token cap, not the request's.
	assert.Equal(t, 2000, p.calls[1].MaxTokens)
}

func TestOrchestrator_UnwrappedRateLimitTextFallsBack(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{errs: map[string]error{"primary/model": errors.New("http 429 from upstream")}}
	o := newTestOrchestrator(p, nil)

	res, err := o.Chat(context.Background(), domain.ChatCallRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsFallback)
}

func TestOrchestrator_BothTiersFailTerminal(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{errs: map[string]error{
		"primary/model":  domain.ErrUpstreamRateLimit,
		"fallback/model": errors.New("503 from upstream"),
	}}
	o := newTestOrchestrator(p, nil)

	_, err := o.Chat(context.Background(), domain.ChatCallRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceBusy)
	// Strictly two tiers: primary once, fallback once, nothing else.
	assert.Len(t, p.calls, 2)
}

func TestOrchestrator_RateGateClosedSkipsPrimary(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{}
	window := NewRateWindow(1, 0)
	window.RecordUsage(10)
	o := newTestOrchestrator(p, window)

	res, err := o.Chat(context.Background(), domain.ChatCallRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsFallback)
	require.Len(t, p.calls, 1)
	assert.Equal(t, "fallback/model", p.calls[0].Model)
}

func TestOrchestrator_GenericFailureFallsBackOnce(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{errs: map[string]error{"primary/model": errors.New("connection reset")}}
	o := newTestOrchestrator(p, nil)

	var slept []time.Duration
	o.sleep = func(d time.Duration) { slept = append(slept, d) }

	res, err := o.Chat(context.Background(), domain.ChatCallRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsFallback)
	assert.Equal(t, []time.Duration{time.Second}, slept)
}

func TestClassifyFailure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want failureClass
	}{
		{domain.ErrUpstreamRateLimit, failureRateLimit},
		{domain.ErrUpstreamQuota, failureQuota},
		{errors.New("got 429 too many requests"), failureRateLimit},
		{errors.New("Rate limit exceeded"), failureRateLimit},
		{errors.New("402 payment required"), failureQuota},
		{errors.New("insufficient balance"), failureQuota},
		{errors.New("connection refused"), failureGeneric},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, classifyFailure(tc.err), "error %v", tc.err)
	}
}
