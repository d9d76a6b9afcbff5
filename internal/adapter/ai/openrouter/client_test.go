package openrouter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/ai/openrouter"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/config"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:            "test",
		OpenRouterAPIKey:  "test-key",
		OpenRouterBaseURL: baseURL,
		ProviderTimeout:   5 * time.Second,
	}
}

func completionJSON(content string, tokens int) string {
	b, _ := json.Marshal(map[string]any{
		"model":   "test/model",
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		"usage":   map[string]int{"total_tokens": tokens},
	})
	return string(b)
}

func TestChatCompletion_Success(t *testing.T) {
	t.Parallel()
	var gotAuth string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(completionJSON("hello", 21)))
	}))
	defer ts.Close()

	c := openrouter.New(testConfig(ts.URL))
	resp, err := c.ChatCompletion(context.Background(), domain.ProviderRequest{
		Model:     "deepseek/deepseek-chat",
		Messages:  []domain.ChatMessage{{Role: "user", Content: "hi"}},
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 21, resp.TotalTokens)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "deepseek/deepseek-chat", gotBody["model"])
	assert.Nil(t, gotBody["response_format"])
}

func TestChatCompletion_JSONResponseFormat(t *testing.T) {
	t.Parallel()
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(completionJSON(`{}`, 5)))
	}))
	defer ts.Close()

	c := openrouter.New(testConfig(ts.URL))
	_, err := c.ChatCompletion(context.Background(), domain.ProviderRequest{
		Model:        "m",
		Messages:     []domain.ChatMessage{{Role: "user", Content: "json please"}},
		JSONResponse: true,
	})
	require.NoError(t, err)
	rf := gotBody["response_format"].(map[string]any)
	assert.Equal(t, "json_object", rf["type"])
}

func TestChatCompletion_RateLimitIsPermanent(t *testing.T) {
	t.Parallel()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := openrouter.New(testConfig(ts.URL))
	_, err := c.ChatCompletion(context.Background(), domain.ProviderRequest{Model: "m"})
	require.ErrorIs(t, err, domain.ErrUpstreamRateLimit)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "429 must not retry; fallback is the orchestrator's call")
}

func TestChatCompletion_QuotaIsPermanent(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer ts.Close()

	c := openrouter.New(testConfig(ts.URL))
	_, err := c.ChatCompletion(context.Background(), domain.ProviderRequest{Model: "m"})
	require.ErrorIs(t, err, domain.ErrUpstreamQuota)
}

func TestChatCompletion_ServerErrorRetries(t *testing.T) {
	t.Parallel()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(completionJSON("recovered", 9)))
	}))
	defer ts.Close()

	c := openrouter.New(testConfig(ts.URL))
	resp, err := c.ChatCompletion(context.Background(), domain.ProviderRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestChatCompletion_EmptyChoices(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [], "usage": {"total_tokens": 0}}`))
	}))
	defer ts.Close()

	c := openrouter.New(testConfig(ts.URL))
	_, err := c.ChatCompletion(context.Background(), domain.ProviderRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestChatCompletion_MissingAPIKey(t *testing.T) {
	t.Parallel()
	cfg := testConfig("http://127.0.0.1:0")
	cfg.OpenRouterAPIKey = ""
	c := openrouter.New(cfg)

	_, err := c.ChatCompletion(context.Background(), domain.ProviderRequest{Model: "m"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
