// Package tokencount provides token counting for LLM API calls.
//
// It uses tiktoken-go, a Go port of OpenAI's official tiktoken library,
// to count tokens for the models served through OpenRouter. The counts
// feed the per-minute token budget and fill in usage numbers when the
// upstream response omits them.
package tokencount

import (
	"strings"
	"sync"

	"log/slog"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// Counter provides thread-safe token counting for LLM models.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
	}
}

// getEncodingForModel returns the appropriate tiktoken encoding for a model.
// It caches encodings for performance.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	normalizedModel := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalizedModel)
	if err != nil {
		// cl100k_base covers GPT-4, GPT-3.5-turbo, and most modern models
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model),
			slog.String("normalized", normalizedModel),
			slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encodingCache[normalizedModel] = enc
	return enc, nil
}

// normalizeModelName converts model IDs to tiktoken-compatible names.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)

	// OpenRouter model IDs carry provider prefixes,
	// e.g. "deepseek/deepseek-chat-v3-0324" or "meta-llama/llama-3.3-70b-instruct:free"
	if strings.Contains(model, "/") {
		parts := strings.Split(model, "/")
		model = parts[len(parts)-1]
	}
	model = strings.TrimSuffix(model, ":free")

	switch {
	case strings.Contains(model, "gpt-4"):
		return "gpt-4"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// Llama, DeepSeek, Mistral, Qwen and friends tokenize close enough
		// to cl100k_base for budgeting purposes.
		return "gpt-4"
	}
}

// CountTokens counts the number of tokens in a text string for a given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}

	tokens := enc.Encode(text, nil, nil)
	return len(tokens), nil
}

// Estimate counts tokens for a full chat exchange: every request message
// plus the completion. It accounts for the per-message framing overhead
// used by OpenAI-compatible APIs and falls back to a rough ~4 chars per
// token estimate when the encoding is unavailable.
func (c *Counter) Estimate(model string, messages []domain.ChatMessage, completion string) int {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		slog.Warn("failed to load encoding, using char estimate",
			slog.String("model", model),
			slog.Any("error", err))
		total := len(completion)
		for _, m := range messages {
			total += len(m.Content)
		}
		return total / 4
	}

	// 3 tokens per message + 1 for the role name, per the OpenAI cookbook.
	const tokensPerMessage = 3
	const tokensPerRole = 1

	numTokens := 0
	for _, m := range messages {
		numTokens += tokensPerMessage
		numTokens += len(enc.Encode(m.Role, nil, nil))
		numTokens += len(enc.Encode(m.Content, nil, nil))
		numTokens += tokensPerRole
	}

	// Every reply is primed with <|start|>assistant<|message|>
	numTokens += 3
	numTokens += len(enc.Encode(completion, nil, nil))

	return numTokens
}
