package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUpstreamRateLimit   = errors.New("upstream rate limit")
	ErrUpstreamQuota       = errors.New("upstream quota exhausted")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrServiceBusy         = errors.New("service busy")
	ErrSchemaInvalid       = errors.New("schema invalid")
	ErrInternal            = errors.New("internal error")
)

// Mode selects the assistant behaviour for a chat turn.
type Mode string

const (
	ModeGeneral  Mode = "general"
	ModeCoding   Mode = "coding"
	ModeCreative Mode = "creative"
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	switch m {
	case ModeGeneral, ModeCoding, ModeCreative:
		return true
	}
	return false
}

// ChatMessage is a single role/content pair sent to the model provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an inbound chat turn. Immutable once received.
type ChatRequest struct {
	UserID         string
	Message        string
	Mode           Mode
	History        []ChatMessage
	ProjectContext map[string]any
}

// SafetyReason identifies why the classifier rejected (or passed) a message.
type SafetyReason string

const (
	ReasonOK                    SafetyReason = "ok"
	ReasonUnsupportedLanguage   SafetyReason = "unsupported_language"
	ReasonInappropriateLanguage SafetyReason = "inappropriate_language"
	ReasonNonEducational        SafetyReason = "non_educational"
)

// SafetyVerdict is the accept/reject decision produced once per request.
type SafetyVerdict struct {
	Accepted    bool
	Reason      SafetyReason
	UserMessage string
}

// CreditAccount meters paid model calls for one user.
// Invariant: Balance never goes negative for non-premium accounts.
type CreditAccount struct {
	UserID           string
	Balance          float64
	DailyLimit       float64
	PremiumUnmetered bool
	LastResetAt      time.Time
	LifetimeUsed     float64
	Ledger           []CreditLedgerEntry
}

// CreditLedgerEntry is one append-only accounting record.
type CreditLedgerEntry struct {
	Action string
	Delta  float64
	At     time.Time
	Note   string
}

// InsufficientCreditsError carries the balance details a caller needs to
// build a useful rejection. Unwraps to ErrInsufficientCredits.
type InsufficientCreditsError struct {
	Remaining float64
	Required  float64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: have %.1f, need %.1f", e.Remaining, e.Required)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// ModelCallResult is the terminal value of one orchestrated chat call.
type ModelCallResult struct {
	Content    string
	Model      string
	TokensUsed int
	Duration   time.Duration
	IsFallback bool
}

// ChatCallRequest describes one logical chat completion to run through the
// orchestrator (queueing, rate gating and fallback included).
type ChatCallRequest struct {
	Messages     []ChatMessage
	Temperature  float64
	MaxTokens    int
	JSONResponse bool
}

// ProviderRequest is a single raw provider call against one concrete model.
type ProviderRequest struct {
	Model        string
	Messages     []ChatMessage
	Temperature  float64
	MaxTokens    int
	JSONResponse bool
}

// ProviderResponse is the provider's answer for one call.
type ProviderResponse struct {
	Content     string
	TotalTokens int
}

// StoredMessage is one persisted chat-history entry.
type StoredMessage struct {
	ID        string
	UserID    string
	Role      string
	Content   string
	Mode      Mode
	CreatedAt time.Time
}

// Ports

// ModelProvider is the outbound chat-completion surface (OpenAI-compatible).
type ModelProvider interface {
	ChatCompletion(ctx Context, req ProviderRequest) (ProviderResponse, error)
}

// ChatOrchestrator wraps a logical chat operation with queueing, rate
// gating and primary/fallback model selection.
type ChatOrchestrator interface {
	Chat(ctx Context, req ChatCallRequest) (ModelCallResult, error)
}

// CreditRepository persists credit accounts. Implementations must make the
// reset-then-read and sufficiency-check-then-debit paths atomic per account.
type CreditRepository interface {
	GetOrCreate(ctx Context, userID string, dailyLimit float64) (CreditAccount, error)
	// ResetIfStale refills balance to dailyLimit when the stored last-reset
	// date is strictly before today's date (calendar comparison). Idempotent
	// within a day, including under concurrent calls.
	ResetIfStale(ctx Context, userID string, dailyLimit float64, now time.Time) (CreditAccount, error)
	// Debit subtracts amount when the balance suffices and returns the
	// updated account; premium-unmetered accounts only accrue lifetime
	// usage. Returns *InsufficientCreditsError otherwise.
	Debit(ctx Context, userID string, amount float64, note string) (CreditAccount, error)
}

// ChatHistoryRepository persists conversation history per user.
type ChatHistoryRepository interface {
	Append(ctx Context, msg StoredMessage) error
	Recent(ctx Context, userID string, limit int) ([]StoredMessage, error)
}

// Queue enqueues asynchronous guide-generation jobs.
type Queue interface {
	EnqueueGuideJob(ctx Context, payload GuideJobPayload) (string, error)
}

// Context is an alias so the domain stays decoupled from net/http plumbing;
// adapters pass context.Context straight through.
type Context = context.Context
