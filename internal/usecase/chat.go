package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/safety"
)

// ChatOutcome is the adapter-usecase DTO for one chat turn. Exactly one of
// Blocked, QuickResponse, or a populated model result applies.
type ChatOutcome struct {
	Response         string
	Blocked          bool
	BlockReason      domain.SafetyReason
	QuickResponse    bool
	Mode             domain.Mode
	Model            string
	TokensUsed       int
	IsFallback       bool
	CreditCost       float64
	CreditsRemaining *float64
	IsPremium        bool
}

// ChatService runs the full safety -> quick-response -> credits ->
// orchestrator pipeline for a chat turn.
type ChatService struct {
	Classifier   *safety.Classifier
	Quick        *safety.QuickResponder
	Credits      CreditService
	Orchestrator domain.ChatOrchestrator
	History      domain.ChatHistoryRepository
	Temperature  float64
	MaxTokens    int
	HistoryLimit int
}

// NewChatService constructs a ChatService with its collaborators.
func NewChatService(cl *safety.Classifier, qr *safety.QuickResponder, cr CreditService, orch domain.ChatOrchestrator, hist domain.ChatHistoryRepository, temperature float64, maxTokens, historyLimit int) ChatService {
	return ChatService{
		Classifier:   cl,
		Quick:        qr,
		Credits:      cr,
		Orchestrator: orch,
		History:      hist,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		HistoryLimit: historyLimit,
	}
}

// Handle processes one inbound chat turn end to end. Safety and credit
// rejections are returned as outcomes (or typed errors), never as provider
// calls; the account is debited only after the model call succeeds.
func (s ChatService) Handle(ctx domain.Context, req domain.ChatRequest) (ChatOutcome, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return ChatOutcome{}, fmt.Errorf("%w: empty message", domain.ErrInvalidArgument)
	}
	if req.UserID == "" {
		return ChatOutcome{}, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.ModeGeneral
	}
	if !mode.Valid() {
		return ChatOutcome{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidArgument, req.Mode)
	}

	verdict := s.Classifier.Classify(msg)
	if !verdict.Accepted {
		observability.SafetyRejectionsTotal.WithLabelValues(string(verdict.Reason)).Inc()
		s.record(ctx, req.UserID, "user", msg, mode)
		return ChatOutcome{
			Blocked:     true,
			BlockReason: verdict.Reason,
			Response:    verdict.UserMessage,
			Mode:        mode,
		}, nil
	}

	if canned, ok := s.Quick.Match(msg); ok {
		observability.QuickResponsesTotal.Inc()
		s.record(ctx, req.UserID, "user", msg, mode)
		s.record(ctx, req.UserID, "assistant", canned, mode)
		return ChatOutcome{Response: canned, QuickResponse: true, Mode: mode}, nil
	}

	cost := s.Credits.Cost(msg, mode)
	acct, err := s.Credits.Authorize(ctx, req.UserID, cost)
	if err != nil {
		return ChatOutcome{}, err
	}

	messages := s.buildMessages(ctx, req, msg, mode)
	result, err := s.Orchestrator.Chat(ctx, domain.ChatCallRequest{
		Messages:    messages,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	})
	if err != nil {
		return ChatOutcome{}, err
	}

	acct, err = s.Credits.Debit(ctx, req.UserID, cost, "chat:"+string(mode))
	if err != nil {
		// The model already answered; return the response rather than
		// charging the user for a retry.
		observability.LoggerFromContext(ctx).Error("post-call debit failed",
			slog.String("user_id", req.UserID), slog.Any("error", err))
	}

	s.record(ctx, req.UserID, "user", msg, mode)
	s.record(ctx, req.UserID, "assistant", result.Content, mode)

	remaining := acct.Balance
	return ChatOutcome{
		Response:         result.Content,
		Mode:             mode,
		Model:            result.Model,
		TokensUsed:       result.TokensUsed,
		IsFallback:       result.IsFallback,
		CreditCost:       cost,
		CreditsRemaining: &remaining,
		IsPremium:        acct.PremiumUnmetered,
	}, nil
}

// buildMessages assembles the provider message slice: mode system prompt
// (with project context), recent history, then the current turn.
func (s ChatService) buildMessages(ctx domain.Context, req domain.ChatRequest, msg string, mode domain.Mode) []domain.ChatMessage {
	messages := []domain.ChatMessage{{Role: "system", Content: systemPrompt(mode, req.ProjectContext)}}

	if len(req.History) > 0 {
		messages = append(messages, trimHistory(req.History, s.HistoryLimit)...)
	} else if s.History != nil {
		stored, err := s.History.Recent(ctx, req.UserID, s.HistoryLimit)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn("history fetch failed",
				slog.String("user_id", req.UserID), slog.Any("error", err))
		}
		for _, m := range stored {
			messages = append(messages, domain.ChatMessage{Role: m.Role, Content: m.Content})
		}
	}

	return append(messages, domain.ChatMessage{Role: "user", Content: msg})
}

func trimHistory(h []domain.ChatMessage, limit int) []domain.ChatMessage {
	if limit > 0 && len(h) > limit {
		return h[len(h)-limit:]
	}
	return h
}

func (s ChatService) record(ctx domain.Context, userID, role, content string, mode domain.Mode) {
	if s.History == nil {
		return
	}
	err := s.History.Append(ctx, domain.StoredMessage{
		UserID:    userID,
		Role:      role,
		Content:   content,
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("history append failed",
			slog.String("user_id", userID), slog.Any("error", err))
	}
}

const basePrompt = "You are Diksuchi, the learning assistant for ProjectHub, a platform where students build real software projects step by step. Keep answers focused on the student's learning goals. Respond in English, Telugu, or Hindi, matching the language of the question."

func systemPrompt(mode domain.Mode, projectContext map[string]any) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	switch mode {
	case domain.ModeCoding:
		b.WriteString(" The student is asking a programming question. Explain the concept first, then show concise, idiomatic code with comments. Point out common mistakes.")
	case domain.ModeCreative:
		b.WriteString(" The student wants to brainstorm. Offer several distinct directions, each with a short rationale, and end with a suggested next step.")
	default:
		b.WriteString(" Answer clearly and encourage the student to keep building.")
	}
	if len(projectContext) > 0 {
		b.WriteString("\n\nThe student is currently working on this project:")
		for k, v := range projectContext {
			fmt.Fprintf(&b, "\n- %s: %v", k, v)
		}
	}
	return b.String()
}
