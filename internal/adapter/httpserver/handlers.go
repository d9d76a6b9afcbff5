package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/config"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/usecase"
	"github.com/techabbayi/diksuchi-projecthub-sub001/pkg/textx"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Chat       usecase.ChatService
	Guide      usecase.GuideService
	Credits    usecase.CreditService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	KafkaCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, chat usecase.ChatService, guide usecase.GuideService, credits usecase.CreditService, dbCheck, redisCheck, kafkaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Chat: chat, Guide: guide, Credits: credits, DBCheck: dbCheck, RedisCheck: redisCheck, KafkaCheck: kafkaCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type chatRequestBody struct {
	UserID         string               `json:"userId" validate:"required,max=128"`
	Message        string               `json:"message" validate:"required,max=10000"`
	Mode           string               `json:"mode" validate:"omitempty,oneof=general coding creative"`
	History        []domain.ChatMessage `json:"conversationHistory" validate:"max=50,dive"`
	ProjectContext map[string]any       `json:"projectContext"`
}

// ChatHandler runs one chat turn through the safety/credit/model pipeline.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
		var req chatRequestBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}

		outcome, err := s.Chat.Handle(r.Context(), domain.ChatRequest{
			UserID:         req.UserID,
			Message:        textx.SanitizeText(req.Message),
			Mode:           domain.Mode(req.Mode),
			History:        req.History,
			ProjectContext: req.ProjectContext,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		if outcome.Blocked {
			writeJSON(w, http.StatusOK, map[string]any{
				"blocked": true,
				"reason":  string(outcome.BlockReason),
				"message": outcome.Response,
			})
			return
		}
		if outcome.QuickResponse {
			writeJSON(w, http.StatusOK, map[string]any{
				"response":      outcome.Response,
				"quickResponse": true,
				"mode":          string(outcome.Mode),
				"credits":       nil,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"response":         outcome.Response,
			"mode":             string(outcome.Mode),
			"model":            outcome.Model,
			"tokensUsed":       outcome.TokensUsed,
			"isFallback":       outcome.IsFallback,
			"creditCost":       outcome.CreditCost,
			"creditsRemaining": outcome.CreditsRemaining,
			"isPremium":        outcome.IsPremium,
		})
	}
}

type generateRequestBody struct {
	UserID       string   `json:"userId" validate:"required,max=128"`
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	TechStack    []string `json:"techStack" validate:"max=20"`
	Difficulty   string   `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationDays int      `json:"durationDays" validate:"min=0,max=365"`
}

// GuideHandler enqueues an asynchronous guide-generation job.
func (s *Server) GuideHandler() http.HandlerFunc {
	return s.enqueueHandler(domain.JobKindGuide)
}

// RoadmapHandler enqueues an asynchronous roadmap-generation job.
func (s *Server) RoadmapHandler() http.HandlerFunc {
	return s.enqueueHandler(domain.JobKindRoadmap)
}

func (s *Server) enqueueHandler(kind domain.GuideJobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req generateRequestBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		jobID, err := s.Guide.Enqueue(r.Context(), req.UserID, kind, domain.ProjectParams{
			Title:        textx.SanitizeText(req.Title),
			Description:  textx.SanitizeText(req.Description),
			TechStack:    req.TechStack,
			Difficulty:   req.Difficulty,
			DurationDays: req.DurationDays,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"id": jobID, "status": string(domain.JobQueued)})
	}
}

// JobHandler returns a job's status and, when completed, its result.
func (s *Server) JobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		job, err := s.Guide.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		resp := map[string]any{
			"id":     job.ID,
			"kind":   string(job.Kind),
			"status": string(job.Status),
		}
		if job.Status == domain.JobCompleted && len(job.Result) > 0 {
			resp["result"] = json.RawMessage(job.Result)
		}
		if job.Status == domain.JobFailed && job.Error != "" {
			resp["error"] = job.Error
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// CreditsHandler returns the caller's credit balance after applying any
// pending daily reset.
func (s *Server) CreditsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			writeError(w, r, fmt.Errorf("%w: user id missing", domain.ErrInvalidArgument), nil)
			return
		}
		acct, err := s.Credits.Balance(r.Context(), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"userId":     acct.UserID,
			"balance":    acct.Balance,
			"dailyLimit": acct.DailyLimit,
			"isPremium":  acct.PremiumUnmetered,
			"usedToday":  acct.DailyLimit - acct.Balance,
		})
	}
}

// ReadyzHandler probes the DB, Redis, and Kafka dependencies.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"kafka", s.KafkaCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				ok = false
			} else {
				checks = append(checks, check{Name: p.name, OK: true})
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

func validationDetails(err error) map[string]string {
	verrs := map[string]string{}
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			verrs[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return verrs
}
