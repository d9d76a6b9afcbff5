// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the chat, guide-generation, and credit endpoints and keeps a
// clear separation between HTTP concerns and business logic. Safety
// rejections are successful responses with a blocked payload, not errors.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"

	var short *domain.InsufficientCreditsError
	if errors.As(err, &short) {
		writeJSON(w, http.StatusForbidden, errorEnvelope{Error: apiError{
			Code:    "INSUFFICIENT_CREDITS",
			Message: "daily credit limit reached",
			Details: map[string]float64{"remaining": short.Remaining, "required": short.Required},
		}})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrInsufficientCredits):
		code = http.StatusForbidden
		codeStr = "INSUFFICIENT_CREDITS"
	case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrUpstreamRateLimit):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
	case errors.Is(err, domain.ErrServiceBusy), errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, domain.ErrUpstreamQuota):
		code = http.StatusServiceUnavailable
		codeStr = "SERVICE_BUSY"
	case errors.Is(err, domain.ErrSchemaInvalid):
		code = http.StatusServiceUnavailable
		codeStr = "SCHEMA_INVALID"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
