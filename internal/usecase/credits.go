// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// fullCreditLength is the message length (in characters) at or above which
// a non-coding turn costs a full credit instead of half.
const fullCreditLength = 500

// CreditService meters paid model calls against per-user daily balances.
type CreditService struct {
	Repo       domain.CreditRepository
	DailyLimit float64
	now        func() time.Time
}

// NewCreditService constructs a CreditService with the given repo and limit.
func NewCreditService(r domain.CreditRepository, dailyLimit float64) CreditService {
	return CreditService{Repo: r, DailyLimit: dailyLimit, now: time.Now}
}

// Cost prices one chat turn. Coding mode always costs a full credit; other
// modes cost a full credit for long messages and half otherwise.
func (s CreditService) Cost(message string, mode domain.Mode) float64 {
	if mode == domain.ModeCoding {
		return 1.0
	}
	if len([]rune(message)) >= fullCreditLength {
		return 1.0
	}
	return 0.5
}

// Authorize ensures the account exists, applies any pending daily reset, and
// verifies the balance covers the given cost. It does not debit; the caller
// debits only after a successful model call so failed calls never cost
// credits. Returns *domain.InsufficientCreditsError on a short balance.
func (s CreditService) Authorize(ctx domain.Context, userID string, cost float64) (domain.CreditAccount, error) {
	acct, err := s.Repo.GetOrCreate(ctx, userID, s.DailyLimit)
	if err != nil {
		return domain.CreditAccount{}, fmt.Errorf("credits get-or-create: %w", err)
	}
	acct, err = s.Repo.ResetIfStale(ctx, userID, s.DailyLimit, s.now())
	if err != nil {
		return domain.CreditAccount{}, fmt.Errorf("credits daily reset: %w", err)
	}
	if acct.PremiumUnmetered {
		return acct, nil
	}
	if acct.Balance < cost {
		observability.CreditRejectionsTotal.Inc()
		return acct, &domain.InsufficientCreditsError{Remaining: acct.Balance, Required: cost}
	}
	return acct, nil
}

// Debit charges a successful model call. Any pending daily reset is applied
// first so a call that spans midnight debits the refreshed balance. The
// repository performs the sufficiency check and subtraction atomically, so
// two concurrent turns cannot both spend the same balance.
func (s CreditService) Debit(ctx domain.Context, userID string, amount float64, note string) (domain.CreditAccount, error) {
	if _, err := s.Repo.ResetIfStale(ctx, userID, s.DailyLimit, s.now()); err != nil {
		return domain.CreditAccount{}, fmt.Errorf("credits daily reset: %w", err)
	}
	acct, err := s.Repo.Debit(ctx, userID, amount, note)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			// Sufficiency was checked before the model call; losing the race
			// here is possible but rare. Log and surface it as-is.
			observability.LoggerFromContext(ctx).Warn("debit after successful call failed",
				slog.String("user_id", userID),
				slog.Float64("amount", amount))
			observability.CreditRejectionsTotal.Inc()
		}
		return domain.CreditAccount{}, err
	}
	observability.CreditsDebitedTotal.Add(amount)
	return acct, nil
}

// Balance returns the account after applying any pending daily reset.
func (s CreditService) Balance(ctx domain.Context, userID string) (domain.CreditAccount, error) {
	if _, err := s.Repo.GetOrCreate(ctx, userID, s.DailyLimit); err != nil {
		return domain.CreditAccount{}, fmt.Errorf("credits get-or-create: %w", err)
	}
	return s.Repo.ResetIfStale(ctx, userID, s.DailyLimit, s.now())
}
