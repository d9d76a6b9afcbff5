package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// CreditRepo persists credit accounts using a minimal pgx pool.
//
// The sufficiency check and subtraction happen in one conditional UPDATE, so
// two concurrent requests can never both pass the check against a stale
// balance. The daily reset is a conditional UPDATE on the stored reset date
// for the same reason.
type CreditRepo struct{ Pool PgxPool }

// NewCreditRepo constructs a CreditRepo with the given pool.
func NewCreditRepo(p PgxPool) *CreditRepo { return &CreditRepo{Pool: p} }

const accountColumns = `user_id, balance, daily_limit, is_premium, last_reset_at, lifetime_used`

func scanAccount(row pgx.Row) (domain.CreditAccount, error) {
	var a domain.CreditAccount
	err := row.Scan(&a.UserID, &a.Balance, &a.DailyLimit, &a.PremiumUnmetered, &a.LastResetAt, &a.LifetimeUsed)
	return a, err
}

// GetOrCreate loads the account, inserting a fresh one at the daily limit if
// the user has none yet.
func (r *CreditRepo) GetOrCreate(ctx domain.Context, userID string, dailyLimit float64) (domain.CreditAccount, error) {
	tracer := otel.Tracer("repo.credits")
	ctx, span := tracer.Start(ctx, "credits.GetOrCreate")
	span.SetAttributes(attribute.String("user_id", userID))
	defer span.End()

	q := `INSERT INTO credit_accounts (user_id, balance, daily_limit, is_premium, last_reset_at, lifetime_used)
	      VALUES ($1, $2, $2, FALSE, $3, 0)
	      ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.Pool.Exec(ctx, q, userID, dailyLimit, time.Now().UTC()); err != nil {
		return domain.CreditAccount{}, fmt.Errorf("op=credits.get_or_create: %w", err)
	}
	a, err := scanAccount(r.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM credit_accounts WHERE user_id=$1`, userID))
	if err != nil {
		return domain.CreditAccount{}, fmt.Errorf("op=credits.get_or_create: %w", err)
	}
	return a, nil
}

// ResetIfStale refills the balance to the daily limit when the stored reset
// date is strictly before the given time's calendar date. The UPDATE's WHERE
// clause makes the reset idempotent within a day, including under concurrent
// calls: only one of them matches the stale date.
func (r *CreditRepo) ResetIfStale(ctx domain.Context, userID string, dailyLimit float64, now time.Time) (domain.CreditAccount, error) {
	tracer := otel.Tracer("repo.credits")
	ctx, span := tracer.Start(ctx, "credits.ResetIfStale")
	span.SetAttributes(attribute.String("user_id", userID))
	defer span.End()

	q := `UPDATE credit_accounts
	      SET balance = daily_limit, last_reset_at = $2
	      WHERE user_id = $1 AND NOT is_premium AND date(last_reset_at) < date($2::timestamptz)
	      RETURNING ` + accountColumns
	a, err := scanAccount(r.Pool.QueryRow(ctx, q, userID, now))
	if err == nil {
		r.appendLedger(ctx, userID, "daily_reset", a.DailyLimit, "balance refilled to daily limit")
		return a, nil
	}
	if err != pgx.ErrNoRows {
		return domain.CreditAccount{}, fmt.Errorf("op=credits.reset: %w", err)
	}

	// Nothing to reset today; return the current account.
	a, err = scanAccount(r.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM credit_accounts WHERE user_id=$1`, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.CreditAccount{}, fmt.Errorf("op=credits.reset: %w", domain.ErrNotFound)
		}
		return domain.CreditAccount{}, fmt.Errorf("op=credits.reset: %w", err)
	}
	return a, nil
}

// Debit subtracts amount when the balance suffices. Premium accounts only
// accrue lifetime usage. Returns *domain.InsufficientCreditsError when the
// conditional UPDATE matches no row because the balance is short.
func (r *CreditRepo) Debit(ctx domain.Context, userID string, amount float64, note string) (domain.CreditAccount, error) {
	tracer := otel.Tracer("repo.credits")
	ctx, span := tracer.Start(ctx, "credits.Debit")
	span.SetAttributes(attribute.String("user_id", userID), attribute.Float64("amount", amount))
	defer span.End()

	q := `UPDATE credit_accounts
	      SET balance = CASE WHEN is_premium THEN balance ELSE balance - $2 END,
	          lifetime_used = lifetime_used + $2
	      WHERE user_id = $1 AND (is_premium OR balance >= $2)
	      RETURNING ` + accountColumns
	a, err := scanAccount(r.Pool.QueryRow(ctx, q, userID, amount))
	if err == nil {
		r.appendLedger(ctx, userID, "debit", -amount, note)
		return a, nil
	}
	if err != pgx.ErrNoRows {
		return domain.CreditAccount{}, fmt.Errorf("op=credits.debit: %w", err)
	}

	a, err = scanAccount(r.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM credit_accounts WHERE user_id=$1`, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.CreditAccount{}, fmt.Errorf("op=credits.debit: %w", domain.ErrNotFound)
		}
		return domain.CreditAccount{}, fmt.Errorf("op=credits.debit: %w", err)
	}
	return domain.CreditAccount{}, &domain.InsufficientCreditsError{Remaining: a.Balance, Required: amount}
}

// appendLedger records an accounting entry. Ledger writes are best-effort;
// the balance row is the source of truth.
func (r *CreditRepo) appendLedger(ctx domain.Context, userID, action string, delta float64, note string) {
	q := `INSERT INTO credit_ledger (user_id, action, delta, note, created_at) VALUES ($1,$2,$3,$4,$5)`
	_, _ = r.Pool.Exec(ctx, q, userID, action, delta, note, time.Now().UTC())
}

// Ledger returns the most recent accounting entries for an account.
func (r *CreditRepo) Ledger(ctx domain.Context, userID string, limit int) ([]domain.CreditLedgerEntry, error) {
	tracer := otel.Tracer("repo.credits")
	ctx, span := tracer.Start(ctx, "credits.Ledger")
	defer span.End()

	q := `SELECT action, delta, created_at, note FROM credit_ledger WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=credits.ledger: %w", err)
	}
	defer rows.Close()
	var out []domain.CreditLedgerEntry
	for rows.Next() {
		var e domain.CreditLedgerEntry
		if err := rows.Scan(&e.Action, &e.Delta, &e.At, &e.Note); err != nil {
			return nil, fmt.Errorf("op=credits.ledger: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
