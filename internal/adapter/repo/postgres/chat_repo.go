package postgres

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// ChatRepo persists conversation history using a minimal pgx pool.
type ChatRepo struct{ Pool PgxPool }

// NewChatRepo constructs a ChatRepo with the given pool.
func NewChatRepo(p PgxPool) *ChatRepo { return &ChatRepo{Pool: p} }

var msgEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec // Weak random is sufficient for ULID entropy.

// Append stores one message, generating a ULID id when none is set. ULIDs
// sort by creation time, which keeps Recent's ordering stable for messages
// stored in the same millisecond.
func (r *ChatRepo) Append(ctx domain.Context, msg domain.StoredMessage) error {
	tracer := otel.Tracer("repo.chat")
	ctx, span := tracer.Start(ctx, "chat.Append")
	span.SetAttributes(attribute.String("user_id", msg.UserID), attribute.String("role", msg.Role))
	defer span.End()

	id := msg.ID
	if id == "" {
		id = ulid.MustNew(ulid.Timestamp(time.Now()), msgEntropy).String()
	}
	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	q := `INSERT INTO chat_messages (id, user_id, role, content, mode, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, id, msg.UserID, msg.Role, msg.Content, string(msg.Mode), at); err != nil {
		return fmt.Errorf("op=chat.append: %w", err)
	}
	return nil
}

// Recent returns the user's last messages in chronological order.
func (r *ChatRepo) Recent(ctx domain.Context, userID string, limit int) ([]domain.StoredMessage, error) {
	tracer := otel.Tracer("repo.chat")
	ctx, span := tracer.Start(ctx, "chat.Recent")
	span.SetAttributes(attribute.String("user_id", userID))
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	q := `SELECT id, user_id, role, content, mode, created_at FROM chat_messages WHERE user_id=$1 ORDER BY id DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=chat.recent: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredMessage
	for rows.Next() {
		var m domain.StoredMessage
		var mode string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &mode, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=chat.recent: %w", err)
		}
		m.Mode = domain.Mode(mode)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=chat.recent: %w", err)
	}

	// Newest-first from the query; callers want oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
