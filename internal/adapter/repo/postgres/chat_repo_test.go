package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

func TestChatRepo_Append_GeneratesULID(t *testing.T) {
	t.Parallel()
	pool := &fakePool{}
	repo := NewChatRepo(pool)

	err := repo.Append(context.Background(), domain.StoredMessage{
		UserID: "u1", Role: "user", Content: "explain slices", Mode: domain.ModeGeneral,
	})
	require.NoError(t, err)

	require.Len(t, pool.execs, 1)
	assert.Contains(t, pool.execs[0].sql, "INSERT INTO chat_messages")
	id, ok := pool.execs[0].args[0].(string)
	require.True(t, ok)
	_, err = ulid.Parse(id)
	assert.NoError(t, err, "generated id %q is not a ULID", id)
	assert.Equal(t, "u1", pool.execs[0].args[1])
	assert.Equal(t, "user", pool.execs[0].args[2])
}

func TestChatRepo_Append_KeepsExplicitID(t *testing.T) {
	t.Parallel()
	pool := &fakePool{}
	repo := NewChatRepo(pool)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := repo.Append(context.Background(), domain.StoredMessage{
		ID: "01JMXYZ", UserID: "u1", Role: "assistant", Content: "ok", Mode: domain.ModeCoding, CreatedAt: at,
	})
	require.NoError(t, err)
	assert.Equal(t, "01JMXYZ", pool.execs[0].args[0])
	assert.Equal(t, at, pool.execs[0].args[5])
}

func TestChatRepo_Recent_ChronologicalOrder(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	// Scripted newest-first, the way ORDER BY id DESC returns them.
	pool := &fakePool{queryRows: &fakeRows{rows: [][]any{
		{"id3", "u1", "assistant", "third", "general", now},
		{"id2", "u1", "user", "second", "general", now},
		{"id1", "u1", "user", "first", "general", now},
	}}}
	repo := NewChatRepo(pool)

	out, err := repo.Recent(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Content)
	assert.Equal(t, "second", out[1].Content)
	assert.Equal(t, "third", out[2].Content)
	assert.Equal(t, domain.ModeGeneral, out[0].Mode)
}

func TestChatRepo_Recent_QueryError(t *testing.T) {
	t.Parallel()
	pool := &fakePool{queryErr: assert.AnError}
	repo := NewChatRepo(pool)

	_, err := repo.Recent(context.Background(), "u1", 10)
	require.Error(t, err)
}
