//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/testutil"
)

func TestPGStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewConversationPGStore(pool)

	id, err := store.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	conv, err := store.GetConversation(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTitle, conv.Title)
	assert.Empty(t, conv.Messages)

	_, err = store.GetConversation(ctx, "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestPGStore_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewConversationPGStore(pool)

	id, err := store.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx, "u1", id, domain.RoleUser, "Why do cramps hurt?"))
	require.NoError(t, store.AppendMessage(ctx, "u1", id, domain.RoleAssistant, "The uterus contracts."))

	conv, err := store.GetConversation(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Why do cramps hurt?", conv.Title)
	require.Len(t, conv.Messages, 2)

	messages, err := store.History(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
}

func TestPGStore_AppendCreatesConversation(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewConversationPGStore(pool)

	require.NoError(t, store.AppendMessage(ctx, "u1", "implicit", domain.RoleUser, "hello"))

	conv, err := store.GetConversation(ctx, "u1", "implicit")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)
	assert.Equal(t, "hello", conv.Title)
}

func TestPGStore_ListDeleteClear(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewConversationPGStore(pool)

	first, err := store.CreateConversation(ctx, "u1")
	require.NoError(t, err)
	second, err := store.CreateConversation(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, "u1", first, domain.RoleUser, "bump"))

	summaries, err := store.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first, summaries[0].ConversationID)
	assert.Equal(t, 1, summaries[0].MessageCount)

	require.NoError(t, store.DeleteConversation(ctx, "u1", second))
	assert.ErrorIs(t, store.DeleteConversation(ctx, "u1", second), domain.ErrConversationNotFound)

	require.NoError(t, store.ClearHistory(ctx, "u1"))
	summaries, err = store.ListConversations(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestPGStore_PruneConversations(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewConversationPGStore(pool)

	stale, err := store.CreateConversation(ctx, "u1")
	require.NoError(t, err)
	fresh, err := store.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	// Backdate one conversation past the retention window.
	_, err = pool.Exec(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE conversation_id = $2`,
		time.Now().UTC().Add(-48*time.Hour), stale,
	)
	require.NoError(t, err)

	pruned, err := store.PruneConversations(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = store.GetConversation(ctx, "u1", stale)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	_, err = store.GetConversation(ctx, "u1", fresh)
	assert.NoError(t, err)
}
