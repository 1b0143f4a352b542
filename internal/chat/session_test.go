package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/internal/messaging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createStore(t *testing.T) *chat.GormStore {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	return chat.NewGormStore(db)
}

func TestGormStore(t *testing.T) {
	ctx := context.Background()
	store := createStore(t)

	session, err := store.CreateSession(ctx, "first")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session.ID)

	require.NoError(t, store.RenameSession(ctx, session.ID, "renamed"))
	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", loaded.Title)

	for i, content := range []string{"Hi", "Hello!", "Bye", "Goodbye!"} {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		require.NoError(t, store.AppendTurn(ctx, session.ID, i, chat.Turn{Role: role, Content: content}))
	}

	turns, err := store.ListTurns(ctx, session.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "Hi", turns[0].Content)
	assert.Equal(t, chat.RoleAssistant, turns[3].Role)

	page, err := store.ListTurns(ctx, session.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Hello!", page[0].Content)
	assert.Equal(t, "Bye", page[1].Content)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	_, err = store.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	turns, err = store.ListTurns(ctx, session.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, turns)

	assert.ErrorIs(t, store.DeleteSession(ctx, session.ID), chat.ErrSessionNotFound)
	assert.ErrorIs(t, store.RenameSession(ctx, uuid.New(), "x"), chat.ErrSessionNotFound)
}

func TestChatSessionPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := createStore(t)
	queue := messaging.NewInMemoryQueue(10)

	info, err := store.CreateSession(ctx, "test")
	require.NoError(t, err)

	session := chat.NewChatSession(info.ID, nil, echoBackend(), store, queue)
	_, err = session.Chat(ctx, "Hello", nil)
	require.NoError(t, err)

	turns, err := store.ListTurns(ctx, info.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "Hello", turns[0].Content)
	assert.Equal(t, "you said: Hello", turns[1].Content)

	for seq, role := range []string{"user", "assistant"} {
		task := <-queue.Tasks()
		var event messaging.TurnEvent
		require.NoError(t, json.Unmarshal(task.Payload(), &event))
		assert.Equal(t, info.ID, event.SessionID)
		assert.Equal(t, seq, event.Seq)
		assert.Equal(t, role, event.Role)
	}

	reloaded, err := chat.LoadChatSession(ctx, info.ID, echoBackend(), store, queue)
	require.NoError(t, err)
	require.Len(t, reloaded.Turns(), 2)
	for i, turn := range reloaded.Turns() {
		assert.Equal(t, session.Turns()[i].Role, turn.Role)
		assert.Equal(t, session.Turns()[i].Content, turn.Content)
	}

	_, err = reloaded.Chat(ctx, "Again", nil)
	require.NoError(t, err)
	turns, err = store.ListTurns(ctx, info.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, turns, 4)
}

func TestFailedTurnIsPersisted(t *testing.T) {
	ctx := context.Background()
	store := createStore(t)

	info, err := store.CreateSession(ctx, "test")
	require.NoError(t, err)

	backend := &scriptedBackend{reply: func(string) (string, error) { return "", errors.New("timeout") }}
	session := chat.NewChatSession(info.ID, nil, backend, store, nil)
	_, err = session.Chat(ctx, "X", nil)
	require.NoError(t, err)

	turns, err := store.ListTurns(ctx, info.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.True(t, turns[1].Failed)
	assert.Contains(t, turns[1].Content, "Error")
}

func TestLoadMissingSession(t *testing.T) {
	_, err := chat.LoadChatSession(context.Background(), uuid.New(), echoBackend(), createStore(t), nil)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestSessionManager(t *testing.T) {
	ctx := context.Background()
	manager := chat.NewChatSessionManager(createStore(t), echoBackend(), nil, 2)

	info, err := manager.StartSession(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, chat.DefaultSessionTitle, info.Title)

	res, err := manager.Chat(ctx, info.ID, "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "you said: Hello", res.Reply.Content)

	history, err := manager.History(ctx, info.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, manager.EndSession(ctx, info.ID))
	_, err = manager.History(ctx, info.ID, 0, 0)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	_, err = manager.Chat(ctx, info.ID, "Hello", nil)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	sessions, err := manager.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestHeldSessionSurvivesEviction(t *testing.T) {
	ctx := context.Background()
	store := createStore(t)
	manager := chat.NewChatSessionManager(store, echoBackend(), nil, 1)

	first, err := manager.StartSession(ctx, "held")
	require.NoError(t, err)
	second, err := manager.StartSession(ctx, "other")
	require.NoError(t, err)

	held, release, err := manager.Acquire(ctx, first.ID)
	require.NoError(t, err)
	defer release()

	// loading another session with a cache of one would evict an unheld session
	_, err = manager.Chat(ctx, second.ID, "Hi", nil)
	require.NoError(t, err)

	_, err = manager.Chat(ctx, first.ID, "from rest", nil)
	require.NoError(t, err)

	res, err := held.Chat(ctx, "from socket", nil)
	require.NoError(t, err)
	require.Len(t, res.Turns, 4)
	assert.Equal(t, "from rest", res.Turns[0].Content)
	assert.Equal(t, "from socket", res.Turns[2].Content)

	history, err := manager.History(ctx, first.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, turn := range history {
		assert.Equal(t, res.Turns[i].Content, turn.Content)
	}
}

func TestEndSessionStopsHolders(t *testing.T) {
	ctx := context.Background()
	store := createStore(t)
	manager := chat.NewChatSessionManager(store, echoBackend(), nil, 2)

	info, err := manager.StartSession(ctx, "")
	require.NoError(t, err)

	held, release, err := manager.Acquire(ctx, info.ID)
	require.NoError(t, err)
	defer release()

	_, err = held.Chat(ctx, "Hello", nil)
	require.NoError(t, err)

	require.NoError(t, manager.EndSession(ctx, info.ID))

	_, err = held.Chat(ctx, "still there?", nil)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	turns, err := store.ListTurns(ctx, info.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, turns)

	err = store.AppendTurn(ctx, info.ID, 2, chat.Turn{Role: chat.RoleUser, Content: "orphan"})
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}
