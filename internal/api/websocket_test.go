package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	backend "chat-backend/internal/api"
	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSocketServer(t *testing.T, generator *mockBackend) (*httptest.Server, *chat.ChatSessionManager) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)

	manager := chat.NewChatSessionManager(chat.NewGormStore(db), generator, nil, 4)
	router := chi.NewRouter()
	backend.NewChatSocket(manager).AddRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, manager
}

func socketURL(server *httptest.Server, sessionID uuid.UUID) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/" + sessionID.String()
}

func readUntilResult(t *testing.T, conn *websocket.Conn) []api.ChatEvent {
	var events []api.ChatEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	for {
		var event api.ChatEvent
		require.NoError(t, conn.ReadJSON(&event))
		events = append(events, event)
		if event.Type == api.EventResult || event.Type == api.EventError {
			return events
		}
	}
}

func TestChatSocket(t *testing.T) {
	server, manager := createSocketServer(t, replyWith("Hi there"))

	session, err := manager.StartSession(context.Background(), "")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(socketURL(server, session.ID), nil)
	require.NoError(t, err)
	defer conn.Close()

	for i, message := range []string{"Hello", "Bye"} {
		require.NoError(t, conn.WriteJSON(api.ChatRequest{Message: message}))
		events := readUntilResult(t, conn)

		result := events[len(events)-1]
		require.Equal(t, api.EventResult, result.Type)
		require.NotNil(t, result.Result)
		assert.True(t, result.Result.Submitted)
		assert.Equal(t, "Hi there", result.Result.Reply)
		assert.Len(t, result.Result.Turns, 2*(i+1))

		var busy []bool
		for _, event := range events {
			if event.Type == api.EventBusy {
				busy = append(busy, event.Busy)
			}
		}
		assert.Equal(t, []bool{true, false}, busy)
	}

	history, err := manager.History(context.Background(), session.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestChatSocketEmptyMessage(t *testing.T) {
	server, manager := createSocketServer(t, replyWith("unused"))

	session, err := manager.StartSession(context.Background(), "")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(socketURL(server, session.ID), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(api.ChatRequest{Message: "  "}))
	events := readUntilResult(t, conn)
	require.Len(t, events, 1)
	assert.False(t, events[0].Result.Submitted)
	assert.Empty(t, events[0].Result.Turns)
}

func TestChatSocketUnknownSession(t *testing.T) {
	server, _ := createSocketServer(t, replyWith("unused"))

	_, res, err := websocket.DefaultDialer.Dial(socketURL(server, uuid.New()), nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestChatSocketSessionEnded(t *testing.T) {
	server, manager := createSocketServer(t, replyWith("Hi there"))

	session, err := manager.StartSession(context.Background(), "")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(socketURL(server, session.ID), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(api.ChatRequest{Message: "Hello"}))
	readUntilResult(t, conn)

	require.NoError(t, manager.EndSession(context.Background(), session.ID))

	require.NoError(t, conn.WriteJSON(api.ChatRequest{Message: "Still there?"}))
	events := readUntilResult(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, api.EventError, events[0].Type)

	// the server closes the socket once the session is gone
	var event api.ChatEvent
	assert.Error(t, conn.ReadJSON(&event))

	history, err := manager.History(context.Background(), session.ID, 0, 0)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.Empty(t, history)
}
