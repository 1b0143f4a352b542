//go:build integration
// +build integration

package integrationtests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	backend "chat-backend/internal/api"
	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/internal/messaging"
	"chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoBackend struct{}

func (echoBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "fail") {
		return "", errors.New("model unavailable")
	}
	return fmt.Sprintf("you said %d words", len(strings.Fields(prompt))), nil
}

func (echoBackend) Name() string {
	return "echo"
}

func TestChatWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	db, err := database.NewDatabase(setupPostgresContainer(t, ctx))
	require.NoError(t, err)

	amqpURL := setupRabbitMQContainer(t, ctx)

	publisher, err := messaging.NewRabbitMQPublisher(amqpURL)
	require.NoError(t, err)
	defer publisher.Close()

	receiver, err := messaging.NewRabbitMQReceiver(amqpURL)
	require.NoError(t, err)
	defer receiver.Close()

	manager := chat.NewChatSessionManager(chat.NewGormStore(db), echoBackend{}, publisher, 2)
	router := chi.NewRouter()
	backend.NewChatService(manager, 0).AddRoutes(router)

	var started api.StartSessionResponse
	require.NoError(t, httpRequest(router, http.MethodPost, "/chat/sessions", api.StartSessionRequest{Title: "integration"}, &started))

	messages := []string{"Hello there", "please fail", "Bye"}
	for _, message := range messages {
		var res api.ChatResponse
		require.NoError(t, httpRequest(router, http.MethodPost, "/chat/sessions/"+started.SessionID+"/messages", api.ChatRequest{Message: message}, &res))
		assert.True(t, res.Submitted)
		assert.NotEmpty(t, res.Reply)
	}

	var history []api.ChatTurn
	require.NoError(t, httpRequest(router, http.MethodGet, "/chat/sessions/"+started.SessionID+"/history", nil, &history))
	require.Len(t, history, 2*len(messages))

	for i, turn := range history {
		if i%2 == 0 {
			assert.Equal(t, "user", turn.Role)
			assert.Equal(t, messages[i/2], turn.Content)
		} else {
			assert.Equal(t, "assistant", turn.Role)
		}
	}
	assert.Equal(t, "you said 2 words", history[1].Content)
	assert.True(t, history[3].Failed)
	assert.Equal(t, "Error generating response: model unavailable", history[3].Content)

	received := make([]messaging.TurnEvent, 0, len(history))
	timeout := time.After(30 * time.Second)
	for len(received) < len(history) {
		select {
		case task := <-receiver.Tasks():
			var event messaging.TurnEvent
			require.NoError(t, json.Unmarshal(task.Payload(), &event))
			require.NoError(t, task.Ack())
			received = append(received, event)
		case <-timeout:
			t.Fatalf("received %d of %d turn events", len(received), len(history))
		}
	}

	for i, event := range received {
		assert.Equal(t, started.SessionID, event.SessionID.String())
		assert.Equal(t, i, event.Seq)
		assert.Equal(t, history[i].Content, event.Content)
	}
}
