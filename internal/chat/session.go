package chat

import (
	"context"
	"fmt"
	"log/slog"

	"chat-backend/internal/generation"
	"chat-backend/internal/messaging"

	"github.com/google/uuid"
)

// ChatSession is one live conversation: its history, the controller that runs
// turns against it and the sinks each appended turn is written to.
type ChatSession struct {
	id         uuid.UUID
	store      HistoryStore
	publisher  messaging.Publisher
	controller *TurnController
}

func NewChatSession(sessionID uuid.UUID, history *ConversationHistory, backend generation.Backend, store HistoryStore, publisher messaging.Publisher, opts ...ControllerOption) *ChatSession {
	session := &ChatSession{
		id:        sessionID,
		store:     store,
		publisher: publisher,
	}
	opts = append([]ControllerOption{WithRecorder(session)}, opts...)
	session.controller = NewTurnController(history, backend, opts...)
	return session
}

// LoadChatSession rebuilds a session's history from the store.
func LoadChatSession(ctx context.Context, sessionID uuid.UUID, backend generation.Backend, store HistoryStore, publisher messaging.Publisher, opts ...ControllerOption) (*ChatSession, error) {
	if _, err := store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	turns, err := store.ListTurns(ctx, sessionID, 0, 0)
	if err != nil {
		return nil, err
	}

	return NewChatSession(sessionID, NewConversationHistory(turns...), backend, store, publisher, opts...), nil
}

func (session *ChatSession) ID() uuid.UUID {
	return session.id
}

func (session *ChatSession) Busy() bool {
	return session.controller.Busy()
}

func (session *ChatSession) close() error {
	return session.controller.Close()
}

func (session *ChatSession) Turns() []Turn {
	return session.controller.Turns()
}

// Chat runs one turn. The presenter may be nil.
func (session *ChatSession) Chat(ctx context.Context, message string, presenter Presenter) (TurnResult, error) {
	res, err := session.controller.Submit(ctx, message, presenter)
	if err != nil {
		return res, fmt.Errorf("error running chat turn for session %v: %w", session.id, err)
	}
	return res, nil
}

func (session *ChatSession) RecordTurn(ctx context.Context, seq int, turn Turn) error {
	if session.store != nil {
		if err := session.store.AppendTurn(ctx, session.id, seq, turn); err != nil {
			return err
		}
	}

	if session.publisher != nil {
		event := messaging.TurnEvent{
			SessionID: session.id,
			Seq:       seq,
			Role:      string(turn.Role),
			Content:   turn.Content,
			Failed:    turn.Failed,
			CreatedAt: turn.CreatedAt,
		}
		if err := session.publisher.PublishTurn(ctx, event); err != nil {
			slog.Warn("error publishing turn event", "session_id", session.id, "seq", seq, "error", err)
		}
	}

	return nil
}
