package chat

import (
	"context"
	"log/slog"
	"strings"

	"chat-backend/internal/database"
	"chat-backend/internal/generation"
	"chat-backend/internal/messaging"

	"github.com/google/uuid"
)

const DefaultSessionTitle = "New chat"

// ChatSessionManager owns the lifecycle of chat sessions: a session starts when it
// is created and ends, with its history, when it is deleted.
type ChatSessionManager struct {
	store     HistoryStore
	backend   generation.Backend
	publisher messaging.Publisher
	cache     *SessionCache
	opts      []ControllerOption
}

func NewChatSessionManager(store HistoryStore, backend generation.Backend, publisher messaging.Publisher, cacheSize int, opts ...ControllerOption) *ChatSessionManager {
	return &ChatSessionManager{
		store:     store,
		backend:   generation.Guard(backend),
		publisher: publisher,
		cache:     NewSessionCache(cacheSize),
		opts:      opts,
	}
}

func (manager *ChatSessionManager) BackendName() string {
	return manager.backend.Name()
}

func (manager *ChatSessionManager) StartSession(ctx context.Context, title string) (database.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultSessionTitle
	}

	session, err := manager.store.CreateSession(ctx, title)
	if err != nil {
		return session, err
	}
	slog.Info("started chat session", "session_id", session.ID, "backend", manager.backend.Name())
	return session, nil
}

func (manager *ChatSessionManager) ListSessions(ctx context.Context) ([]database.ChatSession, error) {
	return manager.store.ListSessions(ctx)
}

func (manager *ChatSessionManager) GetSessionInfo(ctx context.Context, sessionID uuid.UUID) (database.ChatSession, error) {
	return manager.store.GetSession(ctx, sessionID)
}

func (manager *ChatSessionManager) RenameSession(ctx context.Context, sessionID uuid.UUID, title string) error {
	return manager.store.RenameSession(ctx, sessionID, strings.TrimSpace(title))
}

// Acquire returns the live session and keeps it cached until release is called.
// Callers that keep the session across turns (a websocket) hold it for as long
// as they use it; release must always be called.
func (manager *ChatSessionManager) Acquire(ctx context.Context, sessionID uuid.UUID) (*ChatSession, func(), error) {
	return manager.cache.Acquire(ctx, sessionID, manager.load)
}

// Busy reports whether a reply is being generated for the session.
func (manager *ChatSessionManager) Busy(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	session, release, err := manager.Acquire(ctx, sessionID)
	if err != nil {
		return false, err
	}
	defer release()
	return session.Busy(), nil
}

func (manager *ChatSessionManager) load(ctx context.Context, sessionID uuid.UUID) (*ChatSession, error) {
	return LoadChatSession(ctx, sessionID, manager.backend, manager.store, manager.publisher, manager.opts...)
}

// EndSession discards the session and its history. A session cannot end while a
// reply is being generated for it. Anyone still holding the session gets
// ErrSessionNotFound from their next turn.
func (manager *ChatSessionManager) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	session, release, err := manager.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	if err := session.close(); err != nil {
		return err
	}

	manager.cache.Remove(sessionID)
	if err := manager.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	slog.Info("ended chat session", "session_id", sessionID)
	return nil
}

func (manager *ChatSessionManager) History(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]Turn, error) {
	if _, err := manager.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return manager.store.ListTurns(ctx, sessionID, offset, limit)
}

// Chat runs one turn on the cached instance of the session.
func (manager *ChatSessionManager) Chat(ctx context.Context, sessionID uuid.UUID, message string, presenter Presenter) (TurnResult, error) {
	session, release, err := manager.Acquire(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	defer release()

	return session.Chat(ctx, message, presenter)
}
