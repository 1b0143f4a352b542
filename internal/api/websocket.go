package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"chat-backend/internal/chat"
	"chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// ChatSocket runs turns for one session over a websocket. Each inbound frame is
// an api.ChatRequest; the presentation events of the turn are pushed back as
// api.ChatEvent frames followed by a result (or error) frame. The socket is
// closed after an error frame once the session has ended.
type ChatSocket struct {
	manager  *chat.ChatSessionManager
	upgrader websocket.Upgrader
}

func NewChatSocket(manager *chat.ChatSessionManager) *ChatSocket {
	return &ChatSocket{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *ChatSocket) AddRoutes(r chi.Router) {
	r.Get("/ws/sessions/{session_id}", s.ServeHTTP)
}

func (s *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}

	// pinned so the cache keeps one instance of the session while the socket is open
	_, release, err := s.manager.Acquire(r.Context(), sessionID)
	if err != nil {
		writeError(w, chatError(err))
		return
	}
	defer release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	socket := &socketPresenter{conn: conn}
	// the connection outlives any single request deadline
	ctx := context.WithoutCancel(r.Context())

	for {
		var req api.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Info("websocket closed", "session_id", sessionID, "error", err)
			}
			return
		}

		res, err := s.manager.Chat(ctx, sessionID, req.Message, socket)
		if errors.Is(err, chat.ErrSessionNotFound) {
			socket.send(api.ChatEvent{Type: api.EventError, Error: err.Error()})
			return
		}
		if err != nil {
			socket.send(api.ChatEvent{Type: api.EventError, Error: err.Error()})
			continue
		}

		result := convertResult(res)
		socket.send(api.ChatEvent{Type: api.EventResult, Result: &result})
		if socket.failed() {
			return
		}
	}
}

type socketPresenter struct {
	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

func (p *socketPresenter) send(event api.ChatEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	if err := p.conn.WriteJSON(event); err != nil {
		slog.Error("error writing websocket event", "type", event.Type, "error", err)
		p.err = err
	}
}

func (p *socketPresenter) failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err != nil
}

func (p *socketPresenter) Render(turns []chat.Turn) {
	p.send(api.ChatEvent{Type: api.EventTurns, Turns: convertTurns(turns)})
}

func (p *socketPresenter) SetBusy(busy bool) {
	p.send(api.ChatEvent{Type: api.EventBusy, Busy: busy})
}
