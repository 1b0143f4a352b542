package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chat-backend/internal/chat"
	"chat-backend/pkg/api"
)

type ChatService struct {
	manager        *chat.ChatSessionManager
	requestTimeout time.Duration
}

// NewChatService builds the REST surface. requestTimeout bounds the session
// bookkeeping routes only; turns are bounded by the backend's own timeout and
// always answer 200 with an assistant turn, so they are not wrapped.
func NewChatService(manager *chat.ChatSessionManager, requestTimeout time.Duration) *ChatService {
	return &ChatService{manager: manager, requestTimeout: requestTimeout}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(s.Health))

	r.Route("/chat", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r = WithTimeout(r, s.requestTimeout)
			r.Get("/sessions", RestHandler(s.GetSessions))
			r.Post("/sessions", RestHandler(s.StartSession))
			r.Get("/sessions/{session_id}", RestHandler(s.GetSession))
			r.Delete("/sessions/{session_id}", RestHandler(s.EndSession))
			r.Post("/sessions/{session_id}/rename", RestHandler(s.RenameSession))
			r.Get("/sessions/{session_id}/history", RestHandler(s.GetHistory))
		})

		r.Post("/sessions/{session_id}/messages", RestHandler(s.SendMessage))
		r.Post("/sessions/{session_id}/messages/stream", RestStreamHandler(s.StreamMessage))
	})
}

func chatError(err error) error {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		return CodedError(http.StatusNotFound, err)
	case errors.Is(err, chat.ErrTurnInProgress):
		return CodedError(http.StatusConflict, err)
	default:
		return err
	}
}

func (s *ChatService) Health(r *http.Request) (any, error) {
	return api.HealthResponse{Status: "ok", Backend: s.manager.BackendName()}, nil
}

func (s *ChatService) GetSessions(r *http.Request) (any, error) {
	sessions, err := s.manager.ListSessions(r.Context())
	if err != nil {
		return nil, err
	}

	resp := api.GetSessionsResponse{Sessions: make([]api.ChatSessionMetadata, 0, len(sessions))}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, api.ChatSessionMetadata{
			ID:        session.ID,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
		})
	}
	return resp, nil
}

func (s *ChatService) StartSession(r *http.Request) (any, error) {
	req, err := ParseRequest[api.StartSessionRequest](r)
	if err != nil {
		return nil, err
	}

	session, err := s.manager.StartSession(r.Context(), req.Title)
	if err != nil {
		return nil, err
	}

	return api.StartSessionResponse{SessionID: session.ID.String()}, nil
}

func (s *ChatService) GetSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	busy, err := s.manager.Busy(r.Context(), sessionID)
	if err != nil {
		return nil, chatError(err)
	}

	info, err := s.manager.GetSessionInfo(r.Context(), sessionID)
	if err != nil {
		return nil, chatError(err)
	}

	return api.ChatSessionMetadata{
		ID:        info.ID,
		Title:     info.Title,
		CreatedAt: info.CreatedAt,
		Busy:      busy,
	}, nil
}

func (s *ChatService) EndSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	if err := s.manager.EndSession(r.Context(), sessionID); err != nil {
		return nil, chatError(err)
	}

	return nil, nil
}

func (s *ChatService) RenameSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[api.RenameSessionRequest](r)
	if err != nil {
		return nil, err
	}

	if err := s.manager.RenameSession(r.Context(), sessionID, req.Title); err != nil {
		return nil, chatError(err)
	}

	return nil, nil
}

func (s *ChatService) SendMessage(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.ChatRequest](r)
	if err != nil {
		return nil, err
	}

	res, err := s.manager.Chat(r.Context(), sessionID, req.Message, nil)
	if err != nil {
		return nil, chatError(err)
	}

	return convertResult(res), nil
}

// streamPresenter forwards presentation updates to the response stream until the
// client stops reading.
type streamPresenter struct {
	yield   func(any, error) bool
	stopped bool
}

func (p *streamPresenter) send(event api.ChatEvent) {
	if p.stopped {
		return
	}
	if !p.yield(event, nil) {
		p.stopped = true
	}
}

func (p *streamPresenter) Render(turns []chat.Turn) {
	p.send(api.ChatEvent{Type: api.EventTurns, Turns: convertTurns(turns)})
}

func (p *streamPresenter) SetBusy(busy bool) {
	p.send(api.ChatEvent{Type: api.EventBusy, Busy: busy})
}

func (s *ChatService) StreamMessage(r *http.Request) (StreamResponse, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.ChatRequest](r)
	if err != nil {
		return nil, err
	}

	busy, err := s.manager.Busy(r.Context(), sessionID)
	if err != nil {
		return nil, chatError(err)
	}
	if busy {
		return nil, chatError(chat.ErrTurnInProgress)
	}

	return func(yield func(any, error) bool) {
		presenter := &streamPresenter{yield: yield}

		res, err := s.manager.Chat(r.Context(), sessionID, req.Message, presenter)
		if presenter.stopped {
			return
		}
		if err != nil {
			yield(nil, chatError(err))
			return
		}

		result := convertResult(res)
		yield(api.ChatEvent{Type: api.EventResult, Result: &result}, nil)
	}, nil
}

func (s *ChatService) GetHistory(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	query, err := ParseRequestQueryParams[api.HistoryQuery](r)
	if err != nil {
		return nil, err
	}
	if query.Offset < 0 || query.Limit < 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "offset and limit must not be negative")
	}

	turns, err := s.manager.History(r.Context(), sessionID, query.Offset, query.Limit)
	if err != nil {
		return nil, chatError(err)
	}

	return convertTurns(turns), nil
}

func convertTurns(turns []chat.Turn) []api.ChatTurn {
	out := make([]api.ChatTurn, 0, len(turns))
	for _, turn := range turns {
		out = append(out, api.ChatTurn{
			Role:      string(turn.Role),
			Content:   turn.Content,
			Failed:    turn.Failed,
			Timestamp: turn.CreatedAt,
		})
	}
	return out
}

func convertResult(res chat.TurnResult) api.ChatResponse {
	return api.ChatResponse{
		Submitted: res.Submitted,
		Reply:     res.Reply.Content,
		Failed:    res.Reply.Failed,
		Turns:     convertTurns(res.Turns),
	}
}
