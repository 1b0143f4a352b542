package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chat-backend/internal/api"
	"chat-backend/internal/chat"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	sessionCookie = "chat_session"
	pageTitle     = "AI Chatbot"
)

// ChatPage serves the browser chat UI. Each browser gets its own session through
// a cookie; the session is created on the first visit.
type ChatPage struct {
	manager        *chat.ChatSessionManager
	requestTimeout time.Duration
}

func NewChatPage(manager *chat.ChatSessionManager, requestTimeout time.Duration) *ChatPage {
	return &ChatPage{manager: manager, requestTimeout: requestTimeout}
}

func (p *ChatPage) AddRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r = api.WithTimeout(r, p.requestTimeout)
		r.Get("/", p.Show)
		r.Post("/reset", p.Reset)
	})
	// a turn redirects back to the page once the backend answers or gives up
	r.Post("/messages", p.Send)
}

// currentSession returns the id of the browser's session, starting a new one
// when the cookie is missing or names a session that has ended.
func (p *ChatPage) currentSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			_, err := p.manager.GetSessionInfo(r.Context(), id)
			if err == nil {
				return id, nil
			}
			if !errors.Is(err, chat.ErrSessionNotFound) {
				return uuid.Nil, err
			}
		}
	}

	info, err := p.manager.StartSession(r.Context(), "")
	if err != nil {
		return uuid.Nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    info.ID.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return info.ID, nil
}

func (p *ChatPage) Show(w http.ResponseWriter, r *http.Request) {
	sessionID, err := p.currentSession(w, r)
	if err != nil {
		slog.Error("error loading chat session for page", "error", err)
		http.Error(w, "unable to load chat session", http.StatusInternalServerError)
		return
	}

	session, release, err := p.manager.Acquire(r.Context(), sessionID)
	if err != nil {
		slog.Error("error loading chat session for page", "session_id", sessionID, "error", err)
		http.Error(w, "unable to load chat session", http.StatusInternalServerError)
		return
	}
	data := pageData{Title: pageTitle, Turns: session.Turns(), Busy: session.Busy()}
	release()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.Error("error rendering chat page", "error", err)
	}
}

func (p *ChatPage) Send(w http.ResponseWriter, r *http.Request) {
	sessionID, err := p.currentSession(w, r)
	if err != nil {
		slog.Error("error loading chat session for message", "error", err)
		http.Error(w, "unable to load chat session", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}

	if _, err := p.manager.Chat(r.Context(), sessionID, r.PostForm.Get("message"), nil); err != nil {
		if !errors.Is(err, chat.ErrTurnInProgress) {
			slog.Error("error running chat turn from page", "session_id", sessionID, "error", err)
			http.Error(w, "unable to send message", http.StatusInternalServerError)
			return
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *ChatPage) Reset(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			if err := p.manager.EndSession(r.Context(), id); err != nil && !errors.Is(err, chat.ErrSessionNotFound) {
				slog.Warn("error ending chat session", "session_id", id, "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
