package api

import (
	"time"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	Title string `json:"title"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

type ChatSessionMetadata struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Busy      bool      `json:"busy"`
}

type GetSessionsResponse struct {
	Sessions []ChatSessionMetadata `json:"sessions"`
}

type RenameSessionRequest struct {
	Title string `json:"title"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatTurn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatResponse struct {
	Submitted bool       `json:"submitted"`
	Reply     string     `json:"reply"`
	Failed    bool       `json:"failed"`
	Turns     []ChatTurn `json:"turns"`
}

const (
	EventTurns  = "turns"
	EventBusy   = "busy"
	EventResult = "result"
	EventError  = "error"
)

// ChatEvent is one line of a streamed chat turn.
type ChatEvent struct {
	Type   string        `json:"type"`
	Turns  []ChatTurn    `json:"turns,omitempty"`
	Busy   bool          `json:"busy"`
	Result *ChatResponse `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type HistoryQuery struct {
	Offset int `schema:"offset"`
	Limit  int `schema:"limit"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}
