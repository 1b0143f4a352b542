package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TurnQueue       = "chat_turns"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

// TurnEvent is published for every turn appended to a conversation.
type TurnEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Failed    bool      `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type Publisher interface {
	PublishTurn(ctx context.Context, event TurnEvent) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
