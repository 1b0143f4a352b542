package chat

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. Turns are values and are never
// modified after being appended.
type Turn struct {
	Role      Role
	Content   string
	Failed    bool
	CreatedAt time.Time
}

// ConversationHistory is the ordered list of turns for one session, oldest first.
// It is not safe for concurrent use; the TurnController that owns it serializes
// access.
type ConversationHistory struct {
	turns []Turn
}

func NewConversationHistory(turns ...Turn) *ConversationHistory {
	h := &ConversationHistory{turns: make([]Turn, 0, len(turns))}
	h.turns = append(h.turns, turns...)
	return h
}

// Append adds a turn and returns its sequence number.
func (h *ConversationHistory) Append(turn Turn) int {
	h.turns = append(h.turns, turn)
	return len(h.turns) - 1
}

func (h *ConversationHistory) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *ConversationHistory) Len() int {
	return len(h.turns)
}
