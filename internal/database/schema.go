package database

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      string = "user"
	RoleAssistant string = "assistant"
)

type ChatSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time

	Turns []ChatTurn `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

type ChatTurn struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;index:idx_chat_turn_session_seq,unique"`
	Seq       int       `gorm:"not null;index:idx_chat_turn_session_seq,unique"`
	Role      string    `gorm:"size:20;not null"`
	Content   string
	Failed    bool `gorm:"default:false"`
	CreatedAt time.Time
}
