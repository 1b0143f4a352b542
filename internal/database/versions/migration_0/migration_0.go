package migration_0

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tables as they were first released, before turns were flagged as failed.

type ChatSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ChatTurn struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;index:idx_chat_turn_session_seq,unique"`
	Seq       int       `gorm:"not null;index:idx_chat_turn_session_seq,unique"`
	Role      string    `gorm:"size:20;not null"`
	Content   string
	CreatedAt time.Time
}

func Migration(db *gorm.DB) error {
	return db.AutoMigrate(&ChatSession{}, &ChatTurn{})
}
