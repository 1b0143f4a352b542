package migration_1_test

import (
	"path/filepath"
	"testing"
	"time"

	"chat-backend/internal/database/versions/migration_0"
	"chat-backend/internal/database/versions/migration_1"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type turnRow struct {
	ID      uint
	Content string
	Failed  bool
}

func (turnRow) TableName() string {
	return "chat_turns"
}

func TestMigrationAddsFailedColumn(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "chat.db")), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, migration_0.Migration(db))

	sessionId := uuid.New()
	require.NoError(t, db.Create(&migration_0.ChatSession{ID: sessionId, Title: "old", CreatedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&migration_0.ChatTurn{SessionID: sessionId, Seq: 0, Role: "user", Content: "Hello"}).Error)

	require.NoError(t, migration_1.Migration(db))
	assert.True(t, db.Migrator().HasColumn("chat_turns", "failed"))

	var rows []turnRow
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hello", rows[0].Content)
	assert.False(t, rows[0].Failed)
}
