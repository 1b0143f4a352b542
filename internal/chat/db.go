package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chat-backend/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("chat session not found")

// HistoryStore persists sessions and the turns appended to them.
type HistoryStore interface {
	CreateSession(ctx context.Context, title string) (database.ChatSession, error)

	ListSessions(ctx context.Context) ([]database.ChatSession, error)

	GetSession(ctx context.Context, sessionID uuid.UUID) (database.ChatSession, error)

	RenameSession(ctx context.Context, sessionID uuid.UUID, title string) error

	DeleteSession(ctx context.Context, sessionID uuid.UUID) error

	AppendTurn(ctx context.Context, sessionID uuid.UUID, seq int, turn Turn) error

	ListTurns(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]Turn, error)
}

type GormStore struct {
	db *gorm.DB

	// SQLite only supports one writer at a time, so we need a lock
	// whenever we write to the database
	writeMu sync.Mutex
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateSession(ctx context.Context, title string) (database.ChatSession, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	session := database.ChatSession{ID: uuid.New(), Title: title}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return database.ChatSession{}, fmt.Errorf("error creating chat session: %w", err)
	}
	return session, nil
}

func (s *GormStore) ListSessions(ctx context.Context) ([]database.ChatSession, error) {
	var sessions []database.ChatSession
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("error listing chat sessions: %w", err)
	}
	return sessions, nil
}

func (s *GormStore) GetSession(ctx context.Context, sessionID uuid.UUID) (database.ChatSession, error) {
	var session database.ChatSession
	err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session, ErrSessionNotFound
	}
	if err != nil {
		return session, fmt.Errorf("error loading chat session %v: %w", sessionID, err)
	}
	return session, nil
}

func (s *GormStore) RenameSession(ctx context.Context, sessionID uuid.UUID, title string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := s.db.WithContext(ctx).Model(&database.ChatSession{ID: sessionID}).Update("title", title)
	if res.Error != nil {
		return fmt.Errorf("error renaming chat session %v: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *GormStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Delete(&database.ChatTurn{}, "session_id = ?", sessionID).Error; err != nil {
			return fmt.Errorf("error deleting chat turns: %w", err)
		}
		res := txn.Delete(&database.ChatSession{}, "id = ?", sessionID)
		if res.Error != nil {
			return fmt.Errorf("error deleting chat session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
}

func (s *GormStore) AppendTurn(ctx context.Context, sessionID uuid.UUID, seq int, turn Turn) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	row := database.ChatTurn{
		SessionID: sessionID,
		Seq:       seq,
		Role:      string(turn.Role),
		Content:   turn.Content,
		Failed:    turn.Failed,
		CreatedAt: turn.CreatedAt,
	}
	return s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var sessions int64
		if err := txn.Model(&database.ChatSession{}).Where("id = ?", sessionID).Count(&sessions).Error; err != nil {
			return fmt.Errorf("error checking chat session: %w", err)
		}
		if sessions == 0 {
			return ErrSessionNotFound
		}
		if err := txn.Create(&row).Error; err != nil {
			return fmt.Errorf("error saving chat turn %d: %w", seq, err)
		}
		return nil
	})
}

// ListTurns returns turns in chronological order. A limit <= 0 means no limit.
func (s *GormStore) ListTurns(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]Turn, error) {
	query := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("seq ASC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []database.ChatTurn
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error loading chat history: %w", err)
	}

	turns := make([]Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, Turn{
			Role:      Role(row.Role),
			Content:   row.Content,
			Failed:    row.Failed,
			CreatedAt: row.CreatedAt,
		})
	}
	return turns, nil
}
