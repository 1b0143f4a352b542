package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionEntry struct {
	session      *ChatSession
	lastAccessed time.Time
	holders      int
}

type SessionLoader func(ctx context.Context, sessionID uuid.UUID) (*ChatSession, error)

// SessionCache keeps the most recently used sessions in memory. Every caller
// gets the session through Acquire and must call the returned release once it
// stops using the pointer. A session that is held or has a turn in flight is
// never evicted, so at most one instance per session id is ever live and the
// cache can exceed maxSize while many sessions are held.
type SessionCache struct {
	lock     sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
	maxSize  int
	now      func() time.Time
}

func NewSessionCache(maxSize int) *SessionCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &SessionCache{
		sessions: make(map[uuid.UUID]*sessionEntry, maxSize),
		maxSize:  maxSize,
		now:      time.Now,
	}
}

// Acquire returns the live session for sessionID, loading it if it is not
// cached, and pins it until release is called. Calling release more than once
// is harmless.
func (cache *SessionCache) Acquire(ctx context.Context, sessionID uuid.UUID, load SessionLoader) (*ChatSession, func(), error) {
	cache.lock.Lock()
	defer cache.lock.Unlock()

	entry, exists := cache.sessions[sessionID]
	if !exists {
		session, err := load(ctx, sessionID)
		if err != nil {
			return nil, nil, err
		}

		if len(cache.sessions) >= cache.maxSize {
			cache.evictOldest()
		}

		entry = &sessionEntry{session: session}
		cache.sessions[sessionID] = entry
	}

	entry.lastAccessed = cache.now()
	entry.holders++

	var once sync.Once
	release := func() {
		once.Do(func() {
			cache.lock.Lock()
			defer cache.lock.Unlock()
			entry.holders--
		})
	}

	return entry.session, release, nil
}

func (cache *SessionCache) evictOldest() {
	oldestSessionID := uuid.Nil
	var oldestTime time.Time
	for id, entry := range cache.sessions {
		if entry.holders > 0 || entry.session.Busy() {
			continue
		}
		if oldestSessionID == uuid.Nil || entry.lastAccessed.Before(oldestTime) {
			oldestSessionID = id
			oldestTime = entry.lastAccessed
		}
	}

	if oldestSessionID != uuid.Nil {
		delete(cache.sessions, oldestSessionID)
	}
}

// Remove drops the session from the cache whether or not it is held. Holders
// keep their pointer; callers close the session first so stale holders cannot
// run turns against it.
func (cache *SessionCache) Remove(sessionID uuid.UUID) {
	cache.lock.Lock()
	defer cache.lock.Unlock()
	delete(cache.sessions, sessionID)
}

func (cache *SessionCache) Len() int {
	cache.lock.Lock()
	defer cache.lock.Unlock()
	return len(cache.sessions)
}
