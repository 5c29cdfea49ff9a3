package verification

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// SessionTTL bounds how long an abandoned session is kept.
const SessionTTL = 24 * time.Hour

// SessionStore persists sessions. Put must reject a session whose Version
// no longer matches the stored one with ErrStale, and bump Version on
// success.
type SessionStore interface {
	Get(ctx context.Context, id string) (Session, error)
	Put(ctx context.Context, s *Session) error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memEntry
	now      func() time.Time
}

type memEntry struct {
	raw     []byte
	version int
	expires time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memEntry), now: time.Now}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok && m.now().After(e.expires) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal(e.raw, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if ok && cur.version != s.Version {
		return ErrStale
	}
	if !ok && s.Version != 0 {
		return ErrSessionNotFound
	}
	s.Version++
	raw, err := json.Marshal(s)
	if err != nil {
		s.Version--
		return err
	}
	m.sessions[s.ID] = memEntry{raw: raw, version: s.Version, expires: m.now().Add(SessionTTL)}
	return nil
}

var _ SessionStore = (*MemoryStore)(nil)
