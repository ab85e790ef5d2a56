// Package session keeps each user's single active list between requests.
package session

import (
	"context"
	"sync"
	"time"

	"bozorlik/internal/shopping"
)

// Session is the active list of one user.
type Session struct {
	UserID       string                `json:"user_id"`
	Language     string                `json:"language"`
	Categories   *shopping.CategoryMap `json:"categories"`
	Snapshot     shopping.Snapshot     `json:"list_data"`
	LastMessage  string                `json:"last_message"`
	LastResponse string                `json:"last_response"`
	CreatedAt    time.Time             `json:"created_at"`
	IsShared     bool                  `json:"is_shared"`
}

// Clone returns a copy that shares no category storage with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Categories = s.Categories.Clone()
	out.Snapshot.Categories = s.Snapshot.Categories.Clone()
	out.Snapshot.Items = append([]shopping.SnapshotItem(nil), s.Snapshot.Items...)
	return &out
}

// Store holds active lists. Get returns nil, nil when the user has none.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID].Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Locks serializes work per user id. Entries are dropped once unused.
type Locks struct {
	mu    sync.Mutex
	users map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{users: make(map[string]*userLock)}
}

// Lock blocks until userID is free and returns the matching unlock.
func (l *Locks) Lock(userID string) func() {
	l.mu.Lock()
	ul, ok := l.users[userID]
	if !ok {
		ul = &userLock{}
		l.users[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.users, userID)
		}
		l.mu.Unlock()
	}
}

// Len reports how many users currently hold or wait for a lock.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
