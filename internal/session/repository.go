package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	sessiondb "bozorlik/internal/session/session_db"
)

// Repository is the sqlite-backed Store.
type Repository struct {
	queries *sessiondb.Queries
	db      *sql.DB
}

// NewRepository creates a new Repository instance
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		queries: sessiondb.New(db),
		db:      db,
	}
}

// Get retrieves the active list of a user, or nil if there is none.
func (r *Repository) Get(ctx context.Context, userID string) (*Session, error) {
	row, err := r.queries.GetActiveList(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active list: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(row.Data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active list: %w", err)
	}
	return &s, nil
}

// Put stores s, replacing any previous list of the same user.
func (r *Repository) Put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal active list: %w", err)
	}

	return r.queries.UpsertActiveList(ctx, sessiondb.UpsertActiveListParams{
		UserID:    s.UserID,
		Language:  s.Language,
		Data:      string(data),
		UpdatedAt: time.Now().UTC(),
	})
}

// Delete removes the active list of a user.
func (r *Repository) Delete(ctx context.Context, userID string) error {
	return r.queries.DeleteActiveList(ctx, userID)
}

// LanguageStore remembers each user's language. Get returns "" when unknown.
type LanguageStore interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID, lang string) error
}

// LanguageRepository is the sqlite-backed LanguageStore.
type LanguageRepository struct {
	queries *sessiondb.Queries
}

// NewLanguageRepository creates a new LanguageRepository instance
func NewLanguageRepository(db *sql.DB) *LanguageRepository {
	return &LanguageRepository{queries: sessiondb.New(db)}
}

func (r *LanguageRepository) Get(ctx context.Context, userID string) (string, error) {
	lang, err := r.queries.GetUserLanguage(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get user language: %w", err)
	}
	return lang, nil
}

func (r *LanguageRepository) Set(ctx context.Context, userID, lang string) error {
	return r.queries.UpsertUserLanguage(ctx, sessiondb.UpsertUserLanguageParams{
		UserID:    userID,
		Language:  lang,
		UpdatedAt: time.Now().UTC(),
	})
}

// MemoryLanguages is a process-local LanguageStore.
type MemoryLanguages struct {
	mu    sync.RWMutex
	langs map[string]string
}

func NewMemoryLanguages() *MemoryLanguages {
	return &MemoryLanguages{langs: make(map[string]string)}
}

func (m *MemoryLanguages) Get(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.langs[userID], nil
}

func (m *MemoryLanguages) Set(_ context.Context, userID, lang string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.langs[userID] = lang
	return nil
}
