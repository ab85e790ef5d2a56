package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	historydb "bozorlik/internal/history/history_db"
)

// MaxEntriesPerUser caps the retained history; the oldest entries go first.
const MaxEntriesPerUser = 100

// Repository handles persistence of history entries.
type Repository struct {
	queries *historydb.Queries
	db      *sql.DB
	limit   int
}

// NewRepository creates a new history repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		queries: historydb.New(db),
		db:      db,
		limit:   MaxEntriesPerUser,
	}
}

// WithLimit changes the per-user cap. Non-positive values keep the default.
func (r *Repository) WithLimit(n int) *Repository {
	if n > 0 {
		r.limit = n
	}
	return r
}

// Append stores e for userID and evicts entries beyond the cap.
func (r *Repository) Append(ctx context.Context, userID string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	var amount sql.NullFloat64
	if e.FinalAmount != nil {
		amount = sql.NullFloat64{Float64: *e.FinalAmount, Valid: true}
	}
	if _, err := q.InsertHistoryEntry(ctx, historydb.InsertHistoryEntryParams{
		UserID:      userID,
		ListID:      e.ListID,
		Data:        string(data),
		FinalAmount: amount,
		CreatedAt:   e.Date.UTC(),
	}); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	count, err := q.CountHistoryEntries(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count history entries: %w", err)
	}
	if excess := count - int64(r.limit); excess > 0 {
		if _, err := q.DeleteOldestHistoryEntries(ctx, historydb.DeleteOldestHistoryEntriesParams{
			UserID: userID,
			Limit:  excess,
		}); err != nil {
			return fmt.Errorf("failed to evict old history entries: %w", err)
		}
	}

	return tx.Commit()
}

// List returns every entry of userID in append order.
func (r *Repository) List(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := r.queries.ListHistoryEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e, err := decodeEntry(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Last returns the most recent entry of userID, or nil when there is none.
func (r *Repository) Last(ctx context.Context, userID string) (*Entry, error) {
	row, err := r.queries.GetLastHistoryEntry(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last history entry: %w", err)
	}
	e, err := decodeEntry(row)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func decodeEntry(row historydb.UserHistory) (Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(row.Data), &e); err != nil {
		return Entry{}, fmt.Errorf("failed to unmarshal history entry %d: %w", row.ID, err)
	}
	return e, nil
}
