package share

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sharedb "bozorlik/internal/share/share_db"
	"bozorlik/internal/shopping"
)

// Repository handles persistence of shared lists.
type Repository struct {
	queries *sharedb.Queries
	db      *sql.DB
}

// NewRepository creates a new shared list repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		queries: sharedb.New(db),
		db:      db,
	}
}

// Save creates or replaces a shared list. A list owned by someone else is
// left untouched and ErrNotOwner is returned.
func (r *Repository) Save(ctx context.Context, l *SharedList) error {
	data, err := json.Marshal(l.ListData)
	if err != nil {
		return fmt.Errorf("failed to marshal shared list: %w", err)
	}

	n, err := r.queries.InsertSharedList(ctx, sharedb.InsertSharedListParams{
		ListID:    l.ListID,
		OwnerID:   l.OwnerID,
		Lang:      l.Lang,
		ListData:  string(data),
		CreatedAt: l.CreatedAt,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotOwner
	}
	return nil
}

// Get retrieves a shared list by id.
func (r *Repository) Get(ctx context.Context, listID string) (*SharedList, error) {
	row, err := r.queries.GetSharedList(ctx, listID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shared list: %w", err)
	}

	var snap shopping.Snapshot
	if err := json.Unmarshal([]byte(row.ListData), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shared list: %w", err)
	}

	return &SharedList{
		ListID:    row.ListID,
		OwnerID:   row.OwnerID,
		Lang:      row.Lang,
		ListData:  snap,
		CreatedAt: row.CreatedAt,
	}, nil
}
