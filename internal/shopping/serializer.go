package shopping

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// SnapshotItem is a line item tagged with its category.
type SnapshotItem struct {
	LineItem
	Category string `json:"category"`
}

// Snapshot is a serialized, point-in-time view of a category map.
type Snapshot struct {
	Categories          *CategoryMap   `json:"categories"`
	Items               []SnapshotItem `json:"items"`
	TotalItems          int            `json:"total_items"`
	PurchasedItems      int            `json:"purchased_items"`
	TotalEstimatedPrice int64          `json:"total_estimated_price"`
	ListID              string         `json:"list_id"`
	CreatedAt           time.Time      `json:"created_at"`
	AllPurchased        bool           `json:"all_purchased"`
}

// Serializer builds snapshots. Now and NewID are replaceable in tests.
type Serializer struct {
	Now   func() time.Time
	NewID func() string
}

// NewSerializer returns a serializer using the wall clock and random ids.
func NewSerializer() *Serializer {
	return &Serializer{Now: time.Now, NewID: NewListID}
}

// Serialize uses the default serializer.
func Serialize(cm *CategoryMap) Snapshot {
	return NewSerializer().Serialize(cm)
}

// Serialize flattens cm into a snapshot with fresh id and timestamp.
func (s *Serializer) Serialize(cm *CategoryMap) Snapshot {
	snap := Snapshot{
		Categories: cm.Clone(),
		Items:      []SnapshotItem{},
		ListID:     s.NewID(),
		CreatedAt:  s.Now(),
	}

	for _, label := range cm.Keys() {
		items := cm.Items(label)
		snap.TotalItems += len(items)
		for _, item := range items {
			if item.Purchased {
				snap.PurchasedItems++
			}
			if item.EstimatedPrice != nil {
				snap.TotalEstimatedPrice += *item.EstimatedPrice
			}
			snap.Items = append(snap.Items, SnapshotItem{LineItem: item, Category: label})
		}
	}

	snap.AllPurchased = snap.TotalItems > 0 && snap.PurchasedItems == snap.TotalItems
	return snap
}

// NewListID returns 16 random hex characters.
func NewListID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
