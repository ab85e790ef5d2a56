// Package history archives list snapshots per user and folds them into spend
// analytics.
package history

import (
	"time"

	"bozorlik/internal/shopping"

	"github.com/samber/lo"
)

// RecentLimit is how many entries analytics returns verbatim.
const RecentLimit = 20

// Item is the denormalized view of an archived line item.
type Item struct {
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	Purchased bool   `json:"purchased"`
}

// Entry is an archived snapshot plus the amount the user actually spent.
type Entry struct {
	ListID         string         `json:"list_id"`
	Date           time.Time      `json:"date"`
	ItemsCount     int            `json:"items_count"`
	EstimatedPrice int64          `json:"estimated_price"`
	FinalAmount    *float64       `json:"final_amount"`
	Items          []Item         `json:"items"`
	PurchasedItems int            `json:"purchased_items"`
	Categories     map[string]int `json:"categories"`
}

// NewEntry archives snap at now. finalAmount may be nil.
func NewEntry(snap shopping.Snapshot, finalAmount *float64, now time.Time) Entry {
	e := Entry{
		ListID:         snap.ListID,
		Date:           now,
		ItemsCount:     snap.TotalItems,
		EstimatedPrice: snap.TotalEstimatedPrice,
		FinalAmount:    finalAmount,
		Items:          []Item{},
		PurchasedItems: snap.PurchasedItems,
		Categories:     map[string]int{},
	}
	if e.ListID == "" {
		e.ListID = shopping.NewListID()
	}
	for _, label := range snap.Categories.Keys() {
		items := snap.Categories.Items(label)
		e.Categories[label] = len(items)
		for _, it := range items {
			e.Items = append(e.Items, Item{Name: it.Name, Quantity: it.Quantity, Purchased: it.Purchased})
		}
	}
	return e
}

// WithAmount returns a copy of e archived again at now with the given amount.
func (e Entry) WithAmount(amount float64, now time.Time) Entry {
	out := e
	out.Date = now
	out.FinalAmount = &amount
	out.Items = append([]Item(nil), e.Items...)
	out.Categories = make(map[string]int, len(e.Categories))
	for k, v := range e.Categories {
		out.Categories[k] = v
	}
	return out
}

// MonthBucket is one month of the spend trend.
type MonthBucket struct {
	Count int     `json:"count"`
	Spent float64 `json:"spent"`
}

// Analytics summarizes a user's history.
type Analytics struct {
	TotalLists        int                    `json:"total_lists"`
	TotalSpent        float64                `json:"total_spent"`
	AverageSpent      float64                `json:"average_spent"`
	MinSpent          float64                `json:"min_spent"`
	MaxSpent          float64                `json:"max_spent"`
	MinDate           *time.Time             `json:"min_date"`
	MaxDate           *time.Time             `json:"max_date"`
	MinList           *Entry                 `json:"min_list"`
	MaxList           *Entry                 `json:"max_list"`
	History           []Entry                `json:"history"`
	CategoryBreakdown map[string]int         `json:"category_breakdown"`
	MonthlyTrend      map[string]MonthBucket `json:"monthly_trend"`
}

// Aggregate folds entries, given in stored order. An empty history yields a
// zero-valued summary.
func Aggregate(entries []Entry) Analytics {
	a := Analytics{
		TotalLists:        len(entries),
		History:           []Entry{},
		CategoryBreakdown: map[string]int{},
		MonthlyTrend:      map[string]MonthBucket{},
	}

	spent := lo.Filter(entries, func(e Entry, _ int) bool { return e.FinalAmount != nil })
	if len(spent) > 0 {
		a.TotalSpent = lo.SumBy(spent, func(e Entry) float64 { return *e.FinalAmount })
		a.AverageSpent = a.TotalSpent / float64(len(spent))

		// Strict comparisons keep the first entry on ties.
		minEntry := lo.MinBy(spent, func(x, y Entry) bool { return *x.FinalAmount < *y.FinalAmount })
		maxEntry := lo.MaxBy(spent, func(x, y Entry) bool { return *x.FinalAmount > *y.FinalAmount })
		a.MinSpent, a.MinDate, a.MinList = *minEntry.FinalAmount, &minEntry.Date, &minEntry
		a.MaxSpent, a.MaxDate, a.MaxList = *maxEntry.FinalAmount, &maxEntry.Date, &maxEntry
	}

	for _, e := range entries {
		for label, n := range e.Categories {
			a.CategoryBreakdown[label] += n
		}
		key := e.Date.Format("2006-01")
		bucket := a.MonthlyTrend[key]
		bucket.Count++
		if e.FinalAmount != nil {
			bucket.Spent += *e.FinalAmount
		}
		a.MonthlyTrend[key] = bucket
	}

	a.History = append(a.History, entries[max(0, len(entries)-RecentLimit):]...)
	return a
}

// Expense is one confirmed spend.
type Expense struct {
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
	ItemsCount int       `json:"items_count"`
	ListID     string    `json:"list_id"`
}

// ExpenseHistory lists entries that carry a final amount, in stored order.
func ExpenseHistory(entries []Entry) []Expense {
	return lo.FilterMap(entries, func(e Entry, _ int) (Expense, bool) {
		if e.FinalAmount == nil {
			return Expense{}, false
		}
		return Expense{Date: e.Date, Amount: *e.FinalAmount, ItemsCount: e.ItemsCount, ListID: e.ListID}, true
	})
}

// Find returns the first entry with listID.
func Find(entries []Entry, listID string) (*Entry, bool) {
	e, ok := lo.Find(entries, func(e Entry) bool { return e.ListID == listID })
	if !ok {
		return nil, false
	}
	return &e, true
}
