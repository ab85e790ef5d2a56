// Package app orchestrates lists, history and sharing for every transport.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"bozorlik/internal/amount"
	"bozorlik/internal/assistant"
	"bozorlik/internal/catalog"
	"bozorlik/internal/history"
	"bozorlik/internal/session"
	"bozorlik/internal/share"
	"bozorlik/internal/shared"
	"bozorlik/internal/shopping"
)

// Chat result types.
const (
	TypeShoppingList = "shopping_list"
	TypeMessage      = "message"
)

// ListFormatter turns free text into model output.
type ListFormatter interface {
	Format(ctx context.Context, text, lang string) (assistant.FormatResult, error)
}

// ChangeDetector turns an edit request into operations.
type ChangeDetector interface {
	DetectChanges(ctx context.Context, text, lang string, cm *shopping.CategoryMap) ([]shopping.Operation, shared.AgentMeta, error)
}

// HistoryStore archives finished lists.
type HistoryStore interface {
	Append(ctx context.Context, userID string, e history.Entry) error
	List(ctx context.Context, userID string) ([]history.Entry, error)
	Last(ctx context.Context, userID string) (*history.Entry, error)
}

// MetricsRecorder stores agent usage.
type MetricsRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// App holds the application's dependencies.
type App struct {
	catalogs  *catalog.Registry
	formatter ListFormatter
	editor    ChangeDetector
	sessions  session.Store
	languages session.LanguageStore
	history   HistoryStore
	shares    *share.Service
	metrics   MetricsRecorder
	locks     *session.Locks
	now       func() time.Time
}

// NewApp creates and initializes a new App instance. metrics may be nil.
func NewApp(
	catalogs *catalog.Registry,
	formatter ListFormatter,
	editor ChangeDetector,
	sessions session.Store,
	languages session.LanguageStore,
	historyStore HistoryStore,
	shares *share.Service,
	metrics MetricsRecorder,
) *App {
	return &App{
		catalogs:  catalogs,
		formatter: formatter,
		editor:    editor,
		sessions:  sessions,
		languages: languages,
		history:   historyStore,
		shares:    shares,
		metrics:   metrics,
		locks:     session.NewLocks(),
		now:       time.Now,
	}
}

// Catalog returns the catalog currently served.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalogs.Catalog()
}

// ChatResult is the reply to a chat message.
type ChatResult struct {
	Type    string             `json:"type"`
	Message string             `json:"message"`
	List    *shopping.Snapshot `json:"data,omitempty"`
}

// Chat formats text and, when the reply is a list, makes it the user's
// active list.
func (a *App) Chat(ctx context.Context, userID, text, lang string) (*ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !shared.IsSupportedLanguage(lang) {
		return nil, ErrUnsupportedLanguage
	}

	unlock := a.locks.Lock(userID)
	defer unlock()

	known, err := a.languages.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if known == "" {
		if err := a.languages.Set(ctx, userID, lang); err != nil {
			return nil, err
		}
	}

	res, err := a.formatter.Format(ctx, text, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to format message: %w", err)
	}
	a.recordMeta(ctx, res.Meta)

	if !res.IsList {
		return &ChatResult{Type: TypeMessage, Message: res.Text}, nil
	}

	cm := shopping.Parse(res.Text, lang, a.Catalog())
	snap := shopping.Serialize(cm)
	if err := a.sessions.Put(ctx, &session.Session{
		UserID:       userID,
		Language:     lang,
		Categories:   cm,
		Snapshot:     snap,
		LastMessage:  text,
		LastResponse: res.Text,
		CreatedAt:    a.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("failed to store list: %w", err)
	}

	slog.Info("list created", "user_id", userID, "items", snap.TotalItems, "estimated", snap.TotalEstimatedPrice)
	return &ChatResult{Type: TypeShoppingList, Message: res.Text, List: &snap}, nil
}

// EditResult reports what an edit request changed.
type EditResult struct {
	Changes   []shopping.Operation
	List      *shopping.Snapshot
	NoChanges bool
	Executed  int
	Skipped   int
}

// Edit applies the operations detected in text to the active list.
func (a *App) Edit(ctx context.Context, userID, text, lang string) (*EditResult, error) {
	if !shared.IsSupportedLanguage(lang) {
		return nil, ErrUnsupportedLanguage
	}

	unlock := a.locks.Lock(userID)
	defer unlock()

	s, err := a.activeSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	ops, meta, err := a.editor.DetectChanges(ctx, text, lang, s.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to detect changes: %w", err)
	}
	a.recordMeta(ctx, meta)
	if len(ops) == 0 {
		return &EditResult{NoChanges: true}, nil
	}

	applied := shopping.Apply(s.Categories, ops, lang, a.Catalog())
	s.Categories = applied.Categories
	s.Snapshot = shopping.Serialize(applied.Categories)
	s.LastMessage = text
	if err := a.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to store list: %w", err)
	}

	slog.Info("list edited", "user_id", userID, "executed", applied.Executed, "skipped", applied.Skipped)
	return &EditResult{
		Changes:  ops,
		List:     &s.Snapshot,
		Executed: applied.Executed,
		Skipped:  applied.Skipped,
	}, nil
}

// ToggleResult is the list after flipping one item.
type ToggleResult struct {
	List shopping.Snapshot `json:"data"`
	// Found is false when category or item did not match; the list is unchanged.
	Found             bool `json:"-"`
	Purchased         bool `json:"purchased"`
	AllPurchased      bool `json:"all_purchased"`
	ShowExpensePrompt bool `json:"show_expense_prompt,omitempty"`
}

// Toggle flips the purchased flag of itemName in category.
func (a *App) Toggle(ctx context.Context, userID, category, itemName string) (*ToggleResult, error) {
	if category == "" || itemName == "" {
		return a.toggle(ctx, userID, nil)
	}
	return a.toggle(ctx, userID, func(cm *shopping.CategoryMap) (*shopping.CategoryMap, bool) {
		return shopping.TogglePurchased(cm, category, itemName)
	})
}

// ToggleAt flips the purchased flag of the item at the given positions of the
// list, so duplicate names stay distinct.
func (a *App) ToggleAt(ctx context.Context, userID string, categoryIndex, itemIndex int) (*ToggleResult, error) {
	return a.toggle(ctx, userID, func(cm *shopping.CategoryMap) (*shopping.CategoryMap, bool) {
		return shopping.TogglePurchasedAt(cm, categoryIndex, itemIndex)
	})
}

func (a *App) toggle(ctx context.Context, userID string, flip func(*shopping.CategoryMap) (*shopping.CategoryMap, bool)) (*ToggleResult, error) {
	unlock := a.locks.Lock(userID)
	defer unlock()

	s, err := a.activeSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if flip == nil {
		return nil, ErrMissingItem
	}

	cm, found := flip(s.Categories)
	s.Categories = cm
	s.Snapshot = shopping.Serialize(cm)
	if err := a.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to store list: %w", err)
	}

	return &ToggleResult{
		List:              s.Snapshot,
		Found:             found,
		Purchased:         s.Snapshot.PurchasedItems > 0,
		AllPurchased:      s.Snapshot.AllPurchased,
		ShowExpensePrompt: s.Snapshot.AllPurchased,
	}, nil
}

// CurrentList returns the active list snapshot.
func (a *App) CurrentList(ctx context.Context, userID string) (*session.Session, error) {
	return a.activeSession(ctx, userID)
}

// Clear archives the active list without an amount and removes it.
func (a *App) Clear(ctx context.Context, userID string) error {
	unlock := a.locks.Lock(userID)
	defer unlock()

	s, err := a.activeSession(ctx, userID)
	if err != nil {
		return err
	}
	return a.archive(ctx, s, nil)
}

// ExpenseResult tells which list the amount was booked against.
type ExpenseResult struct {
	Amount      float64
	FromHistory bool
}

// RecordExpense books amount against the active list, archiving it, or
// against the most recent history entry when there is no active list.
func (a *App) RecordExpense(ctx context.Context, userID string, value float64) (*ExpenseResult, error) {
	if math.IsNaN(value) || value <= 0 || value > amount.MaxAmount {
		return nil, ErrInvalidAmount
	}

	unlock := a.locks.Lock(userID)
	defer unlock()

	s, err := a.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s != nil {
		if err := a.archive(ctx, s, &value); err != nil {
			return nil, err
		}
		return &ExpenseResult{Amount: value}, nil
	}

	last, err := a.history.Last(ctx, userID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrListNotFound
	}
	if err := a.history.Append(ctx, userID, last.WithAmount(value, a.now().UTC())); err != nil {
		return nil, fmt.Errorf("failed to archive list: %w", err)
	}
	return &ExpenseResult{Amount: value, FromHistory: true}, nil
}

func (a *App) archive(ctx context.Context, s *session.Session, value *float64) error {
	entry := history.NewEntry(s.Snapshot, value, a.now().UTC())
	if err := a.history.Append(ctx, s.UserID, entry); err != nil {
		return fmt.Errorf("failed to archive list: %w", err)
	}
	if err := a.sessions.Delete(ctx, s.UserID); err != nil {
		return fmt.Errorf("failed to clear list: %w", err)
	}
	slog.Info("list archived", "user_id", s.UserID, "list_id", entry.ListID, "with_amount", value != nil)
	return nil
}

// Analytics summarizes the user's history.
func (a *App) Analytics(ctx context.Context, userID string) (history.Analytics, error) {
	entries, err := a.history.List(ctx, userID)
	if err != nil {
		return history.Analytics{}, err
	}
	return history.Aggregate(entries), nil
}

// ExpenseHistory lists confirmed spends.
func (a *App) ExpenseHistory(ctx context.Context, userID string) ([]history.Expense, error) {
	entries, err := a.history.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return history.ExpenseHistory(entries), nil
}

// ListDetails returns one archived list.
func (a *App) ListDetails(ctx context.Context, userID, listID string) (*history.Entry, error) {
	entries, err := a.history.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	e, ok := history.Find(entries, listID)
	if !ok {
		return nil, ErrEntryNotFound
	}
	return e, nil
}

// Share publishes the active list. listID "" or "new" picks a fresh id.
func (a *App) Share(ctx context.Context, userID, listID string) (*share.Link, error) {
	unlock := a.locks.Lock(userID)
	defer unlock()

	s, err := a.activeSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	lang, err := a.Language(ctx, userID)
	if err != nil {
		return nil, err
	}

	link, err := a.shares.Share(ctx, userID, s.Snapshot, lang, listID)
	if err != nil {
		return nil, err
	}
	s.IsShared = true
	if err := a.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to store list: %w", err)
	}
	return link, nil
}

// OpenShared resolves a share token.
func (a *App) OpenShared(ctx context.Context, token string) (*share.SharedList, error) {
	return a.shares.Open(ctx, token)
}

// SetLanguage stores the user's language.
func (a *App) SetLanguage(ctx context.Context, userID, lang string) error {
	if !shared.IsSupportedLanguage(lang) {
		return ErrUnsupportedLanguage
	}
	return a.languages.Set(ctx, userID, lang)
}

// Language returns the stored language, Russian when unknown.
func (a *App) Language(ctx context.Context, userID string) (string, error) {
	lang, err := a.languages.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if lang == "" {
		return shared.LangRU, nil
	}
	return lang, nil
}

// SearchPrices looks query up in the catalog.
func (a *App) SearchPrices(query, lang string) []catalog.SearchResult {
	return a.Catalog().Search(query, lang, catalog.MaxSearchResults)
}

// AmountResult is a parsed spend amount.
type AmountResult struct {
	Amount    float64 `json:"amount"`
	Text      string  `json:"text"`
	Formatted string  `json:"formatted"`
}

// ParseAmount reads an amount from free text.
func (a *App) ParseAmount(text, lang string) AmountResult {
	v := amount.Parse(text)
	return AmountResult{Amount: v, Text: text, Formatted: amount.Format(v, lang)}
}

func (a *App) activeSession(ctx context.Context, userID string) (*session.Session, error) {
	s, err := a.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrListNotFound
	}
	return s, nil
}

func (a *App) recordMeta(ctx context.Context, meta shared.AgentMeta) {
	if a.metrics == nil {
		return
	}
	if err := a.metrics.RecordMeta(ctx, meta); err != nil {
		slog.Warn("failed to record metrics", "agent", meta.AgentName, "error", err)
	}
}
