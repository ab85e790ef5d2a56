package app

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"bozorlik/internal/assistant"
	"bozorlik/internal/catalog"
	"bozorlik/internal/database/dbtest"
	"bozorlik/internal/history"
	"bozorlik/internal/llm"
	"bozorlik/internal/session"
	"bozorlik/internal/share"
	"bozorlik/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogJSON = `{
  "items": {
    "onion": {"display_name": "Лук репчатый", "unit": "кг", "quotes": [{"price": 2800, "source": "Korzinka"}, {"price": 3100, "source": "Makro"}]},
    "milk": {"display_name": "Молоко", "unit": "л", "quotes": [{"price": 18500, "source": "Nestle"}]}
  },
  "synonyms": {
    "ru": {"лук": "onion"},
    "uz": {"piyoz": "onion", "sut": "milk"}
  }
}`

const listReply = "🥕 Овощи:\n• Лук — 2 кг\n\n🥛 Молочные продукты:\n• Молоко — 1 литр (≈18,500 сум)"

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateContent(context.Context, string) (llm.ContentResponse, error) {
	f.calls++
	if f.err != nil {
		return llm.ContentResponse{}, f.err
	}
	return llm.ContentResponse{
		Content: f.reply,
		Usage:   shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5, Model: "fake"},
	}, nil
}

type fakeMetrics struct {
	metas []shared.AgentMeta
}

func (f *fakeMetrics) RecordMeta(_ context.Context, meta shared.AgentMeta) error {
	f.metas = append(f.metas, meta)
	return nil
}

type fixture struct {
	app       *App
	formatter *fakeGenerator
	editor    *fakeGenerator
	metrics   *fakeMetrics
	languages *session.MemoryLanguages
	history   *history.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalogJSON))
	require.NoError(t, err)

	db := dbtest.New(t)
	f := &fixture{
		formatter: &fakeGenerator{reply: listReply},
		editor:    &fakeGenerator{reply: `{"changes": [{"action": "remove", "target": "лук"}]}`},
		metrics:   &fakeMetrics{},
		languages: session.NewMemoryLanguages(),
		history:   history.NewRepository(db),
	}
	reg := catalog.NewRegistry(cat)
	f.app = NewApp(
		reg,
		assistant.NewFormatter(f.formatter, PriceHints(reg)),
		assistant.NewEditor(f.editor),
		session.NewMemoryStore(),
		f.languages,
		f.history,
		share.NewService(share.NewRepository(db), "secret", time.Hour),
		f.metrics,
	)
	return f
}

func (f *fixture) chat(t *testing.T, userID string) *ChatResult {
	t.Helper()
	res, err := f.app.Chat(context.Background(), userID, "лук и молоко", "ru")
	require.NoError(t, err)
	return res
}

func TestChatCreatesList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res := f.chat(t, "1")
	assert.Equal(t, TypeShoppingList, res.Type)
	assert.Equal(t, listReply, res.Message)
	require.NotNil(t, res.List)
	assert.Equal(t, 2, res.List.TotalItems)
	assert.Equal(t, int64(5900+18500), res.List.TotalEstimatedPrice)
	assert.Equal(t, []string{"🥕 Овощи", "🥛 Молочные продукты"}, res.List.Categories.Keys())

	s, err := f.app.CurrentList(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "лук и молоко", s.LastMessage)
	assert.Equal(t, listReply, s.LastResponse)
	assert.False(t, s.IsShared)

	require.Len(t, f.metrics.metas, 1)
	assert.Equal(t, assistant.FormatterAgent, f.metrics.metas[0].AgentName)
}

func TestChatKeepsFirstLanguage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.chat(t, "1")
	_, err := f.app.Chat(ctx, "1", "piyoz", "uz")
	require.NoError(t, err)

	lang, err := f.app.Language(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "ru", lang)
}

func TestChatPlainMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.formatter.reply = "Привет! Что нужно купить сегодня?"

	res, err := f.app.Chat(ctx, "1", "привет", "ru")
	require.NoError(t, err)
	assert.Equal(t, TypeMessage, res.Type)
	assert.Nil(t, res.List)

	_, err = f.app.CurrentList(ctx, "1")
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestChatModelFailure(t *testing.T) {
	f := newFixture(t)
	f.formatter.err = errors.New("quota")

	res, err := f.app.Chat(context.Background(), "1", "молоко", "uz")
	require.NoError(t, err)
	assert.Equal(t, TypeMessage, res.Type)
	assert.Equal(t, assistant.Apology("uz"), res.Message)
}

func TestChatRejectsInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.app.Chat(ctx, "1", "   ", "ru")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.app.Chat(ctx, "1", "milk", "en")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Zero(t, f.formatter.calls)
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.app.Edit(ctx, "1", "удали лук", "ru")
	assert.ErrorIs(t, err, ErrListNotFound)

	f.chat(t, "1")
	res, err := f.app.Edit(ctx, "1", "удали лук", "ru")
	require.NoError(t, err)
	assert.False(t, res.NoChanges)
	assert.Equal(t, 1, res.Executed)
	assert.Equal(t, 1, res.List.TotalItems)
	assert.Equal(t, []string{"🥛 Молочные продукты"}, res.List.Categories.Keys())

	s, err := f.app.CurrentList(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(18500), s.Snapshot.TotalEstimatedPrice)
	assert.Equal(t, "удали лук", s.LastMessage)

	f.editor.reply = `{"changes": []}`
	res, err = f.app.Edit(ctx, "1", "что-то непонятное", "ru")
	require.NoError(t, err)
	assert.True(t, res.NoChanges)
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.chat(t, "1")

	_, err := f.app.Toggle(ctx, "1", "", "Лук")
	assert.ErrorIs(t, err, ErrMissingItem)

	res, err := f.app.Toggle(ctx, "1", "🥕 Овощи", "Лук")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.True(t, res.Purchased)
	assert.False(t, res.AllPurchased)
	assert.False(t, res.ShowExpensePrompt)

	res, err = f.app.Toggle(ctx, "1", "🥛 Молочные продукты", "Молоко")
	require.NoError(t, err)
	assert.True(t, res.AllPurchased)
	assert.True(t, res.ShowExpensePrompt)

	res, err = f.app.Toggle(ctx, "1", "🥛 Молочные продукты", "Кефир")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.True(t, res.AllPurchased, "unknown items leave the list unchanged")
}

func TestToggleAt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.app.ToggleAt(ctx, "1", 0, 0)
	assert.ErrorIs(t, err, ErrListNotFound)

	f.chat(t, "1")
	res, err := f.app.ToggleAt(ctx, "1", 1, 0)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.True(t, res.List.Categories.Items("🥛 Молочные продукты")[0].Purchased)
	assert.False(t, res.List.Categories.Items("🥕 Овощи")[0].Purchased)

	res, err = f.app.ToggleAt(ctx, "1", 5, 0)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, 1, res.List.PurchasedItems)
}

func TestClearArchivesWithoutAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.app.Clear(ctx, "1"), ErrListNotFound)

	listID := f.chat(t, "1").List.ListID
	require.NoError(t, f.app.Clear(ctx, "1"))

	_, err := f.app.CurrentList(ctx, "1")
	assert.ErrorIs(t, err, ErrListNotFound)

	entry, err := f.app.ListDetails(ctx, "1", listID)
	require.NoError(t, err)
	assert.Nil(t, entry.FinalAmount)
	assert.Equal(t, 2, entry.ItemsCount)

	_, err = f.app.ListDetails(ctx, "1", "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestRecordExpense(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.app.RecordExpense(ctx, "1", 1000)
	assert.ErrorIs(t, err, ErrListNotFound)

	for _, bad := range []float64{0, -5, math.NaN(), math.Inf(1), 1e300} {
		_, err = f.app.RecordExpense(ctx, "1", bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}

	f.chat(t, "1")
	res, err := f.app.RecordExpense(ctx, "1", 25000)
	require.NoError(t, err)
	assert.False(t, res.FromHistory)

	_, err = f.app.CurrentList(ctx, "1")
	assert.ErrorIs(t, err, ErrListNotFound)

	res, err = f.app.RecordExpense(ctx, "1", 30000)
	require.NoError(t, err)
	assert.True(t, res.FromHistory)

	expenses, err := f.app.ExpenseHistory(ctx, "1")
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, 25000.0, expenses[0].Amount)
	assert.Equal(t, 30000.0, expenses[1].Amount)
	assert.Equal(t, expenses[0].ListID, expenses[1].ListID)

	analytics, err := f.app.Analytics(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.TotalLists)
	assert.Equal(t, 55000.0, analytics.TotalSpent)
	assert.Equal(t, 25000.0, analytics.MinSpent)
	assert.Equal(t, 30000.0, analytics.MaxSpent)
}

func TestShare(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.app.Share(ctx, "1", "new")
	assert.ErrorIs(t, err, ErrListNotFound)

	f.chat(t, "1")
	require.NoError(t, f.app.SetLanguage(ctx, "1", "uz"))

	link, err := f.app.Share(ctx, "1", "new")
	require.NoError(t, err)
	assert.Len(t, link.ListID, 16)

	s, err := f.app.CurrentList(ctx, "1")
	require.NoError(t, err)
	assert.True(t, s.IsShared)

	opened, err := f.app.OpenShared(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "uz", opened.Lang)
	assert.Equal(t, "1", opened.OwnerID)
	assert.Equal(t, 2, opened.ListData.TotalItems)
}

func TestSetLanguage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.app.SetLanguage(ctx, "1", "en"), ErrUnsupportedLanguage)

	lang, err := f.app.Language(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "ru", lang)

	require.NoError(t, f.app.SetLanguage(ctx, "1", "uz"))
	lang, err = f.app.Language(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "uz", lang)
}

func TestSearchAndAmount(t *testing.T) {
	f := newFixture(t)

	results := f.app.SearchPrices("молок", "ru")
	require.Len(t, results, 1)
	assert.Equal(t, "milk", results[0].ProductID)

	got := f.app.ParseAmount("потратил 10 тысяч", "ru")
	assert.Equal(t, AmountResult{Amount: 10000, Text: "потратил 10 тысяч", Formatted: "10 000 сум"}, got)
}

func TestPriceHints(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalogJSON))
	require.NoError(t, err)
	hints := PriceHints(catalog.NewRegistry(cat))

	assert.Equal(t, []string{"Лук репчатый — 2 950 сум/кг", "Молоко — 18 500 сум/л"},
		hints("2 кг лук, молоко и ещё лук", "ru"))
	assert.Equal(t, []string{"Лук репчатый — 2 950 so'm/кг"}, hints("piyoz", "uz"))
	assert.Empty(t, hints("12345", "ru"))
	assert.Nil(t, PriceHints(catalog.NewRegistry(nil))("лук", "ru"))
}
