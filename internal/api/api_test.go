package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bozorlik/internal/app"
	"bozorlik/internal/assistant"
	"bozorlik/internal/catalog"
	"bozorlik/internal/database/dbtest"
	"bozorlik/internal/history"
	"bozorlik/internal/llm"
	"bozorlik/internal/session"
	"bozorlik/internal/share"
	"bozorlik/internal/shared"

	"github.com/gorilla/websocket"
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
}

func (f *fakeGenerator) GenerateContent(context.Context, string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: f.reply, Usage: shared.TokenUsage{Model: "fake"}}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeGenerator) {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalogJSON))
	require.NoError(t, err)

	db := dbtest.New(t)
	formatter := &fakeGenerator{reply: listReply}
	editor := &fakeGenerator{reply: `{"changes": [{"action": "remove", "target": "лук"}]}`}
	reg := catalog.NewRegistry(cat)
	a := app.NewApp(
		reg,
		assistant.NewFormatter(formatter, app.PriceHints(reg)),
		assistant.NewEditor(editor),
		session.NewMemoryStore(),
		session.NewMemoryLanguages(),
		history.NewRepository(db),
		share.NewService(share.NewRepository(db), "secret", time.Hour),
		nil,
	)
	s := NewServer(a, t.TempDir())
	t.Cleanup(s.Close)
	return s, formatter
}

func do(t *testing.T, s *Server, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func chat(t *testing.T, s *Server, user any) map[string]any {
	t.Helper()
	rec, out := do(t, s, http.MethodPost, "/api/chat", map[string]any{"user_id": user, "text": "лук и молоко"})
	require.Equal(t, http.StatusOK, rec.Code)
	return out
}

func TestRootAndHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec, out := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "online", out["status"])
	assert.Equal(t, "Bozorlik AI", out["service"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, out = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["price_db_loaded"])
	assert.EqualValues(t, 2, out["products_count"])
	assert.Contains(t, out, "system")
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatEndpoint(t *testing.T) {
	s, formatter := newTestServer(t)

	out := chat(t, s, 42)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "shopping_list", out["type"])
	assert.Equal(t, listReply, out["message"])
	data := out["data"].(map[string]any)
	assert.EqualValues(t, 2, data["total_items"])
	assert.EqualValues(t, 5900+18500, data["total_estimated_price"])

	formatter.reply = "Здравствуйте! Что купить?"
	rec, out := do(t, s, http.MethodPost, "/api/chat", map[string]any{"user_id": "42", "text": "привет"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "message", out["type"])
	assert.NotContains(t, out, "data")
}

func TestChatRejections(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"empty text", map[string]any{"user_id": 1, "text": "   "}, "Пустое сообщение"},
		{"unknown language", map[string]any{"user_id": 1, "text": "milk", "language": "en"}, "Неподдерживаемый язык"},
		{"no user", map[string]any{"text": "молоко"}, "Не указан пользователь"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, s, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tt.want, out["error"])
		})
	}
}

func TestListLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	rec, out := do(t, s, http.MethodGet, "/api/list/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Список покупок не найден", out["error"])

	chat(t, s, 7)

	rec, out = do(t, s, http.MethodGet, "/api/list/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ru", out["language"])

	rec, out = do(t, s, http.MethodPost, "/api/list/7/toggle", map[string]string{"category": "🥕 Овощи"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Не указаны категория или название товара", out["error"])

	rec, out = do(t, s, http.MethodPost, "/api/list/7/toggle", map[string]string{"category": "🥕 Овощи", "item_name": "Лук"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["purchased"])
	assert.Equal(t, false, out["all_purchased"])
	assert.NotContains(t, out, "show_expense_prompt")

	rec, out = do(t, s, http.MethodPost, "/api/list/7/toggle", map[string]string{"category": "🥛 Молочные продукты", "item_name": "Молоко"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["all_purchased"])
	assert.Equal(t, true, out["show_expense_prompt"])

	rec, out = do(t, s, http.MethodPost, "/api/list/7/edit", map[string]string{"text": "убери лук"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Список успешно обновлен", out["message"])
	assert.Equal(t, []any{map[string]any{"action": "remove", "target": "лук"}}, out["changes"])
	assert.EqualValues(t, 1, out["data"].(map[string]any)["total_items"])

	rec, out = do(t, s, http.MethodDelete, "/api/list/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Список покупок очищен и сохранен в истории", out["message"])

	rec, _ = do(t, s, http.MethodDelete, "/api/list/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpenseEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec, out := do(t, s, http.MethodPost, "/api/expense", map[string]any{"user_id": 3, "amount": 1000})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Активный список покупок не найден", out["error"])

	chat(t, s, 3)
	rec, out = do(t, s, http.MethodPost, "/api/expense", map[string]any{"user_id": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Не указана сумма", out["error"])

	rec, out = do(t, s, http.MethodPost, "/api/expense", map[string]any{"user_id": 3, "amount": 1e300})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Некорректная сумма", out["error"])

	rec, out = do(t, s, http.MethodPost, "/api/expense", map[string]any{"user_id": 3, "amount_text": strings.Repeat("9", 400)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Не указана сумма", out["error"])

	rec, out = do(t, s, http.MethodPost, "/api/expense", map[string]any{"user_id": 3, "amount_text": "50 тысяч"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Сумма расходов сохранена", out["message"])
	assert.EqualValues(t, 50000, out["amount"])

	rec, out = do(t, s, http.MethodPost, "/api/expense", map[string]any{"user_id": 3, "amount": 62000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Сумма расходов сохранена для последнего списка", out["message"])

	rec, out = do(t, s, http.MethodGet, "/api/analytics/3/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["data"], 2)

	rec, out = do(t, s, http.MethodGet, "/api/analytics/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	analytics := out["data"].(map[string]any)
	assert.EqualValues(t, 2, analytics["total_lists"])
	assert.EqualValues(t, 112000, analytics["total_spent"])

	history := analytics["history"].([]any)
	listID := history[0].(map[string]any)["list_id"].(string)
	rec, out = do(t, s, http.MethodGet, "/api/analytics/3/list/"+listID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, listID, out["data"].(map[string]any)["list_id"])

	rec, out = do(t, s, http.MethodGet, "/api/analytics/3/list/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Список не найден", out["error"])
}

func TestExpensesEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	rec, out := do(t, s, http.MethodGet, "/api/analytics/9/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, out["data"])
}

func TestParseAmountEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec, out := do(t, s, http.MethodPost, "/api/parse_amount", map[string]string{"text": "10к"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 10000, out["amount"])
	assert.Equal(t, "10к", out["text"])
	assert.Equal(t, "10 000 сум", out["formatted"])

	rec, out = do(t, s, http.MethodPost, "/api/parse_amount", map[string]string{"text": strings.Repeat("9", 400)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, out["amount"])
	assert.Equal(t, "0 сум", out["formatted"])
}

func TestShareEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _ := do(t, s, http.MethodPost, "/api/share", map[string]any{"user_id": 5, "list_id": "new"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	chat(t, s, 5)
	rec, out := do(t, s, http.MethodPost, "/api/share", map[string]any{"user_id": 5, "list_id": "new"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Список доступен по ссылке", out["message"])
	token := out["token"].(string)
	assert.Equal(t, "/shared/"+token, out["share_url"])
	assert.Len(t, out["list_id"], 16)

	rec, out = do(t, s, http.MethodGet, "/api/shared/"+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := out["data"].(map[string]any)
	assert.Equal(t, "5", data["owner_id"])
	assert.Equal(t, "ru", data["lang"])

	listID := out["data"].(map[string]any)["list_id"].(string)
	chat(t, s, 6)
	rec, out = do(t, s, http.MethodPost, "/api/share", map[string]any{"user_id": 6, "list_id": listID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Список принадлежит другому пользователю", out["error"])

	rec, out = do(t, s, http.MethodGet, "/api/shared/"+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", out["data"].(map[string]any)["owner_id"])

	rec, out = do(t, s, http.MethodGet, "/api/shared/not-a-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, out["success"])
}

func TestPriceSearch(t *testing.T) {
	s, _ := newTestServer(t)

	rec, out := do(t, s, http.MethodGet, "/api/prices/search?query="+url.QueryEscape("лук"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := out["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	assert.Equal(t, "onion", hit["id"])
	assert.Equal(t, "Лук репчатый", hit["name"])
	assert.EqualValues(t, 2950, hit["price"])
	assert.Equal(t, "кг", hit["unit"])

	rec, out = do(t, s, http.MethodGet, "/api/prices/search?query=xyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, out["results"])

	rec, _ = do(t, s, http.MethodGet, "/api/prices/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/prices/search?query=sut&lang=en", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetLanguage(t *testing.T) {
	s, _ := newTestServer(t)

	form := url.Values{"user_id": {"11"}, "language": {"uz"}}
	req := httptest.NewRequest(http.MethodPost, "/api/set-language", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Язык установлен: uz")

	lang, err := s.app.Language(context.Background(), "11")
	require.NoError(t, err)
	assert.Equal(t, "uz", lang)

	rec, out := do(t, s, http.MethodPost, "/api/set-language", map[string]any{"user_id": 11, "language": "en"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Неподдерживаемый язык", out["error"])
}

func TestUserIDAcceptsNumbersAndStrings(t *testing.T) {
	var req chatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"user_id": 123456789}`), &req))
	assert.Equal(t, userID("123456789"), req.UserID)

	require.NoError(t, json.Unmarshal([]byte(`{"user_id": " abc "}`), &req))
	assert.Equal(t, userID("abc"), req.UserID)

	assert.Error(t, json.Unmarshal([]byte(`{"user_id": true}`), &req))
}

func dialWS(t *testing.T, s *Server, user string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/"+user, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out map[string]any
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestWebSocketSession(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialWS(t, s, "21")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readWS(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "get_list"}))
	out := readWS(t, conn)
	assert.Equal(t, "error", out["type"])
	assert.Equal(t, "Список не найден", out["message"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	out = readWS(t, conn)
	assert.Equal(t, "error", out["type"])
	assert.Equal(t, "Неверный формат JSON", out["message"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "chat", "text": "лук и молоко"}))
	out = readWS(t, conn)
	assert.Equal(t, "response", out["type"])
	assert.Equal(t, listReply, out["message"])
	out = readWS(t, conn)
	assert.Equal(t, "shopping_list", out["type"])
	assert.EqualValues(t, 2, out["data"].(map[string]any)["total_items"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "get_list"}))
	assert.Equal(t, "current_list", readWS(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "toggle_purchase", "category": "🥕 Овощи", "item_name": "Лук"}))
	out = readWS(t, conn)
	assert.Equal(t, "list_updated", out["type"])
	assert.Equal(t, false, out["all_purchased"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "edit", "text": "убери лук"}))
	out = readWS(t, conn)
	assert.Equal(t, "list_updated", out["type"])
	assert.EqualValues(t, 1, out["data"].(map[string]any)["total_items"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "chat", "text": ""}))
	out = readWS(t, conn)
	assert.Equal(t, "error", out["type"])
	assert.Equal(t, "Пустое сообщение", out["message"])
}
