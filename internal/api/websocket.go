package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"bozorlik/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// WebSocket message types.
const (
	wsChat           = "chat"
	wsPing           = "ping"
	wsGetList        = "get_list"
	wsTogglePurchase = "toggle_purchase"
	wsEdit           = "edit"

	wsResponse     = "response"
	wsShoppingList = "shopping_list"
	wsPong         = "pong"
	wsCurrentList  = "current_list"
	wsListUpdated  = "list_updated"
	wsMessage      = "message"
	wsError        = "error"
)

const (
	msgInvalidJSON     = "Неверный формат JSON"
	msgProcessingError = "Ошибка обработки сообщения"
)

type wsRequest struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Category string `json:"category"`
	ItemName string `json:"item_name"`
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// hub keeps the latest connection of every user.
type hub struct {
	mu    sync.Mutex
	conns map[string]*wsConn
}

func newHub() *hub {
	return &hub{conns: make(map[string]*wsConn)}
}

func (h *hub) add(userID string, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = c
}

func (h *hub) remove(userID string, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == c {
		delete(h.conns, userID)
	}
}

// send writes to the user's current connection, dropping it on failure.
func (h *hub) send(userID string, v any) {
	h.mu.Lock()
	c := h.conns[userID]
	h.mu.Unlock()
	if c == nil {
		return
	}
	if err := c.send(v); err != nil {
		slog.Debug("websocket write failed", "user_id", userID, "error", err)
		h.remove(userID, c)
		c.conn.Close()
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.conns {
		c.conn.Close()
		delete(h.conns, id)
	}
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	c := &wsConn{conn: conn}
	s.hub.add(userID, c)
	defer func() {
		s.hub.remove(userID, c)
		conn.Close()
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket closed", "user_id", userID, "error", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.hub.send(userID, envelope{"type": wsError, "message": msgInvalidJSON})
			continue
		}
		if err := s.dispatch(ctx, userID, req); err != nil {
			slog.Error("websocket processing error", "user_id", userID, "type", req.Type, "error", err)
			s.hub.send(userID, envelope{"type": wsError, "message": msgProcessingError})
		}
	}
}

// dispatch answers one client message. Returned errors are unexpected
// failures; user mistakes are answered in place.
func (s *Server) dispatch(ctx context.Context, userID string, req wsRequest) error {
	switch req.Type {
	case wsPing:
		s.hub.send(userID, envelope{"type": wsPong})

	case wsChat:
		res, err := s.app.Chat(ctx, userID, req.Text, orDefault(req.Language))
		if msg, ok := userMessage(err); ok {
			s.hub.send(userID, envelope{"type": wsError, "message": msg})
			return nil
		}
		if err != nil {
			return err
		}
		s.hub.send(userID, envelope{"type": wsResponse, "message": res.Message})
		if res.List != nil {
			s.hub.send(userID, envelope{"type": wsShoppingList, "data": res.List})
		}

	case wsGetList:
		sess, err := s.app.CurrentList(ctx, userID)
		if errors.Is(err, app.ErrListNotFound) {
			s.hub.send(userID, envelope{"type": wsError, "message": msgEntryNotFound})
			return nil
		}
		if err != nil {
			return err
		}
		s.hub.send(userID, envelope{"type": wsCurrentList, "data": sess.Snapshot})

	case wsTogglePurchase:
		res, err := s.app.Toggle(ctx, userID, req.Category, req.ItemName)
		if msg, ok := userMessage(err); ok {
			s.hub.send(userID, envelope{"type": wsError, "message": msg})
			return nil
		}
		if err != nil {
			return err
		}
		out := envelope{
			"type":          wsListUpdated,
			"data":          res.List,
			"all_purchased": res.AllPurchased,
		}
		if res.ShowExpensePrompt {
			out["show_expense_prompt"] = true
		}
		s.hub.send(userID, out)

	case wsEdit:
		res, err := s.app.Edit(ctx, userID, req.Text, orDefault(req.Language))
		if msg, ok := userMessage(err); ok {
			s.hub.send(userID, envelope{"type": wsError, "message": msg})
			return nil
		}
		if err != nil {
			return err
		}
		if res.NoChanges {
			s.hub.send(userID, envelope{"type": wsMessage, "message": "Не удалось определить изменения"})
			return nil
		}
		changes, err := operationsJSON(res.Changes)
		if err != nil {
			return err
		}
		s.hub.send(userID, envelope{"type": wsListUpdated, "data": res.List, "changes": changes})

	default:
		slog.Debug("ignoring websocket message", "user_id", userID, "type", req.Type)
	}
	return nil
}

// userMessage returns the text for errors caused by the request itself.
func userMessage(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, app.ErrListNotFound):
		return msgListNotFound, true
	case errors.Is(err, app.ErrEmptyMessage):
		return msgEmptyMessage, true
	case errors.Is(err, app.ErrUnsupportedLanguage):
		return msgUnsupportedLanguage, true
	case errors.Is(err, app.ErrMissingItem):
		return msgMissingItem, true
	}
	return "", false
}
