package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bozorlik/internal/app"
	"bozorlik/internal/history"
	"bozorlik/internal/metrics"
	"bozorlik/internal/shared"
	"bozorlik/internal/shopping"

	"github.com/go-chi/chi/v5"
)

var features = []string{
	"Умные списки покупок",
	"Точные цены из базы данных",
	"Редактирование списков",
	"Расширенная аналитика",
	"История покупок",
	"Совместные списки по ссылке",
}

func (s *Server) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		"status":   "online",
		"service":  serviceName,
		"version":  serviceVersion,
		"features": features,
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	cat := s.app.Catalog()
	writeJSON(w, http.StatusOK, envelope{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"price_db_loaded": cat.Len() > 0,
		"products_count":  cat.Len(),
		"websocket_users": s.hub.len(),
		"system":          metrics.GetSysHealth(s.dataPath),
	})
}

type chatRequest struct {
	UserID   userID `json:"user_id"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, msgMissingUser)
		return
	}

	res, err := s.app.Chat(r.Context(), string(req.UserID), req.Text, orDefault(req.Language))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	body := envelope{"type": res.Type, "message": res.Message}
	if res.List != nil {
		body["data"] = res.List
	}
	writeOK(w, body)
}

func (s *Server) HandleListGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.CurrentList(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeOK(w, envelope{
		"data":         sess.Snapshot,
		"message":      sess.LastResponse,
		"language":     sess.Language,
		"is_shared":    sess.IsShared,
		"last_message": sess.LastMessage,
	})
}

func (s *Server) HandleListClear(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Clear(r.Context(), chi.URLParam(r, "user_id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeOK(w, envelope{"message": "Список покупок очищен и сохранен в истории"})
}

type editRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) HandleListEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	res, err := s.app.Edit(r.Context(), chi.URLParam(r, "user_id"), req.Text, orDefault(req.Language))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if res.NoChanges {
		writeOK(w, envelope{
			"message": "Не удалось определить изменения",
			"changes": []any{},
		})
		return
	}

	changes, err := operationsJSON(res.Changes)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeOK(w, envelope{
		"changes":  changes,
		"data":     res.List,
		"executed": res.Executed,
		"skipped":  res.Skipped,
		"message":  "Список успешно обновлен",
	})
}

func operationsJSON(ops []shopping.Operation) (json.RawMessage, error) {
	b, err := shopping.MarshalOperations(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to encode changes: %w", err)
	}
	return b, nil
}

type toggleRequest struct {
	Category string `json:"category"`
	ItemName string `json:"item_name"`
}

func (s *Server) HandleListToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	res, err := s.app.Toggle(r.Context(), chi.URLParam(r, "user_id"), req.Category, req.ItemName)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	body := envelope{
		"purchased":     res.Purchased,
		"all_purchased": res.AllPurchased,
		"data":          res.List,
	}
	if res.ShowExpensePrompt {
		body["show_expense_prompt"] = true
	}
	writeOK(w, body)
}

type expenseRequest struct {
	UserID     userID  `json:"user_id"`
	Amount     float64 `json:"amount"`
	AmountText string  `json:"amount_text"`
}

func (s *Server) HandleExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, msgMissingUser)
		return
	}

	value := req.Amount
	if value <= 0 && strings.TrimSpace(req.AmountText) != "" {
		value = s.app.ParseAmount(req.AmountText, "").Amount
	}
	if value <= 0 {
		writeError(w, http.StatusBadRequest, msgMissingAmount)
		return
	}

	res, err := s.app.RecordExpense(r.Context(), string(req.UserID), value)
	if errors.Is(err, app.ErrListNotFound) {
		writeError(w, http.StatusNotFound, msgActiveListNotFound)
		return
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	msg := "Сумма расходов сохранена"
	if res.FromHistory {
		msg = "Сумма расходов сохранена для последнего списка"
	}
	writeOK(w, envelope{
		"message":             msg,
		"amount":              res.Amount,
		"analytics_available": true,
	})
}

type parseAmountRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) HandleParseAmount(w http.ResponseWriter, r *http.Request) {
	var req parseAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	res := s.app.ParseAmount(req.Text, orDefault(req.Language))
	writeOK(w, envelope{
		"amount":    res.Amount,
		"text":      res.Text,
		"formatted": res.Formatted,
	})
}

func (s *Server) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Analytics(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeOK(w, envelope{"data": res})
}

func (s *Server) HandleExpenses(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.ExpenseHistory(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if res == nil {
		res = []history.Expense{}
	}
	writeOK(w, envelope{"data": res})
}

func (s *Server) HandleListDetails(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.ListDetails(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "list_id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeOK(w, envelope{"data": res})
}

type shareRequest struct {
	UserID userID `json:"user_id"`
	ListID string `json:"list_id"`
}

func (s *Server) HandleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	link, err := s.app.Share(r.Context(), string(req.UserID), req.ListID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeOK(w, envelope{
		"share_url":  link.URL,
		"list_id":    link.ListID,
		"token":      link.Token,
		"expires_at": link.ExpiresAt,
		"message":    "Список доступен по ссылке",
	})
}

func (s *Server) HandleShared(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.OpenShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeOK(w, envelope{"data": list})
}

type priceResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Unit   string `json:"unit"`
	Source string `json:"source"`
}

func (s *Server) HandlePriceSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, msgMissingQuery)
		return
	}
	lang := orDefault(r.URL.Query().Get("lang"))
	if !shared.IsSupportedLanguage(lang) {
		writeError(w, http.StatusBadRequest, msgUnsupportedLanguage)
		return
	}

	results := make([]priceResult, 0)
	for _, hit := range s.app.SearchPrices(query, lang) {
		if hit.PriceInfo == nil {
			continue
		}
		name := hit.DisplayName
		if hit.Synonym != "" {
			name = hit.Synonym
		}
		if name == "" {
			name = hit.ProductID
		}
		results = append(results, priceResult{
			ID:     hit.ProductID,
			Name:   name,
			Price:  hit.PriceInfo.Price,
			Unit:   hit.PriceInfo.Unit,
			Source: hit.PriceInfo.Source,
		})
	}
	writeOK(w, envelope{"results": results})
}

type languageRequest struct {
	UserID   userID `json:"user_id"`
	Language string `json:"language"`
}

// HandleSetLanguage accepts a form (the original web client) or JSON.
func (s *Server) HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, msgBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, msgBadRequest)
			return
		}
		req.UserID = userID(strings.TrimSpace(r.PostForm.Get("user_id")))
		req.Language = r.PostForm.Get("language")
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, msgMissingUser)
		return
	}

	if err := s.app.SetLanguage(r.Context(), string(req.UserID), req.Language); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeOK(w, envelope{"message": "Язык установлен: " + req.Language})
}
