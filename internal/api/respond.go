package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"bozorlik/internal/app"
	"bozorlik/internal/share"
	"bozorlik/internal/shared"
)

// Error texts shown to users.
const (
	msgListNotFound        = "Список покупок не найден"
	msgActiveListNotFound  = "Активный список покупок не найден"
	msgEntryNotFound       = "Список не найден"
	msgEmptyMessage        = "Пустое сообщение"
	msgUnsupportedLanguage = "Неподдерживаемый язык"
	msgMissingItem         = "Не указаны категория или название товара"
	msgMissingAmount       = "Не указана сумма"
	msgInvalidAmount       = "Некорректная сумма"
	msgMissingQuery        = "Не указан поисковый запрос"
	msgMissingUser         = "Не указан пользователь"
	msgInvalidLink         = "Ссылка недействительна или устарела"
	msgNotOwner            = "Список принадлежит другому пользователю"
	msgBadRequest          = "Неверный формат запроса"
	msgInternal            = "Internal server error"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeOK(w http.ResponseWriter, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{"success": false, "error": msg})
}

// writeAppError maps service errors to statuses.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrListNotFound):
		writeError(w, http.StatusNotFound, msgListNotFound)
	case errors.Is(err, app.ErrEntryNotFound), errors.Is(err, share.ErrNotFound):
		writeError(w, http.StatusNotFound, msgEntryNotFound)
	case errors.Is(err, share.ErrInvalidToken):
		writeError(w, http.StatusNotFound, msgInvalidLink)
	case errors.Is(err, share.ErrNotOwner):
		writeError(w, http.StatusForbidden, msgNotOwner)
	case errors.Is(err, app.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, msgEmptyMessage)
	case errors.Is(err, app.ErrUnsupportedLanguage):
		writeError(w, http.StatusBadRequest, msgUnsupportedLanguage)
	case errors.Is(err, app.ErrMissingItem):
		writeError(w, http.StatusBadRequest, msgMissingItem)
	case errors.Is(err, app.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, msgInvalidAmount)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// userID accepts both JSON numbers (Telegram ids) and strings.
type userID string

func (u *userID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = userID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*u = userID(n.String())
	return nil
}

// orDefault returns the request language, Russian when omitted.
func orDefault(lang string) string {
	if lang == "" {
		return shared.LangRU
	}
	return lang
}
