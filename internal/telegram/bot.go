// Package telegram serves the shopping assistant as a webhook bot.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bozorlik/internal/app"
	"bozorlik/internal/config"
	"bozorlik/internal/metrics"
	"bozorlik/internal/shared"
	"bozorlik/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const processTimeout = 2 * time.Minute

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UsageReporter provides the admin report.
type UsageReporter interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	GetUsageByAgent(ctx context.Context, days int) ([]metrics.AgentUsage, error)
}

// Bot wraps the Telegram API and the application service.
type Bot struct {
	api      Sender
	app      *app.App
	usage    UsageReporter
	adminID  int64
	dataPath string

	// process runs update handlers; replaced in tests to run inline.
	process func(func())
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(cfg config.TelegramConfig, a *app.App, usage UsageReporter, dataPath string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	slog.Info("telegram authorized", "account", api.Self.UserName)

	if cfg.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.WebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.WebhookURL, err)
		}
		slog.Info("telegram webhook set", "url", cfg.WebhookURL, "response", resp.Description)
	}

	return newBot(api, a, usage, cfg.AdminUserID, dataPath), nil
}

func newBot(api Sender, a *app.App, usage UsageReporter, adminID int64, dataPath string) *Bot {
	return &Bot{
		api:      api,
		app:      a,
		usage:    usage,
		adminID:  adminID,
		dataPath: dataPath,
		process:  background,
	}
}

// background runs f on its own goroutine. A panicking handler is logged and
// does not take the server down.
func background(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("telegram update handler panicked", "panic", r)
			}
		}()
		f()
	}()
}

// HandleWebhook acknowledges the update at once and processes it in the
// background.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("failed to parse telegram update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	switch {
	case update.CallbackQuery != nil:
		b.process(func() { b.handleCallbackQuery(update.CallbackQuery) })
	case update.Message != nil && update.Message.From != nil:
		b.process(func() { b.processMessage(update.Message) })
	}
}

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	userID := userKey(msg.From.ID)
	lang, err := b.app.Language(ctx, userID)
	if err != nil {
		slog.Error("failed to load language", "user_id", userID, "error", err)
		lang = shared.LangRU
	}

	if msg.IsCommand() {
		args := strings.TrimSpace(msg.CommandArguments())
		switch msg.Command() {
		case "start":
			b.handleStart(msg.Chat.ID, lang)
		case "list":
			b.handleList(ctx, msg.Chat.ID, userID, lang)
		case "edit":
			b.handleEdit(ctx, msg.Chat.ID, userID, args, lang)
		case "clear":
			b.handleClear(ctx, msg.Chat.ID, userID, lang)
		case "spent":
			b.handleSpent(ctx, msg.Chat.ID, userID, args, lang)
		case "analytics":
			b.handleAnalytics(ctx, msg.Chat.ID, userID, lang)
		case "metrics":
			b.handleMetricsRequest(ctx, msg)
		default:
			b.handleStart(msg.Chat.ID, lang)
		}
		return
	}

	b.handleChat(ctx, msg.Chat.ID, userID, msg.Text, lang)
}

func (b *Bot) handleStart(chatID int64, lang string) {
	reply := tgbotapi.NewMessage(chatID, textsFor(lang).Welcome)
	reply.ReplyMarkup = languageKeyboard()
	b.send(reply)
}

func (b *Bot) handleChat(ctx context.Context, chatID int64, userID, text, lang string) {
	t := textsFor(lang)
	status := tgbotapi.NewMessage(chatID, t.Thinking)
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(status)
	if err != nil {
		slog.Error("failed to send initial reply", "chat_id", chatID, "error", err)
		return
	}

	res, err := b.app.Chat(ctx, userID, text, lang)
	if err != nil {
		if !errors.Is(err, app.ErrEmptyMessage) {
			slog.Error("chat failed", "user_id", userID, "error", err)
			b.sendAdminAlert(fmt.Sprintf("⚠️ *Chat failed*\nUser: %s\n`%s`", userID, escape(err.Error())))
		}
		b.send(tgbotapi.NewEditMessageText(chatID, sent.MessageID, t.Failure))
		return
	}

	if res.List == nil {
		b.send(tgbotapi.NewEditMessageText(chatID, sent.MessageID, res.Message))
		return
	}

	keyboard := listKeyboard(*res.List, lang)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, sent.MessageID, formatListMarkdown(*res.List, lang), keyboard)
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)
}

func (b *Bot) handleList(ctx context.Context, chatID int64, userID, lang string) {
	sess, err := b.app.CurrentList(ctx, userID)
	if err != nil {
		b.replyError(chatID, userID, lang, err)
		return
	}
	b.sendList(chatID, sess.Snapshot, lang, "")
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, userID, text, lang string) {
	t := textsFor(lang)
	if text == "" {
		b.send(tgbotapi.NewMessage(chatID, t.EditUsage))
		return
	}

	res, err := b.app.Edit(ctx, userID, text, lang)
	if err != nil {
		b.replyError(chatID, userID, lang, err)
		return
	}
	if res.NoChanges {
		b.send(tgbotapi.NewMessage(chatID, t.NoChanges))
		return
	}
	b.sendList(chatID, *res.List, lang, t.Updated+"\n\n")
}

func (b *Bot) handleClear(ctx context.Context, chatID int64, userID, lang string) {
	if err := b.app.Clear(ctx, userID); err != nil {
		b.replyError(chatID, userID, lang, err)
		return
	}
	b.send(tgbotapi.NewMessage(chatID, textsFor(lang).Cleared))
}

func (b *Bot) handleSpent(ctx context.Context, chatID int64, userID, text, lang string) {
	t := textsFor(lang)
	parsed := b.app.ParseAmount(text, lang)
	if parsed.Amount <= 0 {
		b.send(tgbotapi.NewMessage(chatID, t.SpentUsage))
		return
	}

	res, err := b.app.RecordExpense(ctx, userID, parsed.Amount)
	if err != nil {
		b.replyError(chatID, userID, lang, err)
		return
	}
	format := t.SpentSaved
	if res.FromHistory {
		format = t.SpentHistory
	}
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(format, parsed.Formatted)))
}

func (b *Bot) handleAnalytics(ctx context.Context, chatID int64, userID, lang string) {
	a, err := b.app.Analytics(ctx, userID)
	if err != nil {
		b.replyError(chatID, userID, lang, err)
		return
	}
	reply := tgbotapi.NewMessage(chatID, formatAnalyticsMarkdown(a, lang))
	reply.ParseMode = tgbotapi.ModeMarkdown
	b.send(reply)
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if b.adminID == 0 || msg.From.ID != b.adminID {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		reply.ParseMode = tgbotapi.ModeMarkdown
		b.send(reply)
		return
	}
	b.handleMetricsCommand(ctx, msg.Chat.ID)
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	if b.usage == nil {
		b.send(tgbotapi.NewMessage(chatID, "❌ Metrics are disabled."))
		return
	}
	usage, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		slog.Error("failed to fetch metrics", "error", err)
		b.send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}
	agents, err := b.usage.GetUsageByAgent(ctx, 7)
	if err != nil {
		slog.Error("failed to fetch agent metrics", "error", err)
		b.send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}

	reply := tgbotapi.NewMessage(chatID, formatMetricsMarkdown(usage, agents, metrics.GetSysHealth(b.dataPath)))
	reply.ParseMode = tgbotapi.ModeMarkdown
	b.send(reply)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		slog.Warn("failed to answer callback", "error", err)
	}
	if query.Message == nil {
		return
	}

	userID := userKey(query.From.ID)
	chatID := query.Message.Chat.ID
	parts := strings.Split(query.Data, "|")

	switch parts[0] {
	case callbackLanguage:
		if len(parts) != 2 {
			return
		}
		if err := b.app.SetLanguage(ctx, userID, parts[1]); err != nil {
			slog.Warn("failed to set language", "user_id", userID, "error", err)
			return
		}
		b.send(tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, textsFor(parts[1]).LanguageSet))

	case callbackToggle:
		ci, ii, ok := parseToggleData(parts)
		if !ok {
			return
		}
		b.toggleByPosition(ctx, query, userID, ci, ii)

	case callbackClear:
		lang, _ := b.app.Language(ctx, userID)
		if err := b.app.Clear(ctx, userID); err != nil {
			b.replyError(chatID, userID, lang, err)
			return
		}
		b.send(tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, textsFor(lang).Cleared))
	}
}

func (b *Bot) toggleByPosition(ctx context.Context, query *tgbotapi.CallbackQuery, userID string, ci, ii int) {
	chatID := query.Message.Chat.ID
	lang, _ := b.app.Language(ctx, userID)

	res, err := b.app.ToggleAt(ctx, userID, ci, ii)
	if err != nil {
		b.replyError(chatID, userID, lang, err)
		return
	}
	if !res.Found {
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, query.Message.MessageID,
		formatListMarkdown(res.List, lang), listKeyboard(res.List, lang))
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)

	if res.ShowExpensePrompt {
		b.send(tgbotapi.NewMessage(chatID, textsFor(lang).SpentUsage))
	}
}

func (b *Bot) sendList(chatID int64, snap shopping.Snapshot, lang, prefix string) {
	reply := tgbotapi.NewMessage(chatID, prefix+formatListMarkdown(snap, lang))
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = listKeyboard(snap, lang)
	b.send(reply)
}

func (b *Bot) replyError(chatID int64, userID, lang string, err error) {
	t := textsFor(lang)
	if errors.Is(err, app.ErrListNotFound) {
		b.send(tgbotapi.NewMessage(chatID, t.NoList))
		return
	}
	slog.Error("telegram request failed", "user_id", userID, "error", err)
	b.send(tgbotapi.NewMessage(chatID, t.Failure))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		slog.Warn("failed to send telegram message", "error", err)
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.adminID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(b.adminID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}
