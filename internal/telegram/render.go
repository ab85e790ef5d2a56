package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"bozorlik/internal/amount"
	"bozorlik/internal/history"
	"bozorlik/internal/metrics"
	"bozorlik/internal/shared"
	"bozorlik/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type texts struct {
	Welcome       string
	LanguageSet   string
	Thinking      string
	ListTitle     string
	Total         string
	NoList        string
	NoChanges     string
	Updated       string
	Cleared       string
	SpentUsage    string
	SpentSaved    string
	SpentHistory  string
	EditUsage     string
	AnalyticsHead string
	NoHistory     string
	Lists         string
	Spent         string
	Average       string
	Failure       string
	ClearButton   string
}

var messages = map[string]texts{
	shared.LangRU: {
		Welcome:       "👋 Привет! Я помогу составить список покупок.\nВыберите язык:",
		LanguageSet:   "✅ Язык: русский. Напишите, что нужно купить.",
		Thinking:      "⏳ *Составляю список...*",
		ListTitle:     "🛒 *Список покупок*",
		Total:         "Итого",
		NoList:        "Список покупок не найден. Напишите, что нужно купить.",
		NoChanges:     "Не удалось определить изменения",
		Updated:       "✅ Список успешно обновлен",
		Cleared:       "🗑 Список покупок очищен и сохранен в истории",
		SpentUsage:    "Укажите сумму: /spent 150 тысяч",
		SpentSaved:    "💰 Сумма расходов сохранена: %s",
		SpentHistory:  "💰 Сумма расходов сохранена для последнего списка: %s",
		EditUsage:     "Напишите изменения: /edit добавь хлеб",
		AnalyticsHead: "📊 *Аналитика*",
		NoHistory:     "_История пока пуста_",
		Lists:         "Списков",
		Spent:         "Потрачено",
		Average:       "В среднем",
		Failure:       "❌ Произошла ошибка. Попробуйте еще раз.",
		ClearButton:   "🗑 Очистить",
	},
	shared.LangUZ: {
		Welcome:       "👋 Salom! Men xarid ro'yxatini tuzishga yordam beraman.\nTilni tanlang:",
		LanguageSet:   "✅ Til: o'zbekcha. Nima sotib olish kerakligini yozing.",
		Thinking:      "⏳ *Ro'yxat tuzilmoqda...*",
		ListTitle:     "🛒 *Xarid ro'yxati*",
		Total:         "Jami",
		NoList:        "Xarid ro'yxati topilmadi. Nima sotib olish kerakligini yozing.",
		NoChanges:     "O'zgarishlarni aniqlab bo'lmadi",
		Updated:       "✅ Ro'yxat yangilandi",
		Cleared:       "🗑 Ro'yxat tozalandi va tarixga saqlandi",
		SpentUsage:    "Summani kiriting: /spent 150 ming",
		SpentSaved:    "💰 Xarajat saqlandi: %s",
		SpentHistory:  "💰 Xarajat oxirgi ro'yxat uchun saqlandi: %s",
		EditUsage:     "O'zgarishlarni yozing: /edit non qo'sh",
		AnalyticsHead: "📊 *Tahlil*",
		NoHistory:     "_Tarix hozircha bo'sh_",
		Lists:         "Ro'yxatlar",
		Spent:         "Sarflangan",
		Average:       "O'rtacha",
		Failure:       "❌ Xatolik yuz berdi. Qaytadan urinib ko'ring.",
		ClearButton:   "🗑 Tozalash",
	},
}

func textsFor(lang string) texts {
	if t, ok := messages[lang]; ok {
		return t
	}
	return messages[shared.LangRU]
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// formatListMarkdown renders a list with purchase marks and estimates.
func formatListMarkdown(snap shopping.Snapshot, lang string) string {
	t := textsFor(lang)
	var sb strings.Builder
	sb.WriteString(t.ListTitle + "\n")

	if snap.Categories != nil {
		for _, label := range snap.Categories.Keys() {
			sb.WriteString(fmt.Sprintf("\n*%s*\n", escape(label)))
			for _, item := range snap.Categories.Items(label) {
				mark := "▫️"
				if item.Purchased {
					mark = "✅"
				}
				line := escape(item.Name)
				if item.Quantity != "" {
					line += " — " + escape(item.Quantity)
				}
				if item.EstimatedPrice != nil {
					line += " (≈" + amount.Format(float64(*item.EstimatedPrice), lang) + ")"
				}
				sb.WriteString(fmt.Sprintf("%s %s\n", mark, line))
			}
		}
	}

	if snap.TotalEstimatedPrice > 0 {
		sb.WriteString(fmt.Sprintf("\n💰 *%s:* ≈%s\n", t.Total, amount.Format(float64(snap.TotalEstimatedPrice), lang)))
	}
	sb.WriteString(fmt.Sprintf("✅ %d/%d", snap.PurchasedItems, snap.TotalItems))
	return sb.String()
}

// Callback data stays under Telegram's 64 byte limit by addressing items by
// position instead of by name.
const (
	callbackToggle   = "t"
	callbackLanguage = "lang"
	callbackClear    = "clear"
)

func toggleData(category, item int) string {
	return fmt.Sprintf("%s|%d|%d", callbackToggle, category, item)
}

func parseToggleData(parts []string) (category, item int, ok bool) {
	if len(parts) != 3 {
		return 0, 0, false
	}
	c, err1 := strconv.Atoi(parts[1])
	i, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || c < 0 || i < 0 {
		return 0, 0, false
	}
	return c, i, true
}

// listKeyboard has one toggle button per item plus a clear button.
func listKeyboard(snap shopping.Snapshot, lang string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if snap.Categories != nil {
		for ci, label := range snap.Categories.Keys() {
			for ii, item := range snap.Categories.Items(label) {
				mark := "▫️ "
				if item.Purchased {
					mark = "✅ "
				}
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData(mark+item.Name, toggleData(ci, ii)),
				))
			}
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(textsFor(lang).ClearButton, callbackClear),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🇷🇺 Русский", callbackLanguage+"|"+shared.LangRU),
			tgbotapi.NewInlineKeyboardButtonData("🇺🇿 O'zbekcha", callbackLanguage+"|"+shared.LangUZ),
		),
	)
}

func formatAnalyticsMarkdown(a history.Analytics, lang string) string {
	t := textsFor(lang)
	var sb strings.Builder
	sb.WriteString(t.AnalyticsHead + "\n\n")
	if a.TotalLists == 0 {
		sb.WriteString(t.NoHistory)
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("• %s: %d\n", t.Lists, a.TotalLists))
	sb.WriteString(fmt.Sprintf("• %s: %s\n", t.Spent, amount.Format(a.TotalSpent, lang)))
	if a.AverageSpent > 0 {
		sb.WriteString(fmt.Sprintf("• %s: %s\n", t.Average, amount.Format(a.AverageSpent, lang)))
	}
	if a.MinList != nil && a.MaxList != nil {
		sb.WriteString(fmt.Sprintf("• min: %s (%s)\n", amount.Format(a.MinSpent, lang), a.MinDate.Format("2006-01-02")))
		sb.WriteString(fmt.Sprintf("• max: %s (%s)\n", amount.Format(a.MaxSpent, lang), a.MaxDate.Format("2006-01-02")))
	}
	return sb.String()
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, agents []metrics.AgentUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	if len(agents) > 0 {
		sb.WriteString("\n🤖 *Agents*\n")
		for _, a := range agents {
			sb.WriteString(fmt.Sprintf("• %s: %d execs, %.0f ms avg\n", escape(a.AgentName), a.Executions, a.AvgLatencyMS))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
