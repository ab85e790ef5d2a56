// Package assistant holds the LLM-backed agents: the formatter turns free text
// into a categorized list and the editor turns edit requests into operations.
package assistant

import (
	"context"
	"log/slog"
	"time"

	"bozorlik/internal/llm"
	"bozorlik/internal/shared"
	"bozorlik/internal/shopping"
)

const FormatterAgent = "formatter"

var apologies = map[string]string{
	shared.LangRU: "Извините, произошла ошибка при обработке запроса.",
	shared.LangUZ: "Kechirasiz, so'rovni qayta ishlashda xatolik yuz berdi.",
}

// Apology is the reply used when the model cannot be reached.
func Apology(lang string) string {
	if s, ok := apologies[lang]; ok {
		return s
	}
	return apologies[shared.LangRU]
}

// HintFunc returns known prices worth showing the model for text.
type HintFunc func(text, lang string) []string

// FormatResult is the model's reply to a chat message.
type FormatResult struct {
	Text string
	// IsList is set when Text contains a category header emoji.
	IsList bool
	Meta   shared.AgentMeta
}

// Formatter formats user text into a categorized list.
type Formatter struct {
	textGen llm.TextGenerator
	hints   HintFunc
}

// NewFormatter creates a formatter. hints may be nil.
func NewFormatter(textGen llm.TextGenerator, hints HintFunc) *Formatter {
	return &Formatter{textGen: textGen, hints: hints}
}

// Format asks the model to format text. Model failures yield the apology
// text for lang and are only logged.
func (f *Formatter) Format(ctx context.Context, text, lang string) (FormatResult, error) {
	start := time.Now()

	data := promptData{Input: text, Categories: categoryLabels(lang)}
	if f.hints != nil {
		data.PriceHints = f.hints(text, lang)
	}
	prompt, err := renderPrompt(FormatterAgent, lang, data)
	if err != nil {
		return FormatResult{}, err
	}

	resp, err := f.textGen.GenerateContent(ctx, prompt)
	meta := shared.AgentMeta{AgentName: FormatterAgent, Usage: resp.Usage, Latency: time.Since(start)}
	if err != nil {
		slog.Warn("formatter failed", "lang", lang, "error", err)
		return FormatResult{Text: Apology(lang), Meta: meta}, nil
	}

	return FormatResult{
		Text:   resp.Content,
		IsList: shopping.HasCategoryEmoji(resp.Content),
		Meta:   meta,
	}, nil
}

func categoryLabels(lang string) []string {
	cats := shopping.Categories(lang)
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = c.Label()
	}
	return labels
}
