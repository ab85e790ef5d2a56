package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bozorlik/internal/llm"
	"bozorlik/internal/shared"
	"bozorlik/internal/shopping"
)

const EditorAgent = "editor"

// verbs that force the prompt language regardless of the user's setting
var (
	uzbekEditWords   = []string{"qo'sh", "o'chir", "almashtir", "mahsulot"}
	russianEditWords = []string{"добавь", "удали", "замени", "продукт"}
)

// Editor detects edit operations in free text.
type Editor struct {
	textGen llm.TextGenerator
}

func NewEditor(textGen llm.TextGenerator) *Editor {
	return &Editor{textGen: textGen}
}

// EditLanguage picks the prompt language for text.
func EditLanguage(text, lang string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, uzbekEditWords):
		return shared.LangUZ
	case containsAny(lower, russianEditWords):
		return shared.LangRU
	default:
		return lang
	}
}

// DetectChanges asks the model which operations text requests against the
// current list cm (may be nil). Model failures and undecodable replies
// yield no operations.
func (e *Editor) DetectChanges(ctx context.Context, text, lang string, cm *shopping.CategoryMap) ([]shopping.Operation, shared.AgentMeta, error) {
	start := time.Now()
	editLang := EditLanguage(text, lang)

	prompt, err := renderPrompt(EditorAgent, editLang, promptData{
		Input:        text,
		Categories:   categoryLabels(editLang),
		CurrentItems: currentItems(cm),
	})
	if err != nil {
		return nil, shared.AgentMeta{}, err
	}

	resp, err := e.textGen.GenerateContent(ctx, prompt)
	meta := shared.AgentMeta{AgentName: EditorAgent, Usage: resp.Usage, Latency: time.Since(start)}
	if err != nil {
		slog.Warn("editor failed", "lang", editLang, "error", err)
		return nil, meta, nil
	}

	ops := shopping.DecodeOperations([]byte(stripCodeFence(resp.Content)))
	if len(ops) == 0 {
		slog.Debug("editor returned no changes", "response", resp.Content)
	}
	return ops, meta, nil
}

func currentItems(cm *shopping.CategoryMap) []string {
	var out []string
	for _, label := range cm.Keys() {
		for _, item := range cm.Items(label) {
			if item.Quantity != "" {
				out = append(out, fmt.Sprintf("%s — %s", item.Name, item.Quantity))
			} else {
				out = append(out, item.Name)
			}
		}
	}
	return out
}

// stripCodeFence unwraps ```json ... ``` blocks some models emit.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
