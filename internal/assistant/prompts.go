package assistant

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"bozorlik/internal/shared"
)

//go:embed prompts/*.md
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.md"))

type promptData struct {
	Input        string
	Categories   []string
	PriceHints   []string
	CurrentItems []string
}

func renderPrompt(agent, lang string, data promptData) (string, error) {
	if !shared.IsSupportedLanguage(lang) {
		lang = shared.LangRU
	}
	name := fmt.Sprintf("%s_%s.md", agent, lang)

	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", agent, err)
	}
	return buf.String(), nil
}
