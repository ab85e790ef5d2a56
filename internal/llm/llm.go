package llm

import (
	"context"
	"fmt"

	"bozorlik/internal/config"
	"bozorlik/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// Options tune a generator for one agent.
type Options struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the model for a single JSON object.
	JSON bool
}

// New builds the generator for the configured provider.
func New(ctx context.Context, cfg config.LLMConfig, opts Options) (TextGenerator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, opts)
	case config.ProviderOpenAI, config.ProviderGroq, "":
		return NewChatClient(cfg, opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Close closes g if it holds resources.
func Close(g TextGenerator) error {
	if c, ok := g.(Closer); ok {
		return c.Close()
	}
	return nil
}
