package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"bozorlik/internal/shared"
)

// CachedTextGenerator wraps a TextGenerator and memoizes responses per prompt
// in a JSON file. Used for development and eval runs.
type CachedTextGenerator struct {
	realGen       TextGenerator
	cache         map[string]ContentResponse
	cacheFilePath string
	mu            sync.Mutex
}

// NewCachedTextGenerator creates a new CachedTextGenerator.
// It attempts to load the cache from the specified file path.
func NewCachedTextGenerator(realGen TextGenerator, cacheFilePath string) (*CachedTextGenerator, error) {
	c := &CachedTextGenerator{
		realGen:       realGen,
		cache:         make(map[string]ContentResponse),
		cacheFilePath: cacheFilePath,
	}

	cacheDir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("llm cache file not found, starting empty", "path", cacheFilePath)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache file %s: %w", cacheFilePath, err)
	}

	if err := json.Unmarshal(data, &c.cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data from %s: %w", cacheFilePath, err)
	}

	slog.Info("loaded llm cache", "entries", len(c.cache), "path", cacheFilePath)
	return c, nil
}

// GenerateContent checks the cache first. On a miss it calls the real
// generator and stores the result. Hits carry no token counts, only the model.
func (c *CachedTextGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if resp, ok := c.cache[prompt]; ok {
		resp.Usage = shared.TokenUsage{Model: resp.Usage.Model}
		return resp, nil
	}

	resp, err := c.realGen.GenerateContent(ctx, prompt)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content using real generator: %w", err)
	}

	c.cache[prompt] = resp
	return resp, nil
}

// Len is the number of cached responses.
func (c *CachedTextGenerator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// SaveCache persists the current in-memory cache to the file system.
func (c *CachedTextGenerator) SaveCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := os.WriteFile(c.cacheFilePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", c.cacheFilePath, err)
	}

	slog.Info("saved llm cache", "entries", len(c.cache), "path", c.cacheFilePath)
	return nil
}

// Close saves the cache and closes the wrapped generator.
func (c *CachedTextGenerator) Close() error {
	if err := c.SaveCache(); err != nil {
		return err
	}
	return Close(c.realGen)
}
