package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"bozorlik/internal/config"
	"bozorlik/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"},
		{"catalog", "lookup"},
		{"catalog", "search"},
		{"catalog", "import-html"},
		{"parse-amount"},
		{"metrics", "report"},
		{"metrics", "cleanup"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestParseAmountCommand(t *testing.T) {
	chdirTemp(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"parse-amount", "--lang", "uz", "120", "ming"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"amount": 120000`)
	assert.Contains(t, out.String(), `"formatted": "120 000 so'm"`)
}

func TestNewTextGeneratorCache(t *testing.T) {
	cfg := config.LLMConfig{
		Provider:     config.ProviderOpenAI,
		OpenAIAPIKey: "sk-test",
		CachePath:    filepath.Join(t.TempDir(), "llm_cache.json"),
	}

	gen, err := newTextGenerator(context.Background(), cfg, "editor", llm.Options{JSON: true})
	require.NoError(t, err)
	t.Cleanup(func() { closeGenerator(gen) })

	_, ok := gen.(*llm.CachedTextGenerator)
	assert.True(t, ok)

	cfg.CachePath = ""
	plain, err := newTextGenerator(context.Background(), cfg, "editor", llm.Options{})
	require.NoError(t, err)
	_, ok = plain.(*llm.CachedTextGenerator)
	assert.False(t, ok)
}

// chdirTemp changes into a fresh temp dir for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
