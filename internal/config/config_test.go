package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, "bozorlik.db", cfg.Database.Path)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 100, cfg.History.MaxEntries)
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoadEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("BOZORLIK_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("BOZORLIK_SHARE_TTL", "2h")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_USER_ID", "77")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-plain", cfg.LLM.APIKey())
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 2*time.Hour, cfg.Share.TTL)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, int64(77), cfg.Telegram.AdminUserID)
}

func TestPrefixedEnvironmentWins(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BOZORLIK_SERVER_PORT", "7070")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8081
llm:
  provider: gemini
  gemini_api_key: g-key
share:
  secret: s3cret
session:
  store: memory
`), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "g-key", cfg.LLM.APIKey())
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8000},
			Session: SessionConfig{Store: "sqlite"},
			LLM:     LLMConfig{Provider: ProviderGroq, GroqAPIKey: "k"},
			Share:   ShareConfig{Secret: "s"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }, `unknown llm provider "bard"`},
		{"missing key", func(c *Config) { c.LLM.GroqAPIKey = "" }, `api key for llm provider "groq" not set`},
		{"other provider key ignored", func(c *Config) {
			c.LLM.GroqAPIKey = ""
			c.LLM.OpenAIAPIKey = "k"
		}, `api key for llm provider "groq" not set`},
		{"missing secret", func(c *Config) { c.Share.Secret = "" }, "share secret not set"},
		{"bad store", func(c *Config) { c.Session.Store = "redis" }, `unknown session store "redis"`},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid port 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
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
