package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Config holds the configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Session  SessionConfig  `mapstructure:"session"`
	History  HistoryConfig  `mapstructure:"history"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Share    ShareConfig    `mapstructure:"share"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// SessionConfig selects where active lists live: "sqlite" or "memory".
type SessionConfig struct {
	Store string `mapstructure:"store"`
}

type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CachePath    string        `mapstructure:"cache_path"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	GroqAPIKey   string        `mapstructure:"groq_api_key"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
}

// APIKey returns the key of the selected provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case ProviderGroq:
		return c.GroqAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

type ShareConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	WebhookURL  string `mapstructure:"webhook_url"`
	AdminUserID int64  `mapstructure:"admin_user_id"`
}

// Enabled reports whether the bot should be started.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}

type MetricsConfig struct {
	Retention time.Duration `mapstructure:"retention"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// plain environment names accepted next to the BOZORLIK_ prefixed ones
var envAliases = map[string][]string{
	"server.host":            {"HOST"},
	"server.port":            {"PORT"},
	"database.path":          {"DATABASE_PATH"},
	"catalog.path":           {"CATALOG_PATH"},
	"llm.openai_api_key":     {"OPENAI_API_KEY"},
	"llm.groq_api_key":       {"GROQ_API_KEY"},
	"llm.gemini_api_key":     {"GEMINI_API_KEY"},
	"share.secret":           {"SHARE_SECRET"},
	"telegram.bot_token":     {"TELEGRAM_BOT_TOKEN"},
	"telegram.webhook_url":   {"TELEGRAM_WEBHOOK_URL"},
	"telegram.admin_user_id": {"TELEGRAM_ADMIN_USER_ID"},
}

// SetDefaults registers a default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.path", "bozorlik.db")
	v.SetDefault("catalog.path", "data/products.json")
	v.SetDefault("session.store", "sqlite")
	v.SetDefault("history.max_entries", 100)
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.cache_path", "")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.groq_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("share.secret", "")
	v.SetDefault("share.ttl", 30*24*time.Hour)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.admin_user_id", 0)
	v.SetDefault("metrics.retention", 30*24*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("BOZORLIK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		prefixed := "BOZORLIK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}
	return v
}

// Load reads the optional YAML file at path into v and decodes the result.
// A missing file is not an error when path is empty.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("bozorlik")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings needed to serve traffic.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.APIKey() == "" {
		return fmt.Errorf("api key for llm provider %q not set", c.LLM.Provider)
	}
	if c.Share.Secret == "" {
		return errors.New("share secret not set")
	}
	switch c.Session.Store {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}
