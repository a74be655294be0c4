package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Chat bridge API configuration
	Chat ChatConfig

	// Decision engine configuration
	Engine EngineConfig

	// Store configuration
	Store StoreConfig

	// Pipeline configuration
	Pipeline PipelineConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// Debug mode
	Debug bool
}

// ChatConfig contains chat bridge API configuration
type ChatConfig struct {
	BaseURL string
}

// EngineConfig contains decision engine configuration
type EngineConfig struct {
	APIKey  string
	BaseURL string // empty = provider default
	Model   string
}

// StoreConfig contains triage store configuration
type StoreConfig struct {
	DBPath string
}

// PipelineConfig contains pipeline run configuration
type PipelineConfig struct {
	PageSize      int           // max unread messages fetched per chat
	HistoryLimit  int           // recent messages fetched as engine context
	ClaimMaxAge   time.Duration // claims older than this are released at run start
	RunInterval   time.Duration // 0 = single shot
	EngineRetries int           // bounded retries for engine calls
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	chatAPIURL := os.Getenv("CHAT_API_URL")
	if chatAPIURL == "" {
		chatAPIURL = "http://localhost:3000/api"
	}

	dbPath := os.Getenv("MESSAGES_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".whatsapp-monitor", "messages.db")
	}

	pageSize := 50
	if val := os.Getenv("PAGE_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}

	historyLimit := 10
	if val := os.Getenv("HISTORY_LIMIT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			historyLimit = parsed
		}
	}

	claimMaxAgeMin := 10
	if val := os.Getenv("CLAIM_MAX_AGE_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			claimMaxAgeMin = parsed
		}
	}

	runIntervalMin := 0
	if val := os.Getenv("RUN_INTERVAL_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			runIntervalMin = parsed
		}
	}

	engineRetries := 2
	if val := os.Getenv("ENGINE_RETRIES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			engineRetries = parsed
		}
	}

	promptsConfig, _ := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))

	return &Config{
		Chat: ChatConfig{
			BaseURL: chatAPIURL,
		},
		Engine: EngineConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("OPENAI_MODEL"),
		},
		Store: StoreConfig{
			DBPath: dbPath,
		},
		Pipeline: PipelineConfig{
			PageSize:      pageSize,
			HistoryLimit:  historyLimit,
			ClaimMaxAge:   time.Duration(claimMaxAgeMin) * time.Minute,
			RunInterval:   time.Duration(runIntervalMin) * time.Minute,
			EngineRetries: engineRetries,
		},
		Prompts: promptsConfig,
		Debug:   os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Engine.APIKey == "" {
		return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
