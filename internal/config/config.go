// Package config provides configuration management for Sentinel.
// It loads settings from environment variables with the SENTINEL_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration settings for the Sentinel engine.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	LLM     LLMConfig
	Vault   VaultConfig
}

// ServerConfig contains the event hub's listener configuration.
type ServerConfig struct {
	Port    int      // Hub port (default: 7117)
	Host    string   // Hub host (default: 127.0.0.1)
	Origins []string // Allowed websocket origin patterns
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory (default: ./data)
	PostgresURL   string // Postgres connection string, required for the postgres engine
}

// LLMConfig contains generation-layer provider configuration.
type LLMConfig struct {
	LLMProvider          string  // LLM provider: ollama, openai (default: ollama)
	OllamaURL            string  // Ollama API URL (default: http://localhost:11434)
	OllamaFlashModel     string  // Ollama model for the fast tier (default: qwen2.5:7b)
	OllamaStrictModel    string  // Ollama model for the strict tier (default: qwen2.5:14b)
	OllamaEmbeddingModel string  // Ollama embedding model (default: nomic-embed-text)
	OpenAIAPIKey         string  // OpenAI API key
	OpenAIFlashModel     string  // OpenAI model for the fast tier (default: gpt-4o-mini)
	OpenAIStrictModel    string  // OpenAI model for the strict tier (default: gpt-4o)
	OpenAIEmbeddingModel string  // OpenAI embedding model (default: text-embedding-3-small)
	MaxAttempts          int     // Per-tier retry attempts (default: 3)
	RequestsPerSecond    float64 // Outbound call throttle; 0 disables
}

// VaultConfig describes the manuscript tree being watched.
type VaultConfig struct {
	Root      string   // Root directory of the manuscript tree (default: .)
	ScopeID   string   // Project scope all chunks and entities are keyed by (default: default)
	LoreGlobs []string // Glob patterns whose chunks count as high-priority law evidence
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the SENTINEL_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnvInt("SENTINEL_PORT", 7117),
			Host:    getEnv("SENTINEL_HOST", "127.0.0.1"),
			Origins: getEnvList("SENTINEL_HUB_ORIGINS", nil),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("SENTINEL_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("SENTINEL_DATA_PATH", "./data"),
			PostgresURL:   getEnv("SENTINEL_POSTGRES_URL", ""),
		},
		LLM: LLMConfig{
			LLMProvider:          getEnv("SENTINEL_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("SENTINEL_OLLAMA_URL", "http://localhost:11434"),
			OllamaFlashModel:     getEnv("SENTINEL_OLLAMA_FLASH_MODEL", "qwen2.5:7b"),
			OllamaStrictModel:    getEnv("SENTINEL_OLLAMA_STRICT_MODEL", "qwen2.5:14b"),
			OllamaEmbeddingModel: getEnv("SENTINEL_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("SENTINEL_OPENAI_API_KEY", ""),
			OpenAIFlashModel:     getEnv("SENTINEL_OPENAI_FLASH_MODEL", "gpt-4o-mini"),
			OpenAIStrictModel:    getEnv("SENTINEL_OPENAI_STRICT_MODEL", "gpt-4o"),
			OpenAIEmbeddingModel: getEnv("SENTINEL_OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			MaxAttempts:          getEnvInt("SENTINEL_LLM_MAX_ATTEMPTS", 3),
			RequestsPerSecond:    getEnvFloat("SENTINEL_LLM_REQUESTS_PER_SECOND", 0),
		},
		Vault: VaultConfig{
			Root:      getEnv("SENTINEL_VAULT_ROOT", "."),
			ScopeID:   getEnv("SENTINEL_SCOPE", "default"),
			LoreGlobs: getEnvList("SENTINEL_LORE_GLOBS", nil),
		},
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("config: SENTINEL_POSTGRES_URL is required for the postgres engine")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.StorageEngine)
	}

	switch c.LLM.LLMProvider {
	case "ollama":
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("config: SENTINEL_OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("config: unknown LLM provider %q", c.LLM.LLMProvider)
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated environment variable as a slice,
// trimming whitespace and dropping empty elements.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
