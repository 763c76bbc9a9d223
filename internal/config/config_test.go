package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narravox/sentinel/internal/config"
)

func TestLoadConfig_DefaultHostIsLocalhost(t *testing.T) {
	_ = os.Unsetenv("SENTINEL_HOST")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host,
		"Default host must be 127.0.0.1 for security")
}

func TestLoadConfig_CanOverrideHost(t *testing.T) {
	t.Setenv("SENTINEL_HOST", "0.0.0.0")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"SENTINEL_STORAGE_ENGINE", "SENTINEL_LLM_PROVIDER",
		"SENTINEL_SCOPE", "SENTINEL_VAULT_ROOT", "SENTINEL_LORE_GLOBS",
	} {
		_ = os.Unsetenv(key)
	}

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.StorageEngine)
	assert.Equal(t, "ollama", cfg.LLM.LLMProvider)
	assert.Equal(t, "default", cfg.Vault.ScopeID)
	assert.Equal(t, ".", cfg.Vault.Root)
	assert.Nil(t, cfg.Vault.LoreGlobs)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
}

func TestLoadConfig_ListParsing(t *testing.T) {
	t.Setenv("SENTINEL_LORE_GLOBS", " lore/**, canon/** ,,")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"lore/**", "canon/**"}, cfg.Vault.LoreGlobs)
}

func TestLoadConfig_BadIntFallsBack(t *testing.T) {
	t.Setenv("SENTINEL_LLM_MAX_ATTEMPTS", "many")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
}

func TestLoadConfig_PostgresRequiresURL(t *testing.T) {
	t.Setenv("SENTINEL_STORAGE_ENGINE", "postgres")
	_ = os.Unsetenv("SENTINEL_POSTGRES_URL")
	_, err := config.LoadConfig()
	assert.Error(t, err)

	t.Setenv("SENTINEL_POSTGRES_URL", "postgres://localhost/sentinel")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.StorageEngine)
}

func TestLoadConfig_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("SENTINEL_LLM_PROVIDER", "openai")
	_ = os.Unsetenv("SENTINEL_OPENAI_API_KEY")
	_, err := config.LoadConfig()
	assert.Error(t, err)

	t.Setenv("SENTINEL_OPENAI_API_KEY", "sk-test")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAIFlashModel)
}

func TestLoadConfig_RejectsUnknownEngine(t *testing.T) {
	t.Setenv("SENTINEL_STORAGE_ENGINE", "etcd")
	_, err := config.LoadConfig()
	assert.Error(t, err)
}
