package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sweetswap/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GROQ_API_KEY", "NUTRITION_API_KEY", "DATABASE_URL", "PORT"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Logging.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "./data/sweetswap.db", cfg.Database.Path)
	assert.Equal(t, DefaultGeminiModels, cfg.Gemini.ModelNames)
	assert.Equal(t, 8*time.Second, cfg.Nutrition.Timeout)
	assert.Equal(t, 3, cfg.MaxFailuresBeforeSwitch)
	assert.Empty(t, cfg.ProviderConfigs())
}

func TestLoadConfig_ExpandsProviderKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-secret")

	path := writeConfig(t, `
server:
  port: "9000"
providers:
  - type: gemini
    api_key: ${GEMINI_API_KEY}
    model_names: [gemini-2.0-flash]
    timeout: 5s
    requests_per_minute: 10
  - type: groq
    api_key: ${GROQ_API_KEY}
nutrition:
  api_key: literal-usda-key
  timeout: 3s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "literal-usda-key", cfg.Nutrition.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Nutrition.Timeout)

	providers := cfg.ProviderConfigs()
	require.Len(t, providers, 1, "groq has no key and is skipped")
	assert.Equal(t, llm.ProviderGemini, providers[0].Type)
	assert.Equal(t, "gemini-secret", providers[0].APIKey)
	assert.Equal(t, []string{"gemini-2.0-flash"}, providers[0].ModelNames)
	assert.Equal(t, 5*time.Second, providers[0].Timeout)
	assert.Equal(t, 10, providers[0].RequestsPerMinute)
}

func TestLoadConfig_LegacyGeminiSection(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
gemini:
  api_key: legacy-key
  max_retries: 2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	providers := cfg.ProviderConfigs()
	require.Len(t, providers, 1)
	assert.Equal(t, llm.ProviderGemini, providers[0].Type)
	assert.Equal(t, "legacy-key", providers[0].APIKey)
	assert.Equal(t, 2, providers[0].MaxRetries)
	assert.Equal(t, DefaultGeminiModels, providers[0].ModelNames)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NUTRITION_API_KEY", "env-usda")
	t.Setenv("DATABASE_URL", "postgres://localhost/sweetswap?sslmode=disable")
	t.Setenv("PORT", "8080")

	path := writeConfig(t, `
database:
  type: sqlite
  path: ./data/other.db
nutrition:
  api_key: file-usda
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "env-usda", cfg.Nutrition.APIKey)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://localhost/sweetswap?sslmode=disable", cfg.Database.Path)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "server: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestProviderConfigs_SkipsPlaceholderKeys(t *testing.T) {
	cfg := &Config{Providers: []llm.ProviderConfig{
		{Type: llm.ProviderGroq, APIKey: "YOUR_API_KEY_HERE"},
		{Type: llm.ProviderOpenRouter, APIKey: "or-key"},
	}}

	providers := cfg.ProviderConfigs()
	require.Len(t, providers, 1)
	assert.Equal(t, llm.ProviderOpenRouter, providers[0].Type)
}
