package config

import (
	"fmt"
	"os"
	"time"

	"sweetswap/internal/llm"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Logging struct {
		Mode string `yaml:"mode"` // "development" or "production"
	} `yaml:"logging"`

	// Ordered text-generation providers, tried first to last
	Providers []llm.ProviderConfig `yaml:"providers"`

	// Single Gemini provider, used when Providers is empty
	Gemini struct {
		APIKey     string        `yaml:"api_key"`
		ModelNames []string      `yaml:"model_names"`
		MaxRetries int           `yaml:"max_retries"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"gemini"`

	Nutrition struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"nutrition"`

	Database struct {
		Path string `yaml:"path"` // SQLite path or PostgreSQL URL
		Type string `yaml:"type"` // "sqlite" or "postgres"
	} `yaml:"database"`

	MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`
}

// DefaultGeminiModels is the probe order when no model list is configured
var DefaultGeminiModels = []string{
	"gemini-2.0-flash",
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-1.5-flash",
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	return config, nil
}

// Default returns a configuration built only from defaults and environment
func Default() *Config {
	config := &Config{}
	config.applyEnv()
	config.applyDefaults()
	return config
}

func (c *Config) applyEnv() {
	// Expand environment variables in secrets
	for i := range c.Providers {
		c.Providers[i].APIKey = os.ExpandEnv(c.Providers[i].APIKey)
	}
	c.Gemini.APIKey = os.ExpandEnv(c.Gemini.APIKey)
	c.Nutrition.APIKey = os.ExpandEnv(c.Nutrition.APIKey)
	c.Database.Path = os.ExpandEnv(c.Database.Path)

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("NUTRITION_API_KEY"); v != "" {
		c.Nutrition.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.Path = v
		c.Database.Type = "postgres"
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}

	if c.Logging.Mode == "" {
		c.Logging.Mode = "development"
	}

	if len(c.Gemini.ModelNames) == 0 {
		c.Gemini.ModelNames = append([]string(nil), DefaultGeminiModels...)
	}

	if c.Gemini.MaxRetries == 0 {
		c.Gemini.MaxRetries = 1
	}

	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = 8 * time.Second
	}

	if c.Nutrition.BaseURL == "" {
		c.Nutrition.BaseURL = "https://api.nal.usda.gov/fdc/v1"
	}

	if c.Nutrition.Timeout == 0 {
		c.Nutrition.Timeout = 8 * time.Second
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/sweetswap.db"
	}

	if c.MaxFailuresBeforeSwitch == 0 {
		c.MaxFailuresBeforeSwitch = 3
	}
}

// ProviderConfigs returns the provider chain to build. A legacy Gemini
// section with a key becomes a single-entry chain. Providers without an API
// key are dropped, so an empty result means no generation credential.
func (c *Config) ProviderConfigs() []llm.ProviderConfig {
	providers := c.Providers
	if len(providers) == 0 && c.Gemini.APIKey != "" {
		providers = []llm.ProviderConfig{{
			Type:       llm.ProviderGemini,
			APIKey:     c.Gemini.APIKey,
			ModelNames: c.Gemini.ModelNames,
			MaxRetries: c.Gemini.MaxRetries,
			Timeout:    c.Gemini.Timeout,
		}}
	}

	configured := make([]llm.ProviderConfig, 0, len(providers))
	for _, p := range providers {
		if p.APIKey == "" || p.APIKey == "YOUR_API_KEY_HERE" {
			continue
		}
		configured = append(configured, p)
	}
	return configured
}
