package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sweetswap/internal/chatcompletion"
	"sweetswap/internal/gemini"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
)

// ErrRateLimited is returned when a provider's local request budget is spent
var ErrRateLimited = errors.New("provider rate limit reached")

// ErrAllProvidersFailed is returned when no provider accepted the request
var ErrAllProvidersFailed = errors.New("all providers failed")

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type       ProviderType `yaml:"type"`
	APIKey     string       `yaml:"api_key"`
	ModelName  string       `yaml:"model_name"`
	ModelNames []string     `yaml:"model_names"` // Gemini probe order; ModelName is prepended if set
	BaseURL    string       `yaml:"base_url"`    // Endpoint override

	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Timeout    time.Duration `yaml:"timeout"` // Per outbound request

	// Rate limiting per provider
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Provider interface for any LLM provider
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// RateLimitedProvider wraps a provider with a token bucket. It never blocks:
// when the bucket is empty the call fails fast so the chain can move on.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewRateLimitedProvider wraps a provider with rate limiting
func NewRateLimitedProvider(provider Provider, requestsPerMinute int, logger *zap.Logger) *RateLimitedProvider {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 8
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		logger:   logger,
	}
}

func (p *RateLimitedProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	if !p.limiter.Allow() {
		p.logger.Warn("Provider request budget exhausted",
			zap.Any("model", p.provider.GetModelInfo()["model"]))
		return "", ErrRateLimited
	}

	return p.provider.Complete(ctx, system, prompt)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) GetModelInfo() map[string]interface{} {
	return p.provider.GetModelInfo()
}

// MultiProviderClient manages multiple LLM providers with fallback
type MultiProviderClient struct {
	providers    []Provider
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// MultiProviderConfig holds configuration for multiple providers
type MultiProviderConfig struct {
	Providers   []ProviderConfig
	MaxFailures int // Consecutive failures before the preferred provider is demoted
}

// NewMultiProviderClient creates a new multi-provider client
func NewMultiProviderClient(cfg MultiProviderConfig, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	providers := make([]Provider, 0, len(cfg.Providers))

	for i, providerCfg := range cfg.Providers {
		provider, err := newProvider(providerCfg, logger)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		rateLimit := providerCfg.RequestsPerMinute
		if rateLimit == 0 {
			rateLimit = 8 // Conservative default for free tier
		}

		providers = append(providers, NewRateLimitedProvider(provider, rateLimit, logger))

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.Int("rate_limit", rateLimit),
			zap.Int("index", i))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers could be initialized")
	}

	return NewMultiProviderClientFrom(providers, cfg.MaxFailures, logger), nil
}

// NewMultiProviderClientFrom chains already constructed providers in order
func NewMultiProviderClientFrom(providers []Provider, maxFailures int, logger *zap.Logger) *MultiProviderClient {
	if maxFailures == 0 {
		maxFailures = 3
	}

	return &MultiProviderClient{
		providers:    providers,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  maxFailures,
	}
}

func newProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case ProviderGemini:
		models := cfg.ModelNames
		if cfg.ModelName != "" {
			models = append([]string{cfg.ModelName}, models...)
		}
		var opts []option.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithEndpoint(cfg.BaseURL))
		}
		return gemini.NewClient(gemini.Config{
			APIKey:        cfg.APIKey,
			ModelNames:    models,
			MaxRetries:    cfg.MaxRetries,
			RetryDelay:    cfg.RetryDelay,
			Timeout:       cfg.Timeout,
			ClientOptions: opts,
		}, logger)
	case ProviderGroq, ProviderOpenRouter:
		return chatcompletion.NewClient(chatcompletion.Config{
			Provider:   string(cfg.Type),
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			ModelName:  cfg.ModelName,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Timeout:    cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// getCurrentIndex returns the preferred provider index
func (c *MultiProviderClient) getCurrentIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentIndex
}

func (c *MultiProviderClient) setCurrentIndex(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentIndex != index {
		c.logger.Info("Switching provider",
			zap.Int("from_index", c.currentIndex),
			zap.Int("to_index", index),
			zap.Int("total_providers", len(c.providers)))
		c.currentIndex = index
	}
}

// recordFailure records a failure and reports whether the provider should be demoted
func (c *MultiProviderClient) recordFailure(providerIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount[providerIndex]++

	if c.failureCount[providerIndex] >= c.maxFailures {
		c.logger.Warn("Provider reached max failures",
			zap.Int("provider_index", providerIndex),
			zap.Int("failures", c.failureCount[providerIndex]))
		return true
	}

	return false
}

func (c *MultiProviderClient) resetFailureCount(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount[providerIndex] = 0
}

// Complete walks the chain from the preferred provider until one accepts.
// The provider that answers becomes preferred for later calls only if the
// previous one was demoted.
func (c *MultiProviderClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := c.getCurrentIndex()
	var lastErr error

	for attempt := 0; attempt < len(c.providers); attempt++ {
		index := (start + attempt) % len(c.providers)

		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("completion cancelled: %w", err)
		}

		c.logger.Debug("Attempting completion",
			zap.Int("provider_index", index),
			zap.Int("attempt", attempt+1))

		result, err := c.providers[index].Complete(ctx, system, prompt)
		if err == nil {
			c.resetFailureCount(index)
			return result, nil
		}

		lastErr = err
		c.logger.Warn("Provider failed",
			zap.Int("provider_index", index),
			zap.Error(err))

		if c.recordFailure(index) || isRateLimitError(err) {
			if index == c.getCurrentIndex() {
				c.setCurrentIndex((index + 1) % len(c.providers))
			}
		}
	}

	return "", fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

// isRateLimitError checks if error is a rate limit error
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate limit")
}

// Close closes all providers
func (c *MultiProviderClient) Close() error {
	var lastErr error
	for i, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.Int("index", i),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// GetModelInfo returns information about the current provider
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	index := c.getCurrentIndex()
	info := c.providers[index].GetModelInfo()

	c.mu.RLock()
	defer c.mu.RUnlock()
	info["is_current"] = true
	info["provider_index"] = index
	info["total_providers"] = len(c.providers)
	info["failure_count"] = c.failureCount[index]
	return info
}

// GetProvidersInfo returns information about all providers
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := make([]map[string]interface{}, len(c.providers))
	for i, provider := range c.providers {
		providerInfo := provider.GetModelInfo()
		providerInfo["is_current"] = (i == c.currentIndex)
		providerInfo["failure_count"] = c.failureCount[i]
		info[i] = providerInfo
	}
	return info
}
