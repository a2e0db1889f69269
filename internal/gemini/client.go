package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API client. It probes an ordered list of model
// names and sticks with the first one that accepts a request.
type Client struct {
	client     *genai.Client
	logger     *zap.Logger
	modelNames []string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration

	mu          sync.Mutex
	models      map[string]*genai.GenerativeModel
	activeIndex int
}

// Config for Gemini client
type Config struct {
	APIKey     string
	ModelNames []string // Probe order, most preferred first
	MaxRetries int      // Attempts per model
	RetryDelay time.Duration
	Timeout    time.Duration // Per GenerateContent call

	// Extra client options, e.g. option.WithEndpoint for a proxy
	ClientOptions []option.ClientOption
}

// NewClient creates a new Gemini client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if len(cfg.ModelNames) == 0 {
		cfg.ModelNames = []string{"gemini-2.0-flash"}
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}

	ctx := context.Background()
	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.ClientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client initialized",
		zap.Strings("models", cfg.ModelNames),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		client:     client,
		logger:     logger,
		modelNames: cfg.ModelNames,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
		models:     make(map[string]*genai.GenerativeModel),
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) model(name, system string) *genai.GenerativeModel {
	c.mu.Lock()
	defer c.mu.Unlock()

	// System instructions are fixed per process, so the first one wins
	if m, ok := c.models[name]; ok {
		return m
	}

	m := c.client.GenerativeModel(name)
	m.SystemInstruction = systemContent(system)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      genai.Ptr[float32](0.4),
		TopP:             genai.Ptr[float32](0.9),
		TopK:             genai.Ptr[int32](40),
		MaxOutputTokens:  genai.Ptr[int32](512),
		ResponseMIMEType: "application/json",
	}
	c.models[name] = m
	return m
}

func systemContent(system string) *genai.Content {
	if system == "" {
		return nil
	}
	return &genai.Content{Parts: []genai.Part{genai.Text(system)}}
}

func (c *Client) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeIndex
}

func (c *Client) setActive(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeIndex = index
}

// Complete sends the prompt to the active model, moving down the model list
// until one accepts the request.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := c.active()

	var lastErr error
	for offset := 0; offset < len(c.modelNames); offset++ {
		index := (start + offset) % len(c.modelNames)
		name := c.modelNames[index]

		text, err := c.generate(ctx, c.model(name, system), name, prompt)
		if err == nil {
			if index != start {
				c.logger.Info("Switched Gemini model",
					zap.String("from", c.modelNames[start]),
					zap.String("to", name))
				c.setActive(index)
			}
			return text, nil
		}

		lastErr = err
		c.logger.Warn("Gemini model failed",
			zap.String("model", name),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("no working gemini model: %w", lastErr)
}

func (c *Client) generate(ctx context.Context, model *genai.GenerativeModel, name, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying Gemini request",
				zap.String("model", name),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := model.GenerateContent(callCtx, genai.Text(prompt))
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("gemini API error: %w", err)
			continue
		}

		text := responseText(resp)
		if text == "" {
			lastErr = fmt.Errorf("empty response from gemini")
			continue
		}

		c.logger.Debug("Gemini request succeeded",
			zap.String("model", name),
			zap.Int("attempt", attempt+1))

		return text, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    "gemini",
		"model":       c.modelNames[c.active()],
		"candidates":  c.modelNames,
		"max_retries": c.maxRetries,
		"timeout":     c.timeout.String(),
	}
}
