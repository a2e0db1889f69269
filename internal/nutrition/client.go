package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sweetswap/internal/models"

	"go.uber.org/zap"
)

// Nutrient display names as reported by FoodData Central
const (
	SugarNutrientName    = "Sugars, total including NLEA"
	CaffeineNutrientName = "Caffeine"
)

// DataSourceUSDA tags snapshots built from FoodData Central
const DataSourceUSDA = "usda"

// Client queries the USDA FoodData Central search API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config for the nutrition client
type Config struct {
	APIKey  string
	BaseURL string // Default: https://api.nal.usda.gov/fdc/v1
	Timeout time.Duration
}

type searchRequest struct {
	Query           string `json:"query"`
	PageSize        int    `json:"pageSize"`
	RequireAllWords bool   `json:"requireAllWords"`
}

type searchResponse struct {
	Foods []struct {
		Description   string `json:"description"`
		FoodNutrients []struct {
			NutrientName string   `json:"nutrientName"`
			UnitName     string   `json:"unitName"`
			Value        *float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

// NewClient creates a nutrition client. An empty API key is allowed and
// turns Enrich into a no-op.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.nal.usda.gov/fdc/v1"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Enrich looks up sugar and caffeine for drinkName from the best match.
// Without an API key it returns an empty snapshot and makes no request.
// Transport and HTTP errors are returned to the caller.
func (c *Client) Enrich(ctx context.Context, drinkName string) (models.NutrientSnapshot, error) {
	if c.apiKey == "" {
		return models.NutrientSnapshot{}, nil
	}

	body, err := json.Marshal(searchRequest{
		Query:           drinkName,
		PageSize:        1,
		RequireAllWords: true,
	})
	if err != nil {
		return models.NutrientSnapshot{}, fmt.Errorf("failed to marshal search request: %w", err)
	}

	endpoint := c.baseURL + "/foods/search?" + url.Values{"api_key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.NutrientSnapshot{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.NutrientSnapshot{}, fmt.Errorf("nutrition search failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NutrientSnapshot{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.NutrientSnapshot{}, fmt.Errorf("nutrition search returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return models.NutrientSnapshot{}, fmt.Errorf("failed to parse nutrition response: %w", err)
	}

	if len(result.Foods) == 0 {
		c.logger.Debug("No nutrition match", zap.String("drink", drinkName))
		return models.NutrientSnapshot{}, nil
	}

	snapshot := models.NutrientSnapshot{DataSource: DataSourceUSDA}
	for _, n := range result.Foods[0].FoodNutrients {
		switch n.NutrientName {
		case SugarNutrientName:
			if snapshot.SugarGrams == nil {
				snapshot.SugarGrams = n.Value
			}
		case CaffeineNutrientName:
			if snapshot.CaffeineMg == nil {
				snapshot.CaffeineMg = n.Value
			}
		}
	}

	c.logger.Debug("Nutrition match",
		zap.String("drink", drinkName),
		zap.String("food", result.Foods[0].Description),
		zap.Bool("has_sugar", snapshot.SugarGrams != nil),
		zap.Bool("has_caffeine", snapshot.CaffeineMg != nil))

	return snapshot, nil
}
