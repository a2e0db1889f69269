package nutrition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bobaSearchResponse = `{
  "foods": [{
    "description": "Mango bubble tea",
    "foodNutrients": [
      {"nutrientName": "Protein", "unitName": "G", "value": 1.2},
      {"nutrientName": "Sugars, total including NLEA", "unitName": "G", "value": 38},
      {"nutrientName": "Caffeine", "unitName": "MG", "value": 30}
    ]
  }]
}`

func TestEnrich_NoKeyMakesNoRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, zap.NewNop())
	assert.False(t, client.Enabled())

	snapshot, err := client.Enrich(context.Background(), "Mango Boba Tea")
	require.NoError(t, err)
	assert.False(t, snapshot.HasValues())
	assert.Empty(t, snapshot.DataSource)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestEnrich_ReadsFirstMatch(t *testing.T) {
	var got searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/foods/search", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(bobaSearchResponse))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Timeout: time.Second}, zap.NewNop())
	snapshot, err := client.Enrich(context.Background(), "Mango Boba Tea")
	require.NoError(t, err)

	assert.Equal(t, "Mango Boba Tea", got.Query)
	assert.Equal(t, 1, got.PageSize)
	assert.True(t, got.RequireAllWords)

	assert.Equal(t, DataSourceUSDA, snapshot.DataSource)
	require.NotNil(t, snapshot.SugarGrams)
	assert.Equal(t, 38.0, *snapshot.SugarGrams)
	require.NotNil(t, snapshot.CaffeineMg)
	assert.Equal(t, 30.0, *snapshot.CaffeineMg)
}

func TestEnrich_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"foods": []}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL}, zap.NewNop())
	snapshot, err := client.Enrich(context.Background(), "Unobtainium Latte")
	require.NoError(t, err)
	assert.False(t, snapshot.HasValues())
}

func TestEnrich_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, zap.NewNop())
	_, err := client.Enrich(context.Background(), "Matcha Latte")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
