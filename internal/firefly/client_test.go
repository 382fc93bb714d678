package firefly

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

	"github.com/jmturner/cinnamon/internal/common"
	"github.com/jmturner/cinnamon/internal/service"
)

const categoriesBody = `{
	"data": [
		{"id": "2", "attributes": {"name": "Groceries"}},
		{"id": "1", "attributes": {"name": "Coffee"}}
	]
}`

const transactionsBody = `{
	"data": [
		{
			"id": "101",
			"attributes": {
				"transactions": [{
					"description": "STARBUCKS #123",
					"amount": "4.50",
					"currency_code": "USD",
					"date": "2025-06-01T00:00:00+00:00",
					"category_name": "",
					"tags": ["imported"]
				}]
			}
		},
		{
			"id": "102",
			"attributes": {
				"transactions": [{
					"description": "WHOLE FOODS MARKET",
					"amount": "82.10",
					"currency_code": "USD",
					"date": "2025-06-02",
					"category_name": "Groceries",
					"tags": []
				}]
			}
		}
	],
	"meta": {"pagination": {"total": 2, "current_page": 1, "total_pages": 1}}
}`

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, "test-token", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", "token")
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewClient("https://firefly.example", "")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestCategories(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/v1/categories", r.URL.Path)
		_, _ = w.Write([]byte(categoriesBody))
	}))

	names, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Coffee", "Groceries"}, names, "categories come back sorted")
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestCategoriesCached(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(categoriesBody))
	}))

	_, err := c.Categories(context.Background())
	require.NoError(t, err)
	_, err = c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second call must hit the cache")
}

func TestCategoriesStaleFallback(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(categoriesBody))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}), WithCategoriesTTL(time.Nanosecond))

	first, err := c.Categories(context.Background())
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	second, err := c.Categories(context.Background())
	require.NoError(t, err, "a fetch failure falls back to the stale cache")
	assert.Equal(t, first, second)
}

func TestListTransactions(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.Equal(t, "withdrawal", r.URL.Query().Get("type"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "2025-06-01", r.URL.Query().Get("start"))
		_, _ = w.Write([]byte(transactionsBody))
	}))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	page, err := c.ListTransactions(context.Background(), service.TransactionListOptions{
		Page:      2,
		StartDate: &start,
	})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	first := page.Transactions[0]
	assert.Equal(t, "101", first.ID)
	assert.Equal(t, "STARBUCKS #123", first.Description)
	assert.Equal(t, 4.50, first.Amount)
	assert.Equal(t, "USD", first.Currency)
	assert.Empty(t, first.Category)
	assert.Equal(t, []string{"imported"}, first.Tags)
	assert.NotEmpty(t, first.Raw)

	second := page.Transactions[1]
	assert.Equal(t, "Groceries", second.Category)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), second.Date)
}

func TestGetTransaction(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions/101", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"data": {
				"id": "101",
				"attributes": {
					"transactions": [{
						"description": "STARBUCKS #123",
						"amount": "4.50",
						"currency_code": "USD",
						"date": "2025-06-01T00:00:00+00:00",
						"category_name": "Coffee",
						"tags": []
					}]
				}
			}
		}`))
	}))

	txn, err := c.GetTransaction(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", txn.Category)
	assert.Equal(t, "STARBUCKS #123", txn.Description)
}

func TestUpdateTransaction(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/transactions/101", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"data": {}}`))
	}))

	err := c.UpdateTransaction(context.Background(), "101", "Coffee", []string{"auto-categorized"})
	require.NoError(t, err)

	splits, ok := gotBody["transactions"].([]any)
	require.True(t, ok)
	require.Len(t, splits, 1)
	split, ok := splits[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Coffee", split["category_name"])
	assert.Equal(t, []any{"auto-categorized"}, split["tags"])
}

func TestRateLimitError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	err := c.UpdateTransaction(context.Background(), "101", "Coffee", nil)
	assert.ErrorIs(t, err, common.ErrFireflyRateLimit)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Unauthenticated"))
	}))

	_, err := c.Categories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
