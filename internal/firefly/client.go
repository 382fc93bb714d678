// Package firefly implements the transaction source backed by a
// Firefly III instance. Firefly is the system of record: categories
// are read from it, never created, and approved categorizations are
// written back through its transaction update API.
package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/jmturner/cinnamon/internal/common"
	"github.com/jmturner/cinnamon/internal/model"
	"github.com/jmturner/cinnamon/internal/service"
)

// DefaultCategoriesTTL bounds how long the category list is served
// from cache before hitting the API again.
const DefaultCategoriesTTL = time.Minute

const defaultPageLimit = 50

// Client talks to the Firefly III REST API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	categoriesTTL time.Duration

	cacheMu          sync.Mutex
	cachedCategories []string
	cacheExpiresAt   time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithCategoriesTTL overrides the category cache lifetime. Zero or
// negative disables caching.
func WithCategoriesTTL(ttl time.Duration) Option {
	return func(c *Client) { c.categoriesTTL = ttl }
}

// WithHTTPClient replaces the underlying HTTP client, primarily for
// tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Firefly client authenticated with a personal
// access token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("%w: firefly URL is required", common.ErrMissingConfig)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: firefly token is required", common.ErrMissingConfig)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    httpClient,
		categoriesTTL: DefaultCategoriesTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Firefly API response types.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination struct {
			Total       int `json:"total"`
			CurrentPage int `json:"current_page"`
			TotalPages  int `json:"total_pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

type apiCategory struct {
	ID         string `json:"id"`
	Attributes struct {
		Name string `json:"name"`
	} `json:"attributes"`
}

type apiTransaction struct {
	ID         string `json:"id"`
	Attributes struct {
		Transactions []apiSplit `json:"transactions"`
	} `json:"attributes"`
}

type apiSplit struct {
	Description  string   `json:"description"`
	Amount       string   `json:"amount"`
	CurrencyCode string   `json:"currency_code"`
	Date         string   `json:"date"`
	CategoryName string   `json:"category_name"`
	Tags         []string `json:"tags"`
}

// Categories returns the category names defined in Firefly, sorted,
// served from a short-lived cache. A fetch failure falls back to a
// stale cache when one exists.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if c.cachedCategories != nil && c.categoriesTTL > 0 && time.Now().Before(c.cacheExpiresAt) {
		return c.cachedCategories, nil
	}

	names, err := c.fetchCategories(ctx)
	if err != nil {
		if c.cachedCategories != nil {
			slog.Warn("serving stale category cache", "error", err)
			return c.cachedCategories, nil
		}
		return nil, err
	}

	if c.categoriesTTL > 0 {
		c.cachedCategories = names
		c.cacheExpiresAt = time.Now().Add(c.categoriesTTL)
	}
	return names, nil
}

func (c *Client) fetchCategories(ctx context.Context) ([]string, error) {
	var envelope apiEnvelope
	if err := c.get(ctx, "/api/v1/categories", nil, &envelope); err != nil {
		return nil, err
	}

	var categories []apiCategory
	if err := json.Unmarshal(envelope.Data, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		if cat.Attributes.Name != "" {
			names = append(names, cat.Attributes.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListTransactions fetches one page of withdrawal transactions.
func (c *Client) ListTransactions(ctx context.Context, opts service.TransactionListOptions) (*service.TransactionPage, error) {
	params := url.Values{}
	params.Set("type", "withdrawal")
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", strconv.Itoa(defaultPageLimit))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.StartDate != nil {
		params.Set("start", opts.StartDate.Format("2006-01-02"))
	}
	if opts.EndDate != nil {
		params.Set("end", opts.EndDate.Format("2006-01-02"))
	}

	var envelope apiEnvelope
	if err := c.get(ctx, "/api/v1/transactions", params, &envelope); err != nil {
		return nil, err
	}

	var raw []apiTransaction
	if err := json.Unmarshal(envelope.Data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	transactions := make([]model.Transaction, 0, len(raw))
	for i := range raw {
		transactions = append(transactions, toTransaction(raw[i]))
	}

	page := &service.TransactionPage{
		Transactions: transactions,
		Page:         envelope.Meta.Pagination.CurrentPage,
		TotalPages:   envelope.Meta.Pagination.TotalPages,
		Total:        envelope.Meta.Pagination.Total,
	}
	if page.Page == 0 {
		page.Page = opts.Page
	}
	if page.TotalPages == 0 {
		page.TotalPages = 1
	}
	return page, nil
}

// GetTransaction fetches a single transaction by ID.
func (c *Client) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("transaction id is required")
	}

	var envelope apiEnvelope
	if err := c.get(ctx, "/api/v1/transactions/"+url.PathEscape(id), nil, &envelope); err != nil {
		return nil, err
	}

	var raw apiTransaction
	if err := json.Unmarshal(envelope.Data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	txn := toTransaction(raw)
	return &txn, nil
}

// UpdateTransaction writes a category (and optional tags) back to the
// transaction's first split.
func (c *Client) UpdateTransaction(ctx context.Context, id, category string, tags []string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("transaction id is required")
	}
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("category is required")
	}

	split := map[string]any{"category_name": category}
	if len(tags) > 0 {
		split["tags"] = tags
	}
	payload := map[string]any{"transactions": []any{split}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode update payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/api/v1/transactions/"+url.PathEscape(id), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrFireflyConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}

	slog.Debug("updated transaction category",
		"transaction_id", id,
		"category", category,
		"tags", tags)
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrFireflyConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", common.ErrFireflyRateLimit, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("firefly API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// toTransaction flattens a Firefly transaction group to the domain
// type. Firefly nests the interesting fields in the first split.
func toTransaction(raw apiTransaction) model.Transaction {
	txn := model.Transaction{ID: raw.ID}
	if len(raw.Attributes.Transactions) == 0 {
		return txn
	}

	split := raw.Attributes.Transactions[0]
	txn.Description = split.Description
	txn.Currency = split.CurrencyCode
	txn.Category = split.CategoryName
	txn.Tags = model.NormalizeTags(split.Tags)

	if amount, err := strconv.ParseFloat(split.Amount, 64); err == nil {
		txn.Amount = amount
	}
	if date, err := time.Parse(time.RFC3339, split.Date); err == nil {
		txn.Date = date
	} else if date, err := time.Parse("2006-01-02", split.Date); err == nil {
		txn.Date = date
	}

	if payload, err := json.Marshal(split); err == nil {
		txn.Raw = payload
	}
	return txn
}
