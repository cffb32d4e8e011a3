package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
)

// fallbackRates is the last-resort table used when no live rates were
// ever fetched. Its use is always logged.
var fallbackRates = approval.RateTable{
	"USD": 1,
	"EUR": 0.85,
	"GBP": 0.73,
	"JPY": 110,
}

// Config holds exchange client configuration
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration

	// RequestsPerMinute caps outbound calls to the rate API
	RequestsPerMinute int
}

// Client fetches conversion rate tables from an exchange-rate API and
// caches the last good response. Stale tables are served within the TTL
// without touching the network; after a failed refresh the stale table
// is still preferred over the hardcoded fallback.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cacheTTL   time.Duration
	logger     *zap.Logger

	mu        sync.RWMutex
	cached    map[string]approval.RateTable // base currency -> table
	fetchedAt map[string]time.Time
}

// NewClient creates a new exchange rate client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		cacheTTL:   cfg.CacheTTL,
		logger:     logger,
		cached:     make(map[string]approval.RateTable),
		fetchedAt:  make(map[string]time.Time),
	}
}

// Rates returns a conversion rate table anchored at the base currency
func (c *Client) Rates(ctx context.Context, base string) (approval.RateTable, error) {
	if table, ok := c.fresh(base); ok {
		return table, nil
	}

	table, err := c.fetch(ctx, base)
	if err == nil {
		c.store(base, table)
		return table, nil
	}

	// Refresh failed: prefer the stale cached table, then the
	// hardcoded fallback. Either way the degradation is logged.
	if stale, ok := c.stale(base); ok {
		c.logger.Warn("Rate refresh failed, serving stale table",
			zap.String("base", base), zap.Error(err))
		return stale, nil
	}

	c.logger.Warn("Rate fetch failed with no cached table, serving fallback rates",
		zap.String("base", base), zap.Error(err))
	return fallbackRates, nil
}

func (c *Client) fresh(base string) (approval.RateTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table, ok := c.cached[base]
	if !ok || time.Since(c.fetchedAt[base]) > c.cacheTTL {
		return nil, false
	}
	return table, true
}

func (c *Client) stale(base string) (approval.RateTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table, ok := c.cached[base]
	return table, ok
}

func (c *Client) store(base string, table approval.RateTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached[base] = table
	c.fetchedAt[base] = time.Now()
}

// ratesResponse mirrors the exchangerate API payload
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (c *Client) fetch(ctx context.Context, base string) (approval.RateTable, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/v4/latest/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rate API returned empty table")
	}

	table := make(approval.RateTable, len(payload.Rates)+1)
	for code, value := range payload.Rates {
		table[code] = value
	}
	// The anchor itself is not always present in the payload
	if _, ok := table[base]; !ok {
		table[base] = 1
	}

	c.logger.Info("Exchange rates refreshed",
		zap.String("base", base), zap.Int("currencies", len(table)))
	return table, nil
}

// Verify interface compliance
var _ port.RateProvider = (*Client)(nil)
