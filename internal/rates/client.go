// Package rates resolves currency exchange rates from the authoritative
// rate service, with a fail-safe default so enrichment never blocks the
// pipeline.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RateSource fetches the current exchange rate table keyed by currency code
type RateSource interface {
	GetRates(ctx context.Context) (map[string]float64, error)
}

// Config holds rate service client configuration
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client is the HTTP adapter for the exchange-rate service
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new rate service client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ratesResponse mirrors the rate service payload
type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// GetRates fetches the current rate table (units of currency per 1 USD)
func (c *Client) GetRates(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates service returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}

	if body.Rates == nil {
		return nil, fmt.Errorf("rates response missing rates table")
	}

	return body.Rates, nil
}
