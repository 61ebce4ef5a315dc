// Package directory lists team members from the HR directory service so an
// operator can reassign ownership of a batch item. Directory failures never
// block the pipeline.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TeamMember is one entry from the team directory
type TeamMember struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Status    string `json:"status"`
}

// Config holds directory service configuration
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client is the HTTP adapter for the team-directory service
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new directory client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListTeamMembers fetches the current team roster. Any failure degrades to
// an empty list; the reassign-owner control simply renders without options.
func (c *Client) ListTeamMembers(ctx context.Context) []TeamMember {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		c.logger.Warn("Failed to build directory request", zap.Error(err))
		return nil
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Directory request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Directory service returned non-OK status",
			zap.Int("status", resp.StatusCode))
		return nil
	}

	var members []TeamMember
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		c.logger.Warn("Failed to decode directory response", zap.Error(err))
		return nil
	}

	return members
}

// String returns a display name for the member
func (m TeamMember) String() string {
	return fmt.Sprintf("%s %s <%s>", m.FirstName, m.LastName, m.Email)
}
