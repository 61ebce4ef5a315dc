// Package refund submits validated line items to the expense-refund backend,
// one independent request per item.
package refund

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"go.uber.org/zap"
)

// Submitter persists one expense refund with its attached receipt and
// returns the created record id.
type Submitter interface {
	Submit(ctx context.Context, item *entity.LineItem, receipt *entity.UploadedFile) (string, error)
}

// ClientConfig holds refund endpoint configuration
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client is the HTTP adapter for the refund-submission endpoint
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new refund submission client
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// submitResponse mirrors the refund backend payload
type submitResponse struct {
	ID string `json:"id"`
}

// Submit posts one refund as a multipart form with the receipt attached
func (c *Client) Submit(ctx context.Context, item *entity.LineItem, receipt *entity.UploadedFile) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"title":         item.Title,
		"description":   item.Description,
		"amount":        item.Amount,
		"currency":      item.Currency,
		"concept":       item.Concept,
		"submittedDate": item.SubmittedDate,
		"exchangeRate":  item.ExchangeRate,
		"userEmail":     item.OwnerEmail,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename=%q`, receipt.Name))
	header.Set("Content-Type", receipt.MIMEType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create receipt part: %w", err)
	}
	if _, err := part.Write(receipt.Content); err != nil {
		return "", fmt.Errorf("failed to write receipt body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Refund backend returned non-2xx status",
			zap.String("title", item.Title),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return "", fmt.Errorf("refund backend returned status %d", resp.StatusCode)
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}

	return parsed.ID, nil
}
