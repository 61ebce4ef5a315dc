package extraction

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

// ClientConfig holds extraction service client configuration
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPExtractor calls the remote document-extraction endpoint with one
// receipt per request.
type HTTPExtractor struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPExtractor creates a new extraction service client
func NewHTTPExtractor(cfg ClientConfig, logger *zap.Logger) *HTTPExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &HTTPExtractor{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// extractResponse mirrors the extraction service payload
type extractResponse struct {
	Output *entity.RawFields `json:"output"`
}

// Extract submits one document and parses the structured fields
func (e *HTTPExtractor) Extract(ctx context.Context, file *entity.UploadedFile) (*entity.RawFields, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename=%q`, file.Name))
	header.Set("Content-Type", file.MIMEType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, fmt.Errorf("failed to write document body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the log, the caller only needs the status
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.logger.Warn("Extraction service returned non-2xx status",
			zap.String("file_name", file.Name),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	if parsed.Output == nil {
		return nil, fmt.Errorf("extraction response missing output")
	}

	return parsed.Output, nil
}
