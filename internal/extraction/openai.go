package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig holds configuration for the OpenAI-backed extractor
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// OpenAIExtractor extracts receipt fields with a vision-capable chat model.
// Used by deployments that have no dedicated extraction service.
type OpenAIExtractor struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIExtractor creates a new OpenAI-backed extractor
func NewOpenAIExtractor(cfg OpenAIConfig, logger *zap.Logger) *OpenAIExtractor {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}

	return &OpenAIExtractor{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

const extractionPrompt = `Extract the following fields from this receipt. Every field is optional; omit any field you cannot read confidently.

Return JSON:
{
  "totalPrice": "total amount including tax, digits only",
  "store": "merchant or store name",
  "tax": "tax amount, digits only",
  "currency": "currency code or symbol as printed",
  "concept": "one of MEALS, TRANSPORT, ACCOMMODATION, OFFICE_SUPPLY, SOFTWARE, OTHER",
  "exchangeRate": "exchange rate if printed",
  "date": "purchase date as printed"
}`

// Extract sends the receipt image to the chat completion API and parses the
// structured fields from the JSON response.
func (e *OpenAIExtractor) Extract(ctx context.Context, file *entity.UploadedFile) (*entity.RawFields, error) {
	if file.MIMEType == "application/pdf" {
		// The vision endpoint only accepts images; PDFs go through the
		// dedicated extraction service.
		return nil, fmt.Errorf("openai extractor does not support pdf input")
	}

	imageURL := fmt.Sprintf("data:%s;base64,%s",
		file.MIMEType, base64.StdEncoding.EncodeToString(file.Content))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading purchase receipts. Extract structured data from receipt images.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Error("OpenAI extraction call failed",
			zap.String("file_name", file.Name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to extract receipt data: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	var fields entity.RawFields
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}

	return &fields, nil
}
