// Package openai extracts document metadata with an OpenAI chat model. PDFs
// are sent as their text layer, images as data URLs.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"compliance-backend/internal/extraction"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
)

const maxPromptChars = 12000

// ChatClient is the part of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Extractor implements extraction.Extractor.
type Extractor struct {
	client      ChatClient
	model       string
	store       object.Store
	concurrency int
}

// New constructs an Extractor using the public OpenAI API.
func New(apiKey, model string, store object.Store, concurrency int) (*Extractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return NewWithClient(goopenai.NewClient(apiKey), model, store, concurrency)
}

// NewWithClient constructs an Extractor over an existing client.
func NewWithClient(client ChatClient, model string, store object.Store, concurrency int) (*Extractor, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Extractor{client: client, model: model, store: store, concurrency: concurrency}, nil
}

// Extract runs one completion per document, bounded by the concurrency limit.
func (e *Extractor) Extract(ctx context.Context, sources []extraction.Source) ([]extraction.ScanResult, error) {
	return extraction.FanOut(ctx, sources, e.concurrency, e.extractOne)
}

func (e *Extractor) extractOne(ctx context.Context, src extraction.Source) (extraction.ExtractedData, error) {
	content, err := extraction.LoadContent(ctx, e.store, src)
	if err != nil {
		return extraction.ExtractedData{}, err
	}
	user, err := userMessage(src, content)
	if err != nil {
		return extraction.ExtractedData{}, err
	}

	resp, err := e.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt(src.TypeHints)},
			user,
		},
	})
	if err != nil {
		return extraction.ExtractedData{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return extraction.ExtractedData{}, errors.New("openai returned no choices")
	}
	telemetry.Info("extraction.openai.usage", map[string]any{
		"model":             e.model,
		"document_id":       src.DocumentID,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	})
	return parseData(resp.Choices[0].Message.Content)
}

func systemPrompt(hints []string) string {
	var b strings.Builder
	b.WriteString("You read driver compliance documents such as licenses and medical certificates. ")
	b.WriteString("Reply with one JSON object with keys: type, documentNumber, issuedDate, expiryDate, holderName, fields, confidence. ")
	b.WriteString("Dates use YYYY-MM-DD. fields is an object of extra string values. Use empty strings for anything not visible. ")
	b.WriteString("confidence is a number between 0 and 1.")
	if len(hints) > 0 {
		b.WriteString(" type must be one of: ")
		b.WriteString(strings.Join(hints, ", "))
		b.WriteString(", or empty if none match.")
	}
	return b.String()
}

func userMessage(src extraction.Source, c extraction.Content) (goopenai.ChatCompletionMessage, error) {
	if c.IsImage() {
		url := "data:" + c.ContentType + ";base64," + base64.StdEncoding.EncodeToString(c.Data)
		return goopenai.ChatCompletionMessage{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: "File: " + src.FileName},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{URL: url, Detail: goopenai.ImageURLDetailHigh}},
			},
		}, nil
	}
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return goopenai.ChatCompletionMessage{}, fmt.Errorf("no readable text in %s", src.FileName)
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	return goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: "File: " + src.FileName + "\n\n" + text,
	}, nil
}

type rawData struct {
	Type           string         `json:"type"`
	DocumentNumber string         `json:"documentNumber"`
	IssuedDate     string         `json:"issuedDate"`
	ExpiryDate     string         `json:"expiryDate"`
	HolderName     string         `json:"holderName"`
	Fields         map[string]any `json:"fields"`
	Confidence     float64        `json:"confidence"`
}

func parseData(raw string) (extraction.ExtractedData, error) {
	var r rawData
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return extraction.ExtractedData{}, fmt.Errorf("invalid JSON from OpenAI: %w", err)
	}
	data := extraction.ExtractedData{
		Type:           strings.TrimSpace(r.Type),
		DocumentNumber: strings.TrimSpace(r.DocumentNumber),
		IssuedDate:     strings.TrimSpace(r.IssuedDate),
		ExpiryDate:     strings.TrimSpace(r.ExpiryDate),
		HolderName:     strings.TrimSpace(r.HolderName),
		Confidence:     r.Confidence,
	}
	for k, v := range r.Fields {
		if v == nil {
			continue
		}
		if data.Fields == nil {
			data.Fields = map[string]string{}
		}
		data.Fields[k] = strings.TrimSpace(fmt.Sprint(v))
	}
	return data, nil
}

// classify makes 5xx and 429 responses recognizable as transient.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == 429) {
		return fmt.Errorf("openai http status %d: server_error: %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 500 {
		return fmt.Errorf("openai http status %d: server_error: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("openai: %w", err)
}

var _ extraction.Extractor = (*Extractor)(nil)
