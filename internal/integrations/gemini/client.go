// Package gemini generates chat replies with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"portfolio-chat/internal/domain"
)

const DefaultModel = "gemini-3-flash-preview"

type modelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var newGenAIClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

var newModelsClient = func(ctx context.Context, apiKey string) (modelsClient, error) {
	client, err := newGenAIClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// KeySource supplies the Gemini API key.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is an API key known up front, e.g. from the CLI config.
type StaticKey string

func (k StaticKey) APIKey(_ context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", errors.New("gemini: API key is empty")
	}
	return key, nil
}

// HTTPStatusError carries the status of a failed Gemini API call.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client sends one prompt per call; no history is carried between calls.
type Client struct {
	keys  KeySource
	model string

	mu     sync.Mutex
	models modelsClient
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// NewClient creates a Client. The key is resolved and the SDK client built on
// the first Generate call; a failure there is retried on the next call.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("gemini: key source must not be nil")
	}
	c := &Client{keys: keys, model: DefaultModel}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Generate(ctx context.Context, req domain.ChatRequest) (string, error) {
	models, err := c.resolveModels(ctx)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: req.Prompt}},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if si := strings.TrimSpace(req.SystemInstruction); si != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}

	resp, err := models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", asStatusError(err))
	}
	text := extractVisibleText(resp)
	slog.DebugContext(ctx, "gemini reply received", "model", c.model, "chars", len(text))
	return text, nil
}

func (c *Client) resolveModels(ctx context.Context) (modelsClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil {
		return c.models, nil
	}

	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	models, err := newModelsClient(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.models = models
	return models, nil
}

func asStatusError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPStatusError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &HTTPStatusError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return err
}

// extractVisibleText joins the text parts of the first candidate, skipping
// thought parts.
func extractVisibleText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
