// Package gemini generates assessment text with the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
)

const DefaultModel = "gemini-2.0-flash"

// Config holds the API credentials and model name.
type Config struct {
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements assessment.Generator.
type Client struct {
	models contentGenerator
	model  string
	logger zerolog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newClient(gc.Models, cfg.Model, logger), nil
}

func newClient(models contentGenerator, model string, logger zerolog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		models: models,
		model:  model,
		logger: logger.With().Str("component", "gemini_generator").Str("model", model).Logger(),
	}
}

func (c *Client) Generate(ctx context.Context, prompt string, params assessment.GenerationParams) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if params.Temperature > 0 {
		cfg.Temperature = genai.Ptr(params.Temperature)
	}
	if params.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = params.MaxOutputTokens
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", convertError(err)
	}
	if resp == nil {
		return "", nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", fb.BlockReason)
	}

	text := resp.Text()
	c.logger.Debug().Int("chars", len(text)).Msg("gemini response received")
	return text, nil
}

// StatusError is an API failure with its HTTP status, so retry classification can see it.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: %d %s: %s", e.Code, e.Status, e.Message)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

func convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Code: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return err
}
