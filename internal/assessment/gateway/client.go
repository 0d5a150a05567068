// Package gateway calls an HTTP text-generation gateway that fronts a hosted model.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
)

// Config holds connection details for the generation gateway. When TokenURL is
// set, requests are authorized with OAuth2 client credentials; otherwise APIKey
// is sent as a static bearer token.
type Config struct {
	BaseURL      string
	APIKey       string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client implements assessment.Generator.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	logger      zerolog.Logger
	generateURL string
}

func NewClient(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("generator endpoint not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: timeout}
	}

	httpClient := base
	apiKey := cfg.APIKey
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
		httpClient.Timeout = timeout
		apiKey = ""
	}

	return &Client{
		httpClient:  httpClient,
		apiKey:      apiKey,
		logger:      logger.With().Str("component", "gateway_generator").Logger(),
		generateURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/generate",
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, params assessment.GenerationParams) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:          prompt,
		Temperature:     params.Temperature,
		MaxOutputTokens: params.MaxOutputTokens,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode generator payload: %w", err)
	}
	c.logger.Debug().Int("chars", len(genResp.Text)).Msg("gateway response received")
	return genResp.Text, nil
}

// StatusError is a non-2xx gateway response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("generator returned status %d", e.Code)
	}
	return fmt.Sprintf("generator returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

type generateRequest struct {
	Prompt          string  `json:"prompt"`
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int32   `json:"max_output_tokens,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}
