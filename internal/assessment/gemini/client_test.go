package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
	"github.com/gokatarajesh/learning-platform/internal/retry"
)

type stubModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
	prompt string
}

func (s *stubModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.model = model
	s.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		s.prompt = contents[0].Parts[0].Text
	}
	return s.resp, s.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestGenerateReturnsText(t *testing.T) {
	models := &stubModels{resp: textResponse("Question 1: ...")}
	c := newClient(models, "", zerolog.Nop())

	got, err := c.Generate(context.Background(), "write questions", assessment.GenerationParams{Temperature: 0.3, MaxOutputTokens: 512})

	require.NoError(t, err)
	assert.Equal(t, "Question 1: ...", got)
	assert.Equal(t, DefaultModel, models.model)
	assert.Equal(t, "write questions", models.prompt)
	require.NotNil(t, models.config.Temperature)
	assert.InDelta(t, 0.3, *models.config.Temperature, 1e-6)
	assert.EqualValues(t, 512, models.config.MaxOutputTokens)
}

func TestGenerateBlockedPrompt(t *testing.T) {
	models := &stubModels{resp: &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}}
	c := newClient(models, "m", zerolog.Nop())

	_, err := c.Generate(context.Background(), "p", assessment.GenerationParams{})

	require.Error(t, err)
	assert.False(t, retry.IsRetryable(err))
}

func TestGenerateConvertsAPIErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"quota value", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}, true},
		{"quota pointer", fmt.Errorf("call: %w", &genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}), true},
		{"bad request", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad"}, false},
		{"transport", errors.New("connection reset by peer"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(&stubModels{err: tt.err}, "m", zerolog.Nop())

			_, err := c.Generate(context.Background(), "p", assessment.GenerationParams{})

			require.Error(t, err)
			assert.Equal(t, tt.retryable, retry.IsRetryable(err))
		})
	}
}

func TestStatusErrorExposesCode(t *testing.T) {
	err := convertError(genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 503, se.StatusCode())
	assert.Contains(t, se.Error(), "UNAVAILABLE")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, zerolog.Nop())
	assert.Error(t, err)
}
