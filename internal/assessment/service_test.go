package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/learning-platform/internal/content"
	"github.com/gokatarajesh/learning-platform/internal/retry"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	args := m.Called(ctx, prompt, params)
	return args.String(0), args.Error(1)
}

type stubContexts struct {
	gc  GenerationContext
	err error
}

func (s stubContexts) BuildContext(context.Context, content.Ref) (GenerationContext, error) {
	return s.gc, s.err
}

type rateLimited struct{}

func (rateLimited) Error() string   { return "429 Too Many Requests" }
func (rateLimited) StatusCode() int { return 429 }

const twoQuestions = `Question 1: What starts a goroutine?
a) go
b) run
Correct answer: a
Question 2: Channels are typed.
Correct answer: True`

func newTestService(t *testing.T, contexts contextBuilder, gen Generator, metrics *Metrics) *Service {
	t.Helper()
	exec, err := retry.NewExecutor(
		retry.Policy{MaxAttempts: 3, Timeout: time.Second, InitialDelay: time.Millisecond},
		zerolog.Nop(),
		retry.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	require.NoError(t, err)
	return NewService(contexts, gen, exec, ServiceConfig{
		MaxQuestions: 10,
		Params:       GenerationParams{Temperature: 0.4, MaxOutputTokens: 2048},
	}, zerolog.Nop(), metrics)
}

func validRequest() GenerateRequest {
	return GenerateRequest{
		Ref:           content.Ref{Kind: content.KindQuiz, ID: "q1"},
		QuestionCount: 2,
		Types:         []QuestionType{TypeMultipleChoice, TypeTrueFalse},
	}
}

var directContext = stubContexts{gc: GenerationContext{SourceTier: TierDirect, Text: "Goroutines and channels."}}

func TestGenerateSuccess(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Goroutines and channels.") && strings.Contains(p, "exactly 2 questions")
	}), GenerationParams{Temperature: 0.4, MaxOutputTokens: 2048}).Return(twoQuestions, nil).Once()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := newTestService(t, directContext, gen, metrics)

	res, err := svc.Generate(context.Background(), validRequest())

	require.NoError(t, err)
	require.Len(t, res.Questions, 2)
	assert.Equal(t, TierDirect, res.SourceTier)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "true", res.Questions[1].CorrectAnswer)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues(outcomeSuccess)))
	gen.AssertExpectations(t)
}

func TestGenerateTrimsToRequestedCount(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(twoQuestions, nil)
	svc := newTestService(t, directContext, gen, nil)

	req := validRequest()
	req.QuestionCount = 1
	res, err := svc.Generate(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, 0, res.Questions[0].ID)
}

func TestGenerateRetriesRateLimitThenSucceeds(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", rateLimited{}).Once()
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(twoQuestions, nil).Once()
	svc := newTestService(t, directContext, gen, nil)

	res, err := svc.Generate(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestGenerateOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		contexts  stubContexts
		raw       string
		genErr    error
		wantErr   error
		wantCalls int
	}{
		{
			name:      "retries exhausted",
			contexts:  directContext,
			genErr:    rateLimited{},
			wantErr:   ErrServiceUnavailable,
			wantCalls: 3,
		},
		{
			name:      "fatal upstream",
			contexts:  directContext,
			genErr:    errors.New("400 invalid argument"),
			wantErr:   ErrUpstream,
			wantCalls: 1,
		},
		{
			name:      "nothing parseable",
			contexts:  directContext,
			raw:       "I cannot help with that.",
			wantErr:   ErrNoParseableOutput,
			wantCalls: 1,
		},
		{
			name:      "content unavailable",
			contexts:  stubContexts{err: fmt.Errorf("%w: dial tcp", ErrContentUnavailable)},
			wantErr:   ErrContentUnavailable,
			wantCalls: 0,
		},
		{
			name:      "unexpected context error",
			contexts:  stubContexts{err: errors.New("boom")},
			wantErr:   ErrContentUnavailable,
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(tt.raw, tt.genErr)
			svc := newTestService(t, tt.contexts, gen, nil)

			_, err := svc.Generate(context.Background(), validRequest())

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			gen.AssertNumberOfCalls(t, "Generate", tt.wantCalls)
		})
	}
}

func TestGenerateRejectsInvalidRequestsBeforeIO(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GenerateRequest)
	}{
		{"zero count", func(r *GenerateRequest) { r.QuestionCount = 0 }},
		{"count above max", func(r *GenerateRequest) { r.QuestionCount = 11 }},
		{"no types", func(r *GenerateRequest) { r.Types = nil }},
		{"unknown type", func(r *GenerateRequest) { r.Types = []QuestionType{"essay"} }},
		{"unknown kind", func(r *GenerateRequest) { r.Ref.Kind = "survey" }},
		{"missing id", func(r *GenerateRequest) { r.Ref.ID = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			svc := newTestService(t, stubContexts{err: errors.New("must not be called")}, gen, nil)

			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Generate(context.Background(), req)

			assert.ErrorIs(t, err, ErrInvalidRequest)
			gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestBuildPromptMentionsConstraints(t *testing.T) {
	p := BuildPrompt(GenerationContext{Text: "Material."}, GenerateRequest{
		QuestionCount: 3,
		Types:         []QuestionType{TypeTrueFalse},
		Difficulty:    "hard",
	})

	assert.Contains(t, p, "Material.")
	assert.Contains(t, p, "exactly 3 questions")
	assert.Contains(t, p, "true/false")
	assert.NotContains(t, p, "multiple choice (")
	assert.Contains(t, p, "Target difficulty: hard.")
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeInvalidRequest, Code(fmt.Errorf("%w: bad", ErrInvalidRequest)))
	assert.Equal(t, CodeServiceUnavailable, Code(fmt.Errorf("%w: x", ErrServiceUnavailable)))
	assert.Equal(t, CodeNoParseableOutput, Code(ErrNoParseableOutput))
	assert.Equal(t, CodeInternal, Code(errors.New("other")))
}
