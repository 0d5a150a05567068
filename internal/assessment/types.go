// Package assessment turns course content into generated quiz and exam questions.
package assessment

import (
	"fmt"

	"github.com/gokatarajesh/learning-platform/internal/content"
)

// Question is one generated assessment item.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	AnswerOptions []Answer `json:"answerOptions"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Answer is one option of a question.
type Answer struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Acceptable reports whether q is complete enough to be returned to a caller.
func (q Question) Acceptable() bool {
	return q.Text != "" && len(q.AnswerOptions) > 0 && q.CorrectAnswer != ""
}

func defaultExplanation(answer string) string {
	return fmt.Sprintf("The correct answer is %s.", answer)
}

// Tier names the fallback level that supplied generation context.
type Tier string

const (
	TierDirect      Tier = "DIRECT"
	TierAssociated  Tier = "ASSOCIATED"
	TierFallbackAll Tier = "FALLBACK_ALL"
	TierPlaceholder Tier = "PLACEHOLDER"
)

// GenerationContext is the bounded text a prompt is built from.
type GenerationContext struct {
	SourceTier Tier   `json:"sourceTier"`
	Text       string `json:"text"`
}

// QuestionType is a kind of question the generator may be asked for.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
)

func (t QuestionType) valid() bool {
	return t == TypeMultipleChoice || t == TypeTrueFalse
}

// GenerateRequest asks for questions for one assessment.
type GenerateRequest struct {
	Ref           content.Ref    `json:"ref"`
	QuestionCount int            `json:"question_count"`
	Types         []QuestionType `json:"types"`
	Difficulty    string         `json:"difficulty,omitempty"`
}

// Result is a successful generation.
type Result struct {
	Questions  []Question `json:"questions"`
	SourceTier Tier       `json:"sourceTier"`
	Attempts   int        `json:"attempts"`
}

// GenerationParams tune a single call to the text generator.
type GenerationParams struct {
	Temperature     float32
	MaxOutputTokens int32
}
