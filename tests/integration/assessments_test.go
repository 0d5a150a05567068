//go:build integration
// +build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

// Requires configs/content.example.yaml to be seeded (or CONTENT_SOURCE=yaml)
// and a reachable generation backend.
func TestGenerateQuestionsForSeededQuiz(t *testing.T) {
	resp := makeRequest(t, http.MethodPost, fmt.Sprintf("%s/v1/assessments/quiz/quiz-basics/questions", baseURL()), map[string]any{
		"question_count": 3,
		"types":          []string{"multiple_choice", "true_false"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		decodeJSON(t, resp, &errResp)
		t.Fatalf("expected 200, got %d, error: %v", resp.StatusCode, errResp)
	}

	var out struct {
		SourceTier string `json:"sourceTier"`
		Questions  []struct {
			ID            int    `json:"id"`
			Text          string `json:"text"`
			CorrectAnswer string `json:"correctAnswer"`
			Explanation   string `json:"explanation"`
		} `json:"questions"`
	}
	decodeJSON(t, resp, &out)

	if out.SourceTier != "DIRECT" {
		t.Fatalf("expected DIRECT context for a seeded quiz, got %s", out.SourceTier)
	}
	if len(out.Questions) == 0 || len(out.Questions) > 3 {
		t.Fatalf("expected 1..3 questions, got %d", len(out.Questions))
	}
	for i, q := range out.Questions {
		if q.ID != i {
			t.Fatalf("question ids must be sequential, got %d at %d", q.ID, i)
		}
		if q.Text == "" || q.CorrectAnswer == "" || q.Explanation == "" {
			t.Fatalf("incomplete question: %+v", q)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		path    string
		payload map[string]any
		code    string
	}{
		{"unknown kind", "/v1/assessments/survey/x/questions", map[string]any{"question_count": 1}, "invalid_assessment_kind"},
		{"missing count", "/v1/assessments/quiz/x/questions", map[string]any{}, "validation_failed"},
		{"unsupported type", "/v1/assessments/quiz/x/questions", map[string]any{"question_count": 1, "types": []string{"essay"}}, "validation_failed"},
		{"too many questions", "/v1/assessments/quiz/x/questions", map[string]any{"question_count": 100000}, "invalid_request"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := makeRequest(t, http.MethodPost, baseURL()+tc.path, tc.payload)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var errResp map[string]any
			decodeJSON(t, resp, &errResp)
			if errResp["error"] != tc.code {
				t.Fatalf("expected error code %q, got %v", tc.code, errResp["error"])
			}
		})
	}
}
