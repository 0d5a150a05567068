package assessment

import (
	"fmt"
	"strings"
)

const promptTemplate = `You write assessment questions for an online course.
Use only the course material below as the source of facts.

Course material:
"""
%s
"""

Write exactly %d questions. Allowed question types: %s.%s
Every question must have exactly one correct answer.

Use this plain-text format for every question, with no other text:
Question 1: <question text>
a) <option>
b) <option>
c) <option>
d) <option>
Correct answer: <letter>
Explanation: <one or two sentences>

For true/false questions omit the options and write "Correct answer: True" or "Correct answer: False".
`

// BuildPrompt embeds the generation context and request constraints into an instruction.
func BuildPrompt(gc GenerationContext, req GenerateRequest) string {
	types := make([]string, 0, len(req.Types))
	for _, t := range req.Types {
		switch t {
		case TypeMultipleChoice:
			types = append(types, "multiple choice (four options a-d)")
		case TypeTrueFalse:
			types = append(types, "true/false")
		}
	}
	difficulty := ""
	if d := strings.TrimSpace(req.Difficulty); d != "" {
		difficulty = fmt.Sprintf("\nTarget difficulty: %s.", d)
	}
	return fmt.Sprintf(promptTemplate, gc.Text, req.QuestionCount, strings.Join(types, ", "), difficulty)
}
