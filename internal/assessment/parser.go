package assessment

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

var (
	questionMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:question|q)\s*\d+\s*[:.)\-]?\s*(.*)$`),
		regexp.MustCompile(`(?i)^(?:question|q)\s*[:.)\-]\s*(.*)$`),
		regexp.MustCompile(`^\d+\s*[.)]\s*(.*)$`),
	}
	explanationMarker = regexp.MustCompile(`(?i)^(?:explanation|rationale|reasoning|reason)\b\s*[:.\-]?\s*(.*)$`)
	answerMarker      = regexp.MustCompile(`(?i)^(?:correct\s+answer|answer)\b\s*(?:is\b)?\s*[:.\-]?\s*(.*)$`)
	optionMarker      = regexp.MustCompile(`(?i)^\(?([a-d])\s*[).:]\s*(.*)$`)

	singleLetter   = regexp.MustCompile(`(?i)^([a-d])$`)
	leadingLetter  = regexp.MustCompile(`(?i)^\(?([a-d])[).]`)
	booleanAnswer  = regexp.MustCompile(`(?i)^(true|false)\.?$`)
	embeddedLetter = regexp.MustCompile(`(?i)(?:^|[\s(])([a-d])(?:[).:]|\s*$)`)
)

type stage int

const (
	stageOptions stage = iota
	stageExplanation
)

// parseState is threaded through the fold over input lines.
type parseState struct {
	stage   stage
	current *Question
	out     []Question
}

// Parser extracts questions from free-form generated text.
type Parser struct {
	logger zerolog.Logger
}

func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger.With().Str("component", "response_parser").Logger()}
}

// Parse is a silent Parser.Parse.
func Parse(raw string) []Question {
	p := Parser{logger: zerolog.Nop()}
	return p.Parse(raw)
}

// Parse reconstructs the ordered questions found in raw. Incomplete items are
// dropped; it never fails.
func (p *Parser) Parse(raw string) []Question {
	st := parseState{}
	for _, line := range strings.Split(raw, "\n") {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		st = p.step(st, line)
	}
	st = st.flush()
	if st.out == nil {
		return []Question{}
	}
	return st.out
}

func cleanLine(line string) string {
	line = strings.ReplaceAll(line, "**", "")
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#")
	return strings.TrimSpace(line)
}

func (p *Parser) step(st parseState, line string) parseState {
	for _, re := range questionMarkers {
		if m := re.FindStringSubmatch(line); m != nil {
			st = st.flush()
			st.current = &Question{Text: strings.TrimSpace(m[1])}
			st.stage = stageOptions
			return st
		}
	}
	if st.current == nil {
		return st
	}
	q := st.current

	if m := explanationMarker.FindStringSubmatch(line); m != nil {
		q.Explanation = strings.TrimSpace(m[1])
		st.stage = stageExplanation
		return st
	}
	if st.stage == stageExplanation {
		if q.Explanation == "" {
			q.Explanation = line
		} else {
			q.Explanation += " " + line
		}
		return st
	}

	if m := answerMarker.FindStringSubmatch(line); m != nil {
		p.applyAnswer(q, strings.TrimSpace(m[1]))
		st.stage = stageExplanation
		return st
	}

	if m := optionMarker.FindStringSubmatch(line); m != nil {
		text := strings.TrimSpace(m[2])
		letter := strings.ToLower(m[1])
		if text != "" && !hasLetter(q.AnswerOptions, letter) {
			q.AnswerOptions = append(q.AnswerOptions, Answer{Letter: letter, Text: text})
		}
	}
	return st
}

func (p *Parser) applyAnswer(q *Question, value string) {
	if m := singleLetter.FindStringSubmatch(value); m != nil {
		q.CorrectAnswer = strings.ToLower(m[1])
		return
	}
	if m := leadingLetter.FindStringSubmatch(value); m != nil {
		q.CorrectAnswer = strings.ToLower(m[1])
		return
	}
	if m := booleanAnswer.FindStringSubmatch(value); m != nil {
		q.CorrectAnswer = strings.ToLower(m[1])
		if len(q.AnswerOptions) == 0 {
			q.AnswerOptions = []Answer{
				{Letter: "true", Text: "True"},
				{Letter: "false", Text: "False"},
			}
		} else {
			p.logger.Debug().Str("question", q.Text).Msg("boolean answer given for question with lettered options")
		}
		return
	}
	if m := embeddedLetter.FindStringSubmatch(value); m != nil {
		q.CorrectAnswer = strings.ToLower(m[1])
		return
	}
	p.logger.Warn().
		Str("question", q.Text).
		Str("answer", value).
		Msg("could not determine correct answer")
}

func hasLetter(options []Answer, letter string) bool {
	for _, o := range options {
		if o.Letter == letter {
			return true
		}
	}
	return false
}

// flush appends the in-progress question if it passes the acceptance rule.
func (st parseState) flush() parseState {
	if st.current == nil {
		return st
	}
	q := *st.current
	st.current = nil
	if !q.Acceptable() {
		return st
	}
	if q.Explanation == "" {
		q.Explanation = defaultExplanation(q.CorrectAnswer)
	}
	q.ID = len(st.out)
	st.out = append(st.out, q)
	return st
}
