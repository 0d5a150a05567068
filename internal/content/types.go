// Package content holds the read-only learning content used to ground generated assessments.
package content

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when a module or assessment does not exist.
var ErrNotFound = errors.New("content not found")

// Kind distinguishes the assessment flavours that request generated questions.
type Kind string

const (
	KindQuiz Kind = "quiz"
	KindExam Kind = "exam"
)

// ParseKind validates a kind coming from a URL or config.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindQuiz, KindExam:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown assessment kind %q", s)
	}
}

// Ref identifies the assessment a generation request is for.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	return string(r.Kind) + "/" + r.ID
}

// Section is one ordered body of text inside a module.
type Section struct {
	Order int    `json:"order" yaml:"order"`
	Text  string `json:"text" yaml:"text"`
}

// Module is a unit of course content.
type Module struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Sections    []Section `json:"sections" yaml:"sections"`
}

// Definition is a stored quiz or exam definition.
type Definition struct {
	ID          string   `json:"id" yaml:"id"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	ModuleIDs   []string `json:"module_ids" yaml:"module_ids"`
}

func (d Definition) Ref() Ref {
	return Ref{Kind: d.Kind, ID: d.ID}
}

// SortSections orders sections by their declared Order, keeping input order for ties.
func SortSections(sections []Section) []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}
