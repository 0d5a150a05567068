package content

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk YAML layout for content fixtures.
type Document struct {
	Modules     []Module     `yaml:"modules"`
	Assessments []Definition `yaml:"assessments"`
}

// YAMLStore serves content loaded once from a YAML file. It is read-only after load.
type YAMLStore struct {
	modules     map[string]Module
	order       []string
	assessments map[Ref]Definition
}

// LoadYAMLFile reads and parses a content document from path.
func LoadYAMLFile(path string) (*YAMLStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a store from raw YAML.
func ParseYAML(data []byte) (*YAMLStore, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode content yaml: %w", err)
	}
	return NewYAMLStore(doc)
}

// NewYAMLStore indexes a decoded document.
func NewYAMLStore(doc Document) (*YAMLStore, error) {
	s := &YAMLStore{
		modules:     make(map[string]Module, len(doc.Modules)),
		assessments: make(map[Ref]Definition, len(doc.Assessments)),
	}
	for _, m := range doc.Modules {
		if m.ID == "" {
			return nil, fmt.Errorf("module %q has no id", m.Title)
		}
		if _, dup := s.modules[m.ID]; dup {
			return nil, fmt.Errorf("duplicate module id %q", m.ID)
		}
		m.Sections = SortSections(m.Sections)
		s.modules[m.ID] = m
		s.order = append(s.order, m.ID)
	}
	for _, d := range doc.Assessments {
		if d.Kind == "" {
			d.Kind = KindQuiz
		}
		if _, err := ParseKind(string(d.Kind)); err != nil {
			return nil, err
		}
		s.assessments[d.Ref()] = d
	}
	return s, nil
}

// Document returns the store content in load order, used when seeding another store.
func (s *YAMLStore) Document() Document {
	doc := Document{Modules: make([]Module, 0, len(s.order))}
	for _, id := range s.order {
		doc.Modules = append(doc.Modules, s.modules[id])
	}
	for _, d := range s.assessments {
		doc.Assessments = append(doc.Assessments, d)
	}
	sort.Slice(doc.Assessments, func(i, j int) bool {
		a, b := doc.Assessments[i], doc.Assessments[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})
	return doc
}

func (s *YAMLStore) Ping(context.Context) error {
	return nil
}

func (s *YAMLStore) GetModule(_ context.Context, id string) (Module, error) {
	m, ok := s.modules[id]
	if !ok {
		return Module{}, fmt.Errorf("module %s: %w", id, ErrNotFound)
	}
	return m, nil
}

func (s *YAMLStore) GetAssessment(_ context.Context, ref Ref) (Definition, error) {
	d, ok := s.assessments[ref]
	if !ok {
		return Definition{}, fmt.Errorf("assessment %s: %w", ref, ErrNotFound)
	}
	return d, nil
}

func (s *YAMLStore) ListModules(context.Context) ([]Module, error) {
	out := make([]Module, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.modules[id])
	}
	return out, nil
}
