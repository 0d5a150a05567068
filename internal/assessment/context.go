package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/gokatarajesh/learning-platform/internal/content"
)

const (
	DefaultMaxContextRunes = 12000
	DefaultPlaceholder     = "General knowledge review covering the fundamental concepts of the course."
)

// ContentReader is the read contract the aggregator needs from a content store.
type ContentReader interface {
	Ping(ctx context.Context) error
	GetModule(ctx context.Context, id string) (content.Module, error)
	GetAssessment(ctx context.Context, ref content.Ref) (content.Definition, error)
	ListModules(ctx context.Context) ([]content.Module, error)
}

type ContextConfig struct {
	MaxRunes    int
	Placeholder string
}

// Aggregator builds generation context by walking fallback tiers.
type Aggregator struct {
	store   ContentReader
	cfg     ContextConfig
	logger  zerolog.Logger
	metrics *Metrics
}

type tier struct {
	name  Tier
	fetch func(ctx context.Context) (string, error)
}

func NewAggregator(store ContentReader, cfg ContextConfig, logger zerolog.Logger, metrics *Metrics) *Aggregator {
	if cfg.MaxRunes <= 0 {
		cfg.MaxRunes = DefaultMaxContextRunes
	}
	if strings.TrimSpace(cfg.Placeholder) == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	return &Aggregator{
		store:   store,
		cfg:     cfg,
		logger:  logger.With().Str("component", "context_aggregator").Logger(),
		metrics: metrics,
	}
}

// BuildContext returns the first tier that yields text. It fails only when the
// store cannot be reached at all.
func (a *Aggregator) BuildContext(ctx context.Context, ref content.Ref) (GenerationContext, error) {
	if err := a.store.Ping(ctx); err != nil {
		return GenerationContext{}, fmt.Errorf("%w: %w", ErrContentUnavailable, err)
	}

	log := a.logger.With().Str("assessment", ref.String()).Logger()
	for _, t := range a.tiers(ref) {
		text, err := t.fetch(ctx)
		if err != nil {
			log.Warn().Err(err).Str("tier", string(t.name)).Msg("context tier failed")
			continue
		}
		text = a.bound(normalizeText(text))
		if text == "" {
			log.Debug().Str("tier", string(t.name)).Msg("context tier empty")
			continue
		}
		a.metrics.observeTier(t.name)
		log.Debug().Str("tier", string(t.name)).Int("runes", utf8.RuneCountInString(text)).Msg("context built")
		return GenerationContext{SourceTier: t.name, Text: text}, nil
	}

	// unreachable while the placeholder is non-empty
	return GenerationContext{}, fmt.Errorf("%w: no context tier produced text", ErrContentUnavailable)
}

func (a *Aggregator) tiers(ref content.Ref) []tier {
	var (
		def    content.Definition
		defErr error
		loaded bool
	)
	definition := func(ctx context.Context) (content.Definition, error) {
		if !loaded {
			def, defErr = a.store.GetAssessment(ctx, ref)
			loaded = true
		}
		return def, defErr
	}

	return []tier{
		{TierDirect, func(ctx context.Context) (string, error) {
			d, err := definition(ctx)
			if err != nil {
				return "", err
			}
			return d.Description, nil
		}},
		{TierAssociated, func(ctx context.Context) (string, error) {
			d, err := definition(ctx)
			if err != nil {
				return "", err
			}
			parts := make([]string, 0, len(d.ModuleIDs))
			for _, id := range d.ModuleIDs {
				m, err := a.store.GetModule(ctx, id)
				if errors.Is(err, content.ErrNotFound) {
					a.logger.Debug().Str("module", id).Msg("associated module missing")
					continue
				}
				if err != nil {
					return "", err
				}
				parts = append(parts, composeModule(m))
			}
			return strings.Join(parts, "\n"), nil
		}},
		{TierFallbackAll, func(ctx context.Context) (string, error) {
			modules, err := a.store.ListModules(ctx)
			if err != nil {
				return "", err
			}
			parts := make([]string, 0, len(modules))
			for _, m := range modules {
				parts = append(parts, composeModule(m))
			}
			return strings.Join(parts, "\n"), nil
		}},
		{TierPlaceholder, func(context.Context) (string, error) {
			return a.cfg.Placeholder, nil
		}},
	}
}

// composeModule renders title, description, then section bodies in declared order.
func composeModule(m content.Module) string {
	parts := []string{m.Title, m.Description}
	for _, s := range content.SortSections(m.Sections) {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n")
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func (a *Aggregator) bound(s string) string {
	if utf8.RuneCountInString(s) <= a.cfg.MaxRunes {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:a.cfg.MaxRunes]))
}
