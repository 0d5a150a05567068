package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/learning-platform/internal/content"
	"github.com/gokatarajesh/learning-platform/internal/retry"
)

const DefaultMaxQuestions = 50

const (
	outcomeSuccess            = "success"
	outcomeInvalid            = CodeInvalidRequest
	outcomeContentUnavailable = CodeContentUnavailable
	outcomeServiceUnavailable = CodeServiceUnavailable
	outcomeUpstream           = CodeUpstream
	outcomeNoParseable        = CodeNoParseableOutput
)

// Generator is a single call to an external text-generation backend.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

type contextBuilder interface {
	BuildContext(ctx context.Context, ref content.Ref) (GenerationContext, error)
}

type ServiceConfig struct {
	MaxQuestions int
	Params       GenerationParams
}

// Service orchestrates context assembly, generation with retries, and parsing.
type Service struct {
	contexts  contextBuilder
	generator Generator
	executor  *retry.Executor
	parser    *Parser
	cfg       ServiceConfig
	logger    zerolog.Logger
	metrics   *Metrics
}

func NewService(contexts contextBuilder, generator Generator, executor *retry.Executor, cfg ServiceConfig, logger zerolog.Logger, metrics *Metrics) *Service {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	return &Service{
		contexts:  contexts,
		generator: generator,
		executor:  executor,
		parser:    NewParser(logger),
		cfg:       cfg,
		logger:    logger.With().Str("component", "assessment_service").Logger(),
		metrics:   metrics,
	}
}

// Validate checks request shape without doing any I/O.
func (s *Service) Validate(req GenerateRequest) error {
	if _, err := content.ParseKind(string(req.Ref.Kind)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.Ref.ID) == "" {
		return fmt.Errorf("%w: assessment id is required", ErrInvalidRequest)
	}
	if req.QuestionCount < 1 || req.QuestionCount > s.cfg.MaxQuestions {
		return fmt.Errorf("%w: question count must be between 1 and %d", ErrInvalidRequest, s.cfg.MaxQuestions)
	}
	if len(req.Types) == 0 {
		return fmt.Errorf("%w: at least one question type is required", ErrInvalidRequest)
	}
	for _, t := range req.Types {
		if !t.valid() {
			return fmt.Errorf("%w: unsupported question type %q", ErrInvalidRequest, t)
		}
	}
	return nil
}

// Generate produces questions for req or one of the package's sentinel errors.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	if err := s.Validate(req); err != nil {
		s.metrics.observeOutcome(outcomeInvalid)
		return Result{}, err
	}
	log := s.logger.With().Str("assessment", req.Ref.String()).Int("count", req.QuestionCount).Logger()

	gc, err := s.contexts.BuildContext(ctx, req.Ref)
	if err != nil {
		s.metrics.observeOutcome(outcomeContentUnavailable)
		if !errors.Is(err, ErrContentUnavailable) {
			err = fmt.Errorf("%w: %w", ErrContentUnavailable, err)
		}
		return Result{}, err
	}

	prompt := BuildPrompt(gc, req)
	var attempts atomic.Int32
	raw, err := retry.Do(ctx, s.executor, func(ctx context.Context) (string, error) {
		attempts.Add(1)
		return s.generator.Generate(ctx, prompt, s.cfg.Params)
	})
	if err != nil {
		if retry.Exhausted(err) {
			s.metrics.observeOutcome(outcomeServiceUnavailable)
			log.Warn().Err(err).Int32("attempts", attempts.Load()).Msg("generation retries exhausted")
			return Result{}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
		}
		s.metrics.observeOutcome(outcomeUpstream)
		log.Error().Err(err).Msg("generation failed")
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	questions := s.parser.Parse(raw)
	s.metrics.observeParsed(len(questions))
	if len(questions) == 0 {
		s.metrics.observeOutcome(outcomeNoParseable)
		log.Warn().Int("raw_len", len(raw)).Msg("generated text had no parseable questions")
		return Result{}, ErrNoParseableOutput
	}
	if len(questions) > req.QuestionCount {
		questions = questions[:req.QuestionCount]
	}

	s.metrics.observeOutcome(outcomeSuccess)
	log.Info().
		Str("tier", string(gc.SourceTier)).
		Int("questions", len(questions)).
		Int32("attempts", attempts.Load()).
		Msg("questions generated")

	return Result{
		Questions:  questions,
		SourceTier: gc.SourceTier,
		Attempts:   int(attempts.Load()),
	}, nil
}
