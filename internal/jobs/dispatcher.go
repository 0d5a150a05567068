package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
)

type requestValidator interface {
	Validate(req assessment.GenerateRequest) error
}

// Dispatcher accepts generation requests and queues them for the worker pool.
type Dispatcher struct {
	store     Store
	queue     Queue
	notifier  Notifier
	validator requestValidator
	logger    zerolog.Logger
	metrics   *Metrics
	now       func() time.Time
}

func NewDispatcher(store Store, queue Queue, notifier Notifier, validator requestValidator, logger zerolog.Logger, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		store:     store,
		queue:     queue,
		notifier:  notifier,
		validator: validator,
		logger:    logger.With().Str("component", "job_dispatcher").Logger(),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Submit validates req, records a queued job and enqueues it.
func (d *Dispatcher) Submit(ctx context.Context, req assessment.GenerateRequest, subject string) (Job, error) {
	if err := d.validator.Validate(req); err != nil {
		return Job{}, err
	}

	now := d.now().UTC()
	job := Job{
		ID:        uuid.New(),
		Subject:   subject,
		Request:   req,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.store.Save(ctx, job); err != nil {
		return Job{}, fmt.Errorf("save queued job: %w", err)
	}
	if err := d.queue.Enqueue(ctx, job.ID); err != nil {
		return Job{}, err
	}
	d.metrics.observeSubmitted()

	if d.notifier != nil {
		if err := d.notifier.Notify(ctx, job.Update()); err != nil {
			d.logger.Warn().Err(err).Str("job_id", job.ID.String()).Msg("publish queued update failed")
		}
	}
	d.logger.Info().
		Str("job_id", job.ID.String()).
		Str("assessment", req.Ref.String()).
		Msg("job queued")
	return job, nil
}

// Get returns a job by id.
func (d *Dispatcher) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	return d.store.Get(ctx, id)
}
