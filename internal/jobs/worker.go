package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
)

type generator interface {
	Generate(ctx context.Context, req assessment.GenerateRequest) (assessment.Result, error)
}

type WorkerConfig struct {
	Concurrency int
	JobTimeout  time.Duration
	PollWait    time.Duration
}

// Worker drains the queue with a fixed pool of goroutines.
type Worker struct {
	queue    Queue
	store    Store
	notifier Notifier
	service  generator
	cfg      WorkerConfig
	logger   zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
}

func NewWorker(queue Queue, store Store, notifier Notifier, service generator, cfg WorkerConfig, logger zerolog.Logger, metrics *Metrics) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if cfg.PollWait <= 0 {
		cfg.PollWait = 5 * time.Second
	}
	return &Worker{
		queue:    queue,
		store:    store,
		notifier: notifier,
		service:  service,
		cfg:      cfg,
		logger:   logger.With().Str("component", "job_worker").Logger(),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled and every in-flight job has been recorded.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Int("concurrency", w.cfg.Concurrency).Msg("job worker starting")

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, slot)
		}(i)
	}
	wg.Wait()

	w.logger.Info().Msg("job worker stopped")
	return ctx.Err()
}

func (w *Worker) loop(ctx context.Context, slot int) {
	for {
		if ctx.Err() != nil {
			return
		}
		id, err := w.queue.Dequeue(ctx, w.cfg.PollWait)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn().Err(err).Int("slot", slot).Msg("dequeue failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		w.Process(ctx, id)
	}
}

// Process runs one job to a terminal state.
func (w *Worker) Process(ctx context.Context, id uuid.UUID) {
	log := w.logger.With().Str("job_id", id.String()).Logger()

	// Recording the outcome must survive shutdown of the dequeue loop.
	recordCtx := context.WithoutCancel(ctx)

	job, err := w.store.Get(recordCtx, id)
	if err != nil {
		log.Warn().Err(err).Msg("queued job not loadable")
		return
	}
	if job.Terminal() {
		log.Debug().Str("status", string(job.Status)).Msg("skipping finished job")
		return
	}

	job.Status = StatusRunning
	job.UpdatedAt = w.now().UTC()
	w.record(recordCtx, job, log)

	done := w.metrics.started()
	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	res, err := w.service.Generate(jobCtx, job.Request)
	cancel()

	job.UpdatedAt = w.now().UTC()
	if err != nil {
		job.Status = StatusFailed
		job.ErrorCode = assessment.Code(err)
		job.ErrorMessage = err.Error()
		log.Warn().Err(err).Str("code", job.ErrorCode).Msg("job failed")
	} else {
		job.Status = StatusSucceeded
		job.Result = &res
		log.Info().Int("questions", len(res.Questions)).Msg("job succeeded")
	}
	done(job.Status, job.ErrorCode)
	w.record(recordCtx, job, log)
}

func (w *Worker) record(ctx context.Context, job Job, log zerolog.Logger) {
	if err := w.store.Save(ctx, job); err != nil {
		log.Error().Err(err).Str("status", string(job.Status)).Msg("save job failed")
	}
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, job.Update()); err != nil {
		log.Warn().Err(err).Msg("publish job update failed")
	}
}
