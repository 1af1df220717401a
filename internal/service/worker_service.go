package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harshita0007/DropLater/internal/delivery"
	"github.com/Harshita0007/DropLater/internal/dispatch"
	"github.com/Harshita0007/DropLater/internal/domain"
	"github.com/Harshita0007/DropLater/internal/observability"
	"github.com/Harshita0007/DropLater/internal/queue"
	"github.com/Harshita0007/DropLater/internal/repository"
)

const (
	minWorkerConcurrency = 1
	guardTTLSlack        = 15 * time.Second
)

// WorkerService drains the delivery queue with a fixed pool of workers. Each
// message is one delivery attempt: claim the note's dispatch guard, re-check
// eligibility, execute, durably record the attempt, then resolve the
// lifecycle transition. Attempt N is persisted before attempt N+1 can ever
// be considered.
type WorkerService struct {
	notes       repository.NoteRepository
	attempts    repository.AttemptRepository
	consumer    queue.Consumer
	executor    delivery.Executor
	guard       dispatch.Guard
	retryPolicy delivery.RetryPolicy
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	guardTTL    time.Duration
	now         func() time.Time
}

func NewWorkerService(
	notes repository.NoteRepository,
	attempts repository.AttemptRepository,
	consumer queue.Consumer,
	executor delivery.Executor,
	guard dispatch.Guard,
	retryPolicy delivery.RetryPolicy,
	deliveryTimeout time.Duration,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if notes == nil {
		return nil, fmt.Errorf("note repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("dispatch guard is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if deliveryTimeout <= 0 {
		deliveryTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		notes:       notes,
		attempts:    attempts,
		consumer:    consumer,
		executor:    executor,
		guard:       guard,
		retryPolicy: retryPolicy,
		logger:      logger,
		concurrency: concurrency,
		guardTTL:    deliveryTimeout + guardTTLSlack,
		now:         time.Now,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs the worker pool until context cancellation. In-flight attempts
// finish or time out before the pool unwinds.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started", zap.Int("workerId", workerID))

			err := s.consumer.Consume(groupCtx, queue.WorkQueueName, s.processMessage)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.DeliveryMessage) error {
	acquired, err := s.guard.Acquire(ctx, msg.DeliveryKey, s.guardTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire dispatch guard: %w", err)
	}
	if !acquired {
		// Another worker holds this note; its outcome decides what happens
		// next, so this duplicate is dropped.
		s.logger.Info("note already being dispatched, skipping",
			zap.String("noteId", msg.NoteID),
			zap.String("trigger", string(msg.Trigger)),
		)
		return nil
	}
	defer func() {
		if releaseErr := s.guard.Release(context.WithoutCancel(ctx), msg.DeliveryKey); releaseErr != nil {
			s.logger.Warn("failed to release dispatch guard",
				zap.String("noteId", msg.NoteID),
				zap.Error(releaseErr),
			)
		}
	}()

	note, err := s.notes.GetByID(ctx, msg.NoteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("note not found during dispatch, skipping",
				zap.String("noteId", msg.NoteID),
			)
			return nil
		}
		return fmt.Errorf("failed to load note: %w", err)
	}

	// Idempotent skip: an already-delivered note, or one whose status moved
	// on since discovery, produces no network call and no attempt row.
	if !domain.Eligible(note.Status, msg.Trigger) {
		s.logger.Debug("note not eligible for trigger, skipping",
			zap.String("noteId", note.ID),
			zap.String("status", string(note.Status)),
			zap.String("trigger", string(msg.Trigger)),
		)
		return nil
	}

	// A duplicate retry message arriving after the attempt it asked for has
	// already run sees the next backoff window still open; firing now would
	// shortcut the delay.
	if msg.Trigger == domain.TriggerRetry && note.NextRetryAt != nil && note.NextRetryAt.After(s.now().UTC()) {
		s.logger.Debug("retry not yet due, skipping duplicate",
			zap.String("noteId", note.ID),
			zap.Time("nextRetryAt", *note.NextRetryAt),
		)
		return nil
	}

	loadedStatus := note.Status

	if s.metrics != nil {
		s.metrics.IncWorkerInFlight()
		defer s.metrics.DecWorkerInFlight()
	}

	sendStart := s.now()
	attempt, err := s.executor.Execute(ctx, *note)
	if err != nil {
		// A stored note that no longer validates will never validate on
		// redelivery either; requeueing it would loop forever.
		if errors.Is(err, domain.ErrValidation) {
			s.logger.Error("stored note failed validation, dropping message",
				zap.String("noteId", note.ID),
				zap.Error(err),
			)
			return nil
		}
		// Cancellation or an uninitialized executor; the message is
		// requeued and re-examined on the next delivery.
		return fmt.Errorf("delivery attempt aborted: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDeliveryDuration(string(msg.Trigger), s.now().Sub(sendStart))
	}

	// The attempt row must be durable before the lifecycle transition is
	// resolved; losing it would risk an unaccounted duplicate delivery.
	if err := s.attempts.Create(ctx, &attempt); err != nil {
		s.logger.Error("attempt write failed, halting this note's cycle",
			zap.String("noteId", note.ID),
			zap.Int("statusCode", attempt.StatusCode),
			zap.Error(err),
		)
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	maxAttempts := note.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.retryPolicy.MaxAttempts
	}

	if err := domain.ApplyAttempt(note, attempt, maxAttempts); err != nil {
		return fmt.Errorf("failed to apply attempt: %w", err)
	}

	if note.Status == domain.StatusFailed {
		policy := s.retryPolicy
		policy.MaxAttempts = maxAttempts

		if decision := policy.Next(note.AttemptCount); decision.Retry {
			nextRetryAt := s.now().UTC().Add(decision.Delay)
			note.NextRetryAt = &nextRetryAt
			if s.metrics != nil {
				s.metrics.IncRetryScheduled()
			}
		} else {
			note.Status = domain.StatusDead
			note.NextRetryAt = nil
		}
	}

	if err := s.notes.Save(ctx, note, loadedStatus); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Someone transitioned the note between our load and this write.
			// The attempt row is already durable; redelivering the message
			// would risk a second outbound call, so the stale write is
			// dropped and the winning transition stands.
			s.logger.Warn("note transitioned concurrently, dropping status write",
				zap.String("noteId", note.ID),
				zap.String("attemptedStatus", string(note.Status)),
			)
			return nil
		}
		s.logger.Error("status write failed, halting this note's cycle",
			zap.String("noteId", note.ID),
			zap.String("status", string(note.Status)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save note after attempt: %w", err)
	}

	s.recordOutcome(note, attempt, msg.Trigger)
	return nil
}

func (s *WorkerService) recordOutcome(note *domain.Note, attempt domain.Attempt, trigger domain.Trigger) {
	switch note.Status {
	case domain.StatusDelivered:
		if s.metrics != nil {
			s.metrics.IncNoteDelivered(string(trigger))
		}
		s.logger.Info("note delivered",
			zap.String("noteId", note.ID),
			zap.Int("statusCode", attempt.StatusCode),
			zap.Int("attempt", attempt.AttemptNumber),
		)
	case domain.StatusDead:
		if s.metrics != nil {
			s.metrics.IncNoteFailed("retry_exhausted")
		}
		s.logger.Warn("note dead after exhausting retries",
			zap.String("noteId", note.ID),
			zap.Int("attempts", note.AttemptCount),
		)
	case domain.StatusFailed:
		if s.metrics != nil {
			s.metrics.IncNoteFailed("attempt_failed")
		}
		s.logger.Info("delivery attempt failed, retry scheduled",
			zap.String("noteId", note.ID),
			zap.Int("statusCode", attempt.StatusCode),
			zap.Int("attempt", attempt.AttemptNumber),
			zap.Timep("nextRetryAt", note.NextRetryAt),
		)
	}
}
