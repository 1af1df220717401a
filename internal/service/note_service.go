package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshita0007/DropLater/internal/dispatch"
	"github.com/Harshita0007/DropLater/internal/domain"
	"github.com/Harshita0007/DropLater/internal/observability"
	"github.com/Harshita0007/DropLater/internal/queue"
	"github.com/Harshita0007/DropLater/internal/repository"
)

const (
	defaultMaxAttempts = 3

	// replayGuardTTL covers the load-transition-save window of a replay. It
	// only needs to outlive the two store round trips, not a delivery.
	replayGuardTTL = 10 * time.Second
)

// NoteDetails is a note together with its full attempt history.
type NoteDetails struct {
	Note     domain.Note
	Attempts []domain.Attempt
}

// NoteService owns note creation, lookup, listing, and replay. Creation with
// a past release time and replay both publish straight onto the delivery
// queue; the polling sweep is the fallback path for anything a publish
// failure leaves behind.
type NoteService struct {
	notes       repository.NoteRepository
	attempts    repository.AttemptRepository
	publisher   queue.Publisher
	guard       dispatch.Guard
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
	now         func() time.Time
}

func NewNoteService(
	notes repository.NoteRepository,
	attempts repository.AttemptRepository,
	publisher queue.Publisher,
	guard dispatch.Guard,
	maxAttempts int,
	logger *zap.Logger,
) (*NoteService, error) {
	if notes == nil {
		return nil, fmt.Errorf("note repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("dispatch guard is required")
	}
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NoteService{
		notes:       notes,
		attempts:    attempts,
		publisher:   publisher,
		guard:       guard,
		logger:      logger,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}, nil
}

func (s *NoteService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *NoteService) Create(ctx context.Context, n *domain.Note) (*domain.Note, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if n == nil {
		return nil, fmt.Errorf("%w: note is required", domain.ErrValidation)
	}

	n.Title = strings.TrimSpace(n.Title)
	n.Body = strings.TrimSpace(n.Body)
	n.WebhookURL = strings.TrimSpace(n.WebhookURL)
	n.ID = uuid.NewString()
	n.ReleaseAt = n.ReleaseAt.UTC()
	n.Status = domain.StatusPending
	n.AttemptCount = 0
	if n.MaxAttempts <= 0 {
		n.MaxAttempts = s.maxAttempts
	}
	n.DeliveredAt = nil
	n.NextRetryAt = nil

	if err := n.Validate(); err != nil {
		return nil, err
	}

	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}

	if n.ReleaseAt.After(s.now().UTC()) {
		return n, nil
	}

	// Already due: publish immediately rather than waiting for the sweep.
	// A publish failure is tolerable, the next sweep re-discovers the note.
	if err := s.publish(ctx, n, domain.TriggerSchedule); err != nil {
		observability.WithContextLogger(s.logger, ctx).Warn("failed to publish due note at creation, sweep will pick it up",
			zap.String("noteId", n.ID),
			zap.Error(err),
		)
	}

	return n, nil
}

func (s *NoteService) GetByID(ctx context.Context, id string) (*NoteDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: note id is required", domain.ErrValidation)
	}

	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attempts.GetByNoteID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &NoteDetails{Note: *note, Attempts: attempts}, nil
}

func (s *NoteService) List(ctx context.Context, params repository.ListParams) ([]domain.Note, int64, error) {
	return s.notes.List(ctx, params)
}

// Replay resets a failed or dead note to pending and submits it for
// immediate delivery, skipping the releaseAt wait. Replay of a delivered or
// pending note is rejected with ErrInvalidState. The reset runs under the
// note's dispatch guard so it can never interleave with an in-flight
// delivery attempt; a held guard surfaces as ErrConflict rather than
// silently losing the replay to a stale worker write.
func (s *NoteService) Replay(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: note id is required", domain.ErrValidation)
	}

	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return err
	}

	key := domain.DeliveryKey(note.ID, note.ReleaseAt)
	acquired, err := s.guard.Acquire(ctx, key, replayGuardTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire dispatch guard: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: delivery attempt in progress, retry shortly", domain.ErrConflict)
	}

	err = s.resetForReplay(ctx, note)

	// Release before publishing: a worker picking up the replay message must
	// be able to take the guard itself.
	if releaseErr := s.guard.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
		s.logger.Warn("failed to release dispatch guard after replay",
			zap.String("noteId", note.ID),
			zap.Error(releaseErr),
		)
	}
	if err != nil {
		return err
	}

	logger := observability.WithContextLogger(s.logger, ctx)

	s.metrics.IncReplayRequested()
	logger.Info("note queued for replay", zap.String("noteId", note.ID))

	if err := s.publish(ctx, note, domain.TriggerReplay); err != nil {
		// The note is pending and past due, so the sweep will retry it.
		logger.Warn("failed to publish replay, sweep will pick it up",
			zap.String("noteId", note.ID),
			zap.Error(err),
		)
	}

	return nil
}

// resetForReplay applies the replay transition while the caller holds the
// note's dispatch guard. The store write stays conditional on the status we
// loaded; losing that race means a writer outside the guard got there first,
// and the operator should re-read the note before retrying.
func (s *NoteService) resetForReplay(ctx context.Context, note *domain.Note) error {
	priorStatus := note.Status
	if err := domain.BeginReplay(note); err != nil {
		return err
	}
	return s.notes.Save(ctx, note, priorStatus)
}

func (s *NoteService) publish(ctx context.Context, n *domain.Note, trigger domain.Trigger) error {
	msg := queue.DeliveryMessage{
		NoteID:      n.ID,
		Trigger:     trigger,
		DeliveryKey: domain.DeliveryKey(n.ID, n.ReleaseAt),
	}
	return s.publisher.Publish(ctx, queue.WorkQueueName, msg)
}
