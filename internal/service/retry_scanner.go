package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Harshita0007/DropLater/internal/domain"
	"github.com/Harshita0007/DropLater/internal/queue"
	"github.com/Harshita0007/DropLater/internal/repository"
)

const (
	defaultRetryScanInterval = 5 * time.Second
	defaultRetryScanLimit    = 100
)

// RetryScanner periodically re-presents failed notes whose retry delay has
// elapsed. It clears next_retry_at after a successful enqueue so consecutive
// sweeps do not double-publish the same retry.
type RetryScanner struct {
	notes     repository.NoteRepository
	publisher queue.Publisher
	logger    *zap.Logger
	interval  time.Duration
	limit     int
	now       func() time.Time
}

func NewRetryScanner(
	notes repository.NoteRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*RetryScanner, error) {
	if notes == nil {
		return nil, fmt.Errorf("note repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultRetryScanInterval
	}
	if limit <= 0 {
		limit = defaultRetryScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryScanner{
		notes:     notes,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
		now:       time.Now,
	}, nil
}

func (s *RetryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("retry scanner initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retry scanner sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *RetryScanner) scanDue(ctx context.Context) error {
	dueNotes, err := s.notes.FindDueForRetry(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due retries: %w", err)
	}

	for i := range dueNotes {
		note := dueNotes[i]
		if note.NextRetryAt == nil {
			continue
		}
		msg := queue.DeliveryMessage{
			NoteID:      note.ID,
			Trigger:     domain.TriggerRetry,
			DeliveryKey: domain.DeliveryKey(note.ID, note.ReleaseAt),
		}

		if err := s.publisher.Publish(ctx, queue.WorkQueueName, msg); err != nil {
			s.logger.Error("failed to enqueue retry",
				zap.String("noteId", note.ID),
				zap.Error(err),
			)
			continue
		}

		// Conditional on the timestamp this sweep observed: if the worker
		// has already run the attempt and scheduled the next backoff, that
		// newer timestamp must survive.
		if err := s.notes.ClearNextRetryAt(ctx, note.ID, *note.NextRetryAt); err != nil {
			s.logger.Error("failed to clear next retry timestamp after enqueue",
				zap.String("noteId", note.ID),
				zap.Error(err),
			)
			continue
		}
	}

	return nil
}
