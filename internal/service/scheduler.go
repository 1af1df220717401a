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
	defaultSchedulerScanInterval = 5 * time.Second
	defaultSchedulerScanLimit    = 100
)

// Scheduler periodically discovers due pending notes and enqueues them for
// delivery. Sweeps may overlap with each other and with the immediate
// publish on creation; the worker's dispatch guard and eligibility check
// make redundant discovery harmless.
type Scheduler struct {
	notes     repository.NoteRepository
	publisher queue.Publisher
	logger    *zap.Logger
	interval  time.Duration
	limit     int
	now       func() time.Time
}

func NewScheduler(
	notes repository.NoteRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*Scheduler, error) {
	if notes == nil {
		return nil, fmt.Errorf("note repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultSchedulerScanInterval
	}
	if limit <= 0 {
		limit = defaultSchedulerScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		notes:     notes,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
		now:       time.Now,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial sweep so notes already due do not wait for the first
	// ticker edge; this is also the recovery path after a restart.
	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler initial sweep failed", zap.Error(err))
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
				s.logger.Error("scheduler sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) scanDue(ctx context.Context) error {
	dueNotes, err := s.notes.FindDue(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due notes: %w", err)
	}

	for i := range dueNotes {
		note := dueNotes[i]
		msg := queue.DeliveryMessage{
			NoteID:      note.ID,
			Trigger:     domain.TriggerSchedule,
			DeliveryKey: domain.DeliveryKey(note.ID, note.ReleaseAt),
		}

		if err := s.publisher.Publish(ctx, queue.WorkQueueName, msg); err != nil {
			s.logger.Error("failed to enqueue due note",
				zap.String("noteId", note.ID),
				zap.Error(err),
			)
			continue
		}
	}

	return nil
}
