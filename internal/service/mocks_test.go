package service

import (
	"context"
	"time"

	"github.com/Harshita0007/DropLater/internal/domain"
	"github.com/Harshita0007/DropLater/internal/queue"
	"github.com/Harshita0007/DropLater/internal/repository"
)

type fakeNoteRepo struct {
	createFn           func(ctx context.Context, n *domain.Note) error
	getByIDFn          func(ctx context.Context, id string) (*domain.Note, error)
	saveFn             func(ctx context.Context, n *domain.Note, expected domain.Status) error
	listFn             func(ctx context.Context, params repository.ListParams) ([]domain.Note, int64, error)
	findDueFn          func(ctx context.Context, now time.Time, limit int) ([]domain.Note, error)
	findDueForRetryFn  func(ctx context.Context, now time.Time, limit int) ([]domain.Note, error)
	clearNextRetryAtFn func(ctx context.Context, id string, observed time.Time) error
}

func (f *fakeNoteRepo) Create(ctx context.Context, n *domain.Note) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, n)
}

func (f *fakeNoteRepo) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeNoteRepo) Save(ctx context.Context, n *domain.Note, expected domain.Status) error {
	if f.saveFn == nil {
		return nil
	}
	return f.saveFn(ctx, n, expected)
}

func (f *fakeNoteRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Note, int64, error) {
	if f.listFn == nil {
		return nil, 0, nil
	}
	return f.listFn(ctx, params)
}

func (f *fakeNoteRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]domain.Note, error) {
	if f.findDueFn == nil {
		return nil, nil
	}
	return f.findDueFn(ctx, now, limit)
}

func (f *fakeNoteRepo) FindDueForRetry(ctx context.Context, now time.Time, limit int) ([]domain.Note, error) {
	if f.findDueForRetryFn == nil {
		return nil, nil
	}
	return f.findDueForRetryFn(ctx, now, limit)
}

func (f *fakeNoteRepo) ClearNextRetryAt(ctx context.Context, id string, observed time.Time) error {
	if f.clearNextRetryAtFn == nil {
		return nil
	}
	return f.clearNextRetryAtFn(ctx, id, observed)
}

type fakeAttemptRepo struct {
	createFn      func(ctx context.Context, a *domain.Attempt) error
	getByNoteIDFn func(ctx context.Context, noteID string) ([]domain.Attempt, error)
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.Attempt) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, a)
}

func (f *fakeAttemptRepo) GetByNoteID(ctx context.Context, noteID string) ([]domain.Attempt, error) {
	if f.getByNoteIDFn == nil {
		return nil, nil
	}
	return f.getByNoteIDFn(ctx, noteID)
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
	if f.publishFn == nil {
		return nil
	}
	return f.publishFn(ctx, queueName, msg)
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn == nil {
		<-ctx.Done()
		return nil
	}
	return f.consumeFn(ctx, queueName, handler)
}

func (f *fakeConsumer) Close() error { return nil }

type fakeExecutor struct {
	executeFn func(ctx context.Context, note domain.Note) (domain.Attempt, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, note domain.Note) (domain.Attempt, error) {
	if f.executeFn == nil {
		return domain.Attempt{NoteID: note.ID, AttemptNumber: note.AttemptCount + 1, StatusCode: 200, OK: true}, nil
	}
	return f.executeFn(ctx, note)
}

type fakeGuard struct {
	acquireFn func(ctx context.Context, key string, ttl time.Duration) (bool, error)
	releaseFn func(ctx context.Context, key string) error
}

func (f *fakeGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.acquireFn == nil {
		return true, nil
	}
	return f.acquireFn(ctx, key, ttl)
}

func (f *fakeGuard) Release(ctx context.Context, key string) error {
	if f.releaseFn == nil {
		return nil
	}
	return f.releaseFn(ctx, key)
}
