package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Harshita0007/DropLater/internal/domain"
	"github.com/Harshita0007/DropLater/internal/queue"
)

func newTestNoteService(t *testing.T, repo *fakeNoteRepo, attempts *fakeAttemptRepo, publisher *fakePublisher) *NoteService {
	t.Helper()
	return newTestNoteServiceWithGuard(t, repo, attempts, publisher, &fakeGuard{})
}

func newTestNoteServiceWithGuard(t *testing.T, repo *fakeNoteRepo, attempts *fakeAttemptRepo, publisher *fakePublisher, guard *fakeGuard) *NoteService {
	t.Helper()

	svc, err := NewNoteService(repo, attempts, publisher, guard, 3, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNoteService() error = %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestNoteServiceCreate(t *testing.T) {
	t.Parallel()

	var created *domain.Note
	repo := &fakeNoteRepo{
		createFn: func(ctx context.Context, n *domain.Note) error {
			created = n
			return nil
		},
	}
	svc := newTestNoteService(t, repo, &fakeAttemptRepo{}, &fakePublisher{})

	note, err := svc.Create(context.Background(), &domain.Note{
		Title:      "  reminder  ",
		Body:       "water the plants",
		ReleaseAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)),
		WebhookURL: "https://example.com/hooks/notes",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created == nil {
		t.Fatal("note should be persisted")
	}
	if note.ID == "" {
		t.Fatal("id should be assigned")
	}
	if note.Title != "reminder" {
		t.Fatalf("title = %q, want trimmed %q", note.Title, "reminder")
	}
	if note.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", note.Status)
	}
	if note.MaxAttempts != 3 {
		t.Fatalf("maxAttempts = %d, want 3", note.MaxAttempts)
	}
	if loc := note.ReleaseAt.Location(); loc != time.UTC {
		t.Fatalf("releaseAt location = %v, want UTC", loc)
	}
}

func TestNoteServiceCreateValidation(t *testing.T) {
	t.Parallel()

	repo := &fakeNoteRepo{
		createFn: func(ctx context.Context, n *domain.Note) error {
			t.Fatal("invalid notes must not reach the store")
			return nil
		},
	}
	svc := newTestNoteService(t, repo, &fakeAttemptRepo{}, &fakePublisher{})

	_, err := svc.Create(context.Background(), &domain.Note{
		Title:      "reminder",
		Body:       "water the plants",
		ReleaseAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		WebhookURL: "ftp://example.com/hooks",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}
}

func TestNoteServiceCreatePublishesPastDueNote(t *testing.T) {
	t.Parallel()

	var published *queue.DeliveryMessage
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			published = &msg
			if queueName != queue.WorkQueueName {
				t.Fatalf("queue = %q, want %q", queueName, queue.WorkQueueName)
			}
			return nil
		},
	}
	svc := newTestNoteService(t, &fakeNoteRepo{}, &fakeAttemptRepo{}, publisher)

	note, err := svc.Create(context.Background(), &domain.Note{
		Title:      "reminder",
		Body:       "water the plants",
		ReleaseAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		WebhookURL: "https://example.com/hooks/notes",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if published == nil {
		t.Fatal("past-due note should be published at creation")
	}
	if published.Trigger != domain.TriggerSchedule {
		t.Fatalf("trigger = %s, want schedule", published.Trigger)
	}
	if want := domain.DeliveryKey(note.ID, note.ReleaseAt); published.DeliveryKey != want {
		t.Fatalf("deliveryKey = %q, want %q", published.DeliveryKey, want)
	}
}

func TestNoteServiceCreateDoesNotPublishFutureNote(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			t.Fatal("future notes are the sweep's job, not creation's")
			return nil
		},
	}
	svc := newTestNoteService(t, &fakeNoteRepo{}, &fakeAttemptRepo{}, publisher)

	_, err := svc.Create(context.Background(), &domain.Note{
		Title:      "reminder",
		Body:       "water the plants",
		ReleaseAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		WebhookURL: "https://example.com/hooks/notes",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestNoteServiceCreateToleratesPublishFailure(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			return errors.New("broker down")
		},
	}
	svc := newTestNoteService(t, &fakeNoteRepo{}, &fakeAttemptRepo{}, publisher)

	note, err := svc.Create(context.Background(), &domain.Note{
		Title:      "reminder",
		Body:       "water the plants",
		ReleaseAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		WebhookURL: "https://example.com/hooks/notes",
	})
	if err != nil {
		t.Fatalf("Create() error = %v, publish failures must not fail creation", err)
	}
	if note == nil {
		t.Fatal("note should still be returned")
	}
}

func TestNoteServiceGetByID(t *testing.T) {
	t.Parallel()

	note := &domain.Note{ID: "n1", Status: domain.StatusFailed, AttemptCount: 2}
	repo := &fakeNoteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Note, error) { return note, nil },
	}
	attempts := &fakeAttemptRepo{
		getByNoteIDFn: func(ctx context.Context, noteID string) ([]domain.Attempt, error) {
			return []domain.Attempt{
				{NoteID: noteID, AttemptNumber: 1, StatusCode: 503},
				{NoteID: noteID, AttemptNumber: 2, StatusCode: 500},
			}, nil
		},
	}
	svc := newTestNoteService(t, repo, attempts, &fakePublisher{})

	details, err := svc.GetByID(context.Background(), "n1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if details.Note.ID != "n1" {
		t.Fatalf("note id = %q, want n1", details.Note.ID)
	}
	if len(details.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(details.Attempts))
	}
}

func TestNoteServiceGetByIDNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestNoteService(t, &fakeNoteRepo{}, &fakeAttemptRepo{}, &fakePublisher{})

	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestNoteServiceReplay(t *testing.T) {
	t.Parallel()

	note := &domain.Note{
		ID:           "n1",
		ReleaseAt:    time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Status:       domain.StatusDead,
		AttemptCount: 3,
	}
	var savedNote *domain.Note
	var savedExpected domain.Status
	repo := &fakeNoteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Note, error) { return note, nil },
		saveFn: func(ctx context.Context, n *domain.Note, expected domain.Status) error {
			copied := *n
			savedNote = &copied
			savedExpected = expected
			return nil
		},
	}
	var published *queue.DeliveryMessage
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			published = &msg
			return nil
		},
	}
	acquiredKey := ""
	releasedKey := ""
	guard := &fakeGuard{
		acquireFn: func(ctx context.Context, key string, ttl time.Duration) (bool, error) {
			acquiredKey = key
			return true, nil
		},
		releaseFn: func(ctx context.Context, key string) error {
			releasedKey = key
			return nil
		},
	}
	svc := newTestNoteServiceWithGuard(t, repo, &fakeAttemptRepo{}, publisher, guard)

	if err := svc.Replay(context.Background(), "n1"); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if savedNote == nil {
		t.Fatal("replayed note should be saved")
	}
	if savedNote.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", savedNote.Status)
	}
	if savedExpected != domain.StatusDead {
		t.Fatalf("save conditioned on status %s, want dead", savedExpected)
	}
	if savedNote.AttemptCount != 0 {
		t.Fatalf("attemptCount = %d, want 0 after replay", savedNote.AttemptCount)
	}
	if published == nil {
		t.Fatal("replay should publish immediately")
	}
	if published.Trigger != domain.TriggerReplay {
		t.Fatalf("trigger = %s, want replay", published.Trigger)
	}
	wantKey := domain.DeliveryKey("n1", note.ReleaseAt)
	if acquiredKey != wantKey {
		t.Fatalf("guard key = %q, want %q", acquiredKey, wantKey)
	}
	if releasedKey != wantKey {
		t.Fatalf("released key = %q, want %q", releasedKey, wantKey)
	}
}

func TestNoteServiceReplayRejectedWhileDeliveryInFlight(t *testing.T) {
	t.Parallel()

	// A worker holds the note's guard for the duration of an attempt. A
	// replay arriving inside that window must not reset the note, or the
	// worker's outcome write would clobber the reset and the queued replay
	// message would arrive ineligible.
	note := &domain.Note{
		ID:           "n1",
		ReleaseAt:    time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Status:       domain.StatusFailed,
		AttemptCount: 1,
	}
	repo := &fakeNoteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Note, error) { return note, nil },
		saveFn: func(ctx context.Context, n *domain.Note, expected domain.Status) error {
			t.Fatal("replay must not write while a delivery attempt holds the guard")
			return nil
		},
	}
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			t.Fatal("replay must not publish while a delivery attempt holds the guard")
			return nil
		},
	}
	guard := &fakeGuard{
		acquireFn: func(ctx context.Context, key string, ttl time.Duration) (bool, error) {
			return false, nil
		},
		releaseFn: func(ctx context.Context, key string) error {
			t.Fatal("release must not be called for an unacquired guard")
			return nil
		},
	}
	svc := newTestNoteServiceWithGuard(t, repo, &fakeAttemptRepo{}, publisher, guard)

	err := svc.Replay(context.Background(), "n1")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Replay() error = %v, want ErrConflict", err)
	}
}

func TestNoteServiceReplayConcurrentTransitionConflict(t *testing.T) {
	t.Parallel()

	note := &domain.Note{
		ID:        "n1",
		ReleaseAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Status:    domain.StatusFailed,
	}
	repo := &fakeNoteRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Note, error) { return note, nil },
		saveFn: func(ctx context.Context, n *domain.Note, expected domain.Status) error {
			return domain.ErrConflict
		},
	}
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			t.Fatal("a lost replay write must not be published")
			return nil
		},
	}
	svc := newTestNoteService(t, repo, &fakeAttemptRepo{}, publisher)

	err := svc.Replay(context.Background(), "n1")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Replay() error = %v, want ErrConflict", err)
	}
}

func TestNoteServiceReplayInvalidStates(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.Status{domain.StatusPending, domain.StatusDelivered} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			repo := &fakeNoteRepo{
				getByIDFn: func(ctx context.Context, id string) (*domain.Note, error) {
					return &domain.Note{ID: id, Status: status}, nil
				},
				saveFn: func(ctx context.Context, n *domain.Note, expected domain.Status) error {
					t.Fatal("rejected replay must not touch the store")
					return nil
				},
			}
			svc := newTestNoteService(t, repo, &fakeAttemptRepo{}, &fakePublisher{})

			err := svc.Replay(context.Background(), "n1")
			if !errors.Is(err, domain.ErrInvalidState) {
				t.Fatalf("Replay(%s) error = %v, want ErrInvalidState", status, err)
			}
		})
	}
}

func TestNoteServiceReplayNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestNoteService(t, &fakeNoteRepo{}, &fakeAttemptRepo{}, &fakePublisher{})

	err := svc.Replay(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Replay() error = %v, want ErrNotFound", err)
	}
}
