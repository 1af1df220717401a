package delivery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/Harshita0007/DropLater/internal/domain"
)

const defaultDeliveryTimeout = 30 * time.Second

// Executor performs one delivery attempt and classifies its outcome.
type Executor interface {
	Execute(ctx context.Context, note domain.Note) (domain.Attempt, error)
}

type webhookPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ReleaseAt   time.Time `json:"releaseAt"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// WebhookExecutor delivers notes to their webhook endpoint over HTTP POST.
// Every non-cancellation outcome, including transport failure, is classified
// into the returned Attempt rather than surfaced as an error; the only error
// it returns is context cancellation, so callers can requeue the message.
type WebhookExecutor struct {
	client *resty.Client
	now    func() time.Time
}

func NewWebhookExecutor(timeout time.Duration) *WebhookExecutor {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewWebhookExecutorWithClient(client)
}

func NewWebhookExecutorWithClient(client *resty.Client) *WebhookExecutor {
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultDeliveryTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookExecutor{
		client: client,
		now:    time.Now,
	}
}

func (e *WebhookExecutor) Execute(ctx context.Context, note domain.Note) (domain.Attempt, error) {
	if e == nil || e.client == nil {
		return domain.Attempt{}, fmt.Errorf("executor is not initialized")
	}
	if err := note.Validate(); err != nil {
		return domain.Attempt{}, fmt.Errorf("invalid note: %w", err)
	}

	sentAt := e.now().UTC()
	attempt := domain.Attempt{
		ID:            uuid.NewString(),
		NoteID:        note.ID,
		AttemptNumber: note.AttemptCount + 1,
		CreatedAt:     sentAt,
	}

	payload := webhookPayload{
		ID:          note.ID,
		Title:       note.Title,
		Body:        note.Body,
		ReleaseAt:   note.ReleaseAt.UTC(),
		DeliveredAt: sentAt,
	}

	response, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Note-Id", note.ID).
		SetHeader("X-Idempotency-Key", domain.DeliveryKey(note.ID, note.ReleaseAt)).
		SetBody(payload).
		Post(note.WebhookURL)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Attempt{}, ctx.Err()
		}
		msg := fmt.Sprintf("delivery request failed: %v", err)
		attempt.StatusCode = 0
		attempt.Error = &msg
		return attempt, nil
	}

	statusCode := response.StatusCode()
	attempt.StatusCode = statusCode

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		attempt.OK = true
		return attempt, nil
	}

	msg := fmt.Sprintf("endpoint returned status %d", statusCode)
	attempt.Error = &msg
	return attempt, nil
}
