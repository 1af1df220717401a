package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Status represents the lifecycle state of a note.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusDead      Status = "dead"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDelivered, StatusFailed, StatusDead:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the automated delivery cycle.
// A dead note can still re-enter the cycle through an explicit replay.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusDead
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Content limits (in characters).
const (
	MaxTitleLength = 200
	MaxBodyLength  = 10000
)

// Note is the core domain entity: a payload scheduled for future delivery
// to a caller-supplied webhook endpoint.
type Note struct {
	ID           string
	Title        string
	Body         string
	ReleaseAt    time.Time
	WebhookURL   string
	Status       Status
	AttemptCount int
	MaxAttempts  int
	DeliveredAt  *time.Time
	NextRetryAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (n *Note) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if titleLen := len([]rune(n.Title)); titleLen > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters (got %d)", ErrValidation, MaxTitleLength, titleLen)
	}
	if bodyLen := len([]rune(n.Body)); bodyLen > MaxBodyLength {
		return fmt.Errorf("%w: body exceeds %d characters (got %d)", ErrValidation, MaxBodyLength, bodyLen)
	}
	if n.ReleaseAt.IsZero() {
		return fmt.Errorf("%w: releaseAt is required", ErrValidation)
	}
	if err := validateWebhookURL(n.WebhookURL); err != nil {
		return err
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, n.Status)
	}
	return nil
}

func validateWebhookURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: webhookUrl is required", ErrValidation)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: invalid webhookUrl: %v", ErrValidation, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: webhookUrl must be an absolute http(s) URL", ErrValidation)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: webhookUrl must include a host", ErrValidation)
	}

	return nil
}
