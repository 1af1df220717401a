package domain

import "fmt"

// Trigger identifies which admission path presented a note for delivery.
type Trigger string

const (
	// TriggerSchedule is the polling sweep over due pending notes.
	TriggerSchedule Trigger = "schedule"
	// TriggerRetry is the retry scanner re-presenting a failed note.
	TriggerRetry Trigger = "retry"
	// TriggerReplay is an operator-initiated immediate re-delivery.
	TriggerReplay Trigger = "replay"
)

func (t Trigger) IsValid() bool {
	switch t {
	case TriggerSchedule, TriggerRetry, TriggerReplay:
		return true
	}
	return false
}

// Eligible reports whether a note in the given status may be dispatched for
// the given trigger. Schedule and replay paths only dispatch pending notes;
// the retry path only dispatches failed ones. Everything else, including a
// note that became delivered between discovery and dispatch, is skipped
// without error.
func Eligible(status Status, trigger Trigger) bool {
	switch trigger {
	case TriggerSchedule, TriggerReplay:
		return status == StatusPending
	case TriggerRetry:
		return status == StatusFailed
	}
	return false
}

// ApplyAttempt folds one delivery attempt into the note's state. It appends
// nothing itself: the attempt row is the caller's to persist. The transition
// rules are:
//
//	pending/failed -> delivered   on a successful attempt
//	pending/failed -> failed      on a failed attempt with budget remaining
//	pending/failed -> dead        on a failed attempt exhausting the budget
//
// Delivered and dead never accept further attempts.
func ApplyAttempt(n *Note, a Attempt, maxAttempts int) error {
	if n == nil {
		return fmt.Errorf("%w: note is required", ErrValidation)
	}
	if n.Status.IsTerminal() {
		return fmt.Errorf("%w: note %s is %s and accepts no further attempts", ErrInvalidState, n.ID, n.Status)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	n.AttemptCount++

	if a.OK {
		n.Status = StatusDelivered
		at := a.CreatedAt
		n.DeliveredAt = &at
		n.NextRetryAt = nil
		return nil
	}

	if n.AttemptCount >= maxAttempts {
		n.Status = StatusDead
		n.NextRetryAt = nil
		return nil
	}

	n.Status = StatusFailed
	return nil
}

// BeginReplay resets a failed or dead note to pending so it becomes eligible
// for immediate re-delivery. The attempt history is cumulative across replay
// cycles; only the per-cycle counter is cleared.
func BeginReplay(n *Note) error {
	if n == nil {
		return fmt.Errorf("%w: note is required", ErrValidation)
	}

	switch n.Status {
	case StatusFailed, StatusDead:
	case StatusDelivered:
		return fmt.Errorf("%w: note %s already delivered", ErrInvalidState, n.ID)
	case StatusPending:
		return fmt.Errorf("%w: note %s is already pending", ErrInvalidState, n.ID)
	default:
		return fmt.Errorf("%w: invalid status %q", ErrValidation, n.Status)
	}

	n.Status = StatusPending
	n.AttemptCount = 0
	n.NextRetryAt = nil
	return nil
}
