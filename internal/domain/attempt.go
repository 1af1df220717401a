package domain

import "time"

// Attempt records a single delivery try for a note. Attempt rows are
// append-only; insertion order is chronological order. StatusCode 0 is
// reserved for transport-level failures that produced no HTTP response.
type Attempt struct {
	ID            string
	NoteID        string
	AttemptNumber int
	StatusCode    int
	OK            bool
	Error         *string
	CreatedAt     time.Time
}
