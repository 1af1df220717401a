package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validNote() Note {
	return Note{
		ID:         "n1",
		Title:      "reminder",
		Body:       "water the plants",
		ReleaseAt:  time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		WebhookURL: "https://example.com/hooks/notes",
		Status:     StatusPending,
	}
}

func TestNoteValidateAccepts(t *testing.T) {
	t.Parallel()

	n := validNote()
	if err := n.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestNoteValidateRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(n *Note)
	}{
		{"missing title", func(n *Note) { n.Title = "  " }},
		{"title too long", func(n *Note) { n.Title = strings.Repeat("x", MaxTitleLength+1) }},
		{"body too long", func(n *Note) { n.Body = strings.Repeat("x", MaxBodyLength+1) }},
		{"zero release time", func(n *Note) { n.ReleaseAt = time.Time{} }},
		{"missing webhook url", func(n *Note) { n.WebhookURL = "" }},
		{"relative webhook url", func(n *Note) { n.WebhookURL = "/hooks/notes" }},
		{"non-http scheme", func(n *Note) { n.WebhookURL = "ftp://example.com/x" }},
		{"hostless url", func(n *Note) { n.WebhookURL = "https://" }},
		{"invalid status", func(n *Note) { n.Status = Status("queued") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			n := validNote()
			tc.mutate(&n)

			err := n.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestParseStatusFromString(t *testing.T) {
	t.Parallel()

	status, err := ParseStatusFromString("  Delivered ")
	if err != nil {
		t.Fatalf("ParseStatusFromString() error = %v", err)
	}
	if status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", status)
	}

	if _, err := ParseStatusFromString("sending"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseStatusFromString(sending) error = %v, want ErrValidation", err)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	if !StatusDelivered.IsTerminal() {
		t.Fatal("delivered should be terminal")
	}
	if !StatusDead.IsTerminal() {
		t.Fatal("dead should be terminal")
	}
	if StatusPending.IsTerminal() || StatusFailed.IsTerminal() {
		t.Fatal("pending and failed should not be terminal")
	}
}
