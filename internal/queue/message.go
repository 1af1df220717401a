package queue

import (
	"fmt"
	"strings"

	"github.com/Harshita0007/DropLater/internal/domain"
)

// DeliveryMessage is the broker payload asking a worker to attempt delivery
// of one note. DeliveryKey doubles as the per-note dispatch guard key.
type DeliveryMessage struct {
	NoteID      string         `json:"noteId"`
	Trigger     domain.Trigger `json:"trigger"`
	DeliveryKey string         `json:"deliveryKey"`
}

func (m DeliveryMessage) Validate() error {
	if strings.TrimSpace(m.NoteID) == "" {
		return fmt.Errorf("noteId is required")
	}
	if !m.Trigger.IsValid() {
		return fmt.Errorf("invalid trigger %q", m.Trigger)
	}
	if strings.TrimSpace(m.DeliveryKey) == "" {
		return fmt.Errorf("deliveryKey is required")
	}
	return nil
}
