package repository

import (
	"time"

	"github.com/Harshita0007/DropLater/internal/domain"
)

// NoteModel is the persistence model for the notes table.
type NoteModel struct {
	ID           string        `gorm:"type:uuid;primaryKey"`
	Title        string        `gorm:"type:varchar(200);not null"`
	Body         string        `gorm:"type:text;not null"`
	ReleaseAt    time.Time     `gorm:"type:timestamptz;not null"`
	WebhookURL   string        `gorm:"type:text;not null"`
	Status       domain.Status `gorm:"type:varchar(20);not null"`
	AttemptCount int           `gorm:"not null;default:0"`
	MaxAttempts  int           `gorm:"not null;default:3"`
	DeliveredAt  *time.Time    `gorm:"type:timestamptz"`
	NextRetryAt  *time.Time    `gorm:"type:timestamptz"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (NoteModel) TableName() string {
	return "notes"
}

// AttemptModel is the persistence model for note_attempts.
type AttemptModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	NoteID        string  `gorm:"type:uuid;not null"`
	AttemptNumber int     `gorm:"not null"`
	StatusCode    int     `gorm:"not null;default:0"`
	OK            bool    `gorm:"column:ok;not null;default:false"`
	Error         *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (AttemptModel) TableName() string {
	return "note_attempts"
}

func noteModelFromDomain(n *domain.Note) *NoteModel {
	if n == nil {
		return nil
	}

	return &NoteModel{
		ID:           n.ID,
		Title:        n.Title,
		Body:         n.Body,
		ReleaseAt:    n.ReleaseAt,
		WebhookURL:   n.WebhookURL,
		Status:       n.Status,
		AttemptCount: n.AttemptCount,
		MaxAttempts:  n.MaxAttempts,
		DeliveredAt:  n.DeliveredAt,
		NextRetryAt:  n.NextRetryAt,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

func noteModelToDomain(m *NoteModel) *domain.Note {
	if m == nil {
		return nil
	}

	return &domain.Note{
		ID:           m.ID,
		Title:        m.Title,
		Body:         m.Body,
		ReleaseAt:    m.ReleaseAt,
		WebhookURL:   m.WebhookURL,
		Status:       m.Status,
		AttemptCount: m.AttemptCount,
		MaxAttempts:  m.MaxAttempts,
		DeliveredAt:  m.DeliveredAt,
		NextRetryAt:  m.NextRetryAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.Attempt) *AttemptModel {
	if a == nil {
		return nil
	}

	return &AttemptModel{
		ID:            a.ID,
		NoteID:        a.NoteID,
		AttemptNumber: a.AttemptNumber,
		StatusCode:    a.StatusCode,
		OK:            a.OK,
		Error:         a.Error,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *AttemptModel) *domain.Attempt {
	if m == nil {
		return nil
	}

	return &domain.Attempt{
		ID:            m.ID,
		NoteID:        m.NoteID,
		AttemptNumber: m.AttemptNumber,
		StatusCode:    m.StatusCode,
		OK:            m.OK,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
	}
}
