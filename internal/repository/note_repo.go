package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Harshita0007/DropLater/internal/domain"
)

type ListParams struct {
	Status   *domain.Status
	Page     int
	PageSize int
}

type NoteRepository interface {
	Create(ctx context.Context, n *domain.Note) error
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	Save(ctx context.Context, n *domain.Note, expected domain.Status) error
	List(ctx context.Context, params ListParams) ([]domain.Note, int64, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]domain.Note, error)
	FindDueForRetry(ctx context.Context, now time.Time, limit int) ([]domain.Note, error)
	ClearNextRetryAt(ctx context.Context, id string, observed time.Time) error
}

type GormNoteRepo struct {
	db *gorm.DB
}

func NewGormNoteRepo(db *gorm.DB) *GormNoteRepo {
	return &GormNoteRepo{db: db}
}

func (r *GormNoteRepo) Create(ctx context.Context, n *domain.Note) error {
	model := noteModelFromDomain(n)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if n != nil {
		*n = *noteModelToDomain(model)
	}
	return nil
}

func (r *GormNoteRepo) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	var model NoteModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return noteModelToDomain(&model), nil
}

// Save persists the note's mutable columns, conditional on the status the
// caller loaded. A row the caller's transition no longer matches, because a
// concurrent writer got there first or the row vanished, surfaces as
// ErrConflict and the caller decides whether its transition still stands.
func (r *GormNoteRepo) Save(ctx context.Context, n *domain.Note, expected domain.Status) error {
	model := noteModelFromDomain(n)
	if model == nil {
		return domain.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&NoteModel{}).
		Where("id = ? AND status = ?", model.ID, expected).
		Select("title", "body", "release_at", "webhook_url", "status",
			"attempt_count", "max_attempts", "delivered_at", "next_retry_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormNoteRepo) List(ctx context.Context, params ListParams) ([]domain.Note, int64, error) {
	query := r.db.WithContext(ctx).Model(&NoteModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var models []NoteModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	notes := make([]domain.Note, 0, len(models))
	for i := range models {
		notes = append(notes, *noteModelToDomain(&models[i]))
	}

	return notes, total, nil
}

func (r *GormNoteRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]domain.Note, error) {
	var models []NoteModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND release_at <= ?", domain.StatusPending, now).
		Order("release_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notes := make([]domain.Note, 0, len(models))
	for i := range models {
		notes = append(notes, *noteModelToDomain(&models[i]))
	}

	return notes, nil
}

func (r *GormNoteRepo) FindDueForRetry(ctx context.Context, now time.Time, limit int) ([]domain.Note, error) {
	var models []NoteModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", domain.StatusFailed, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notes := make([]domain.Note, 0, len(models))
	for i := range models {
		notes = append(notes, *noteModelToDomain(&models[i]))
	}

	return notes, nil
}

// ClearNextRetryAt removes the retry timestamp only while it still carries
// the value the sweep observed. If the worker already resolved the attempt
// and wrote a newer timestamp (or a terminal status), the clear is a no-op
// rather than a wipe that would strand the note outside both sweeps.
func (r *GormNoteRepo) ClearNextRetryAt(ctx context.Context, id string, observed time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NoteModel{}).
		Where("id = ? AND status = ? AND next_retry_at = ?", id, domain.StatusFailed, observed).
		Update("next_retry_at", nil)
	if result.Error != nil {
		return result.Error
	}
	return nil
}
