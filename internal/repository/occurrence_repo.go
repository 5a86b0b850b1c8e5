package repository

import (
	"context"
	"errors"
	"time"

	"github.com/minervahome/brain/internal/domain"
	"gorm.io/gorm"
)

type OccurrenceListParams struct {
	DayStart   *time.Time
	DayEnd     *time.Time
	State      *domain.OccurrenceState
	ReminderID *string
}

type StateCount struct {
	State domain.OccurrenceState `gorm:"column:state"`
	Count int                    `gorm:"column:count"`
}

type OccurrenceRepository interface {
	Create(ctx context.Context, o *domain.Occurrence) error
	GetByID(ctx context.Context, id string) (*domain.Occurrence, error)
	List(ctx context.Context, params OccurrenceListParams) ([]domain.Occurrence, error)
	// ExistsForReminderBetween reports whether the reminder already has an
	// occurrence due within [start, end]. The materializer keys idempotence
	// on this.
	ExistsForReminderBetween(ctx context.Context, reminderID string, start, end time.Time) (bool, error)
	// ExpireOverdue transitions PENDING occurrences whose window has closed
	// to MISSED and returns how many rows changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	// ListDueUnalerted returns PENDING occurrences that are due and have not
	// had a notification emitted yet.
	ListDueUnalerted(ctx context.Context, now time.Time) ([]domain.Occurrence, error)
	StampAlerted(ctx context.Context, id string, at time.Time) error
	// MarkDone and MarkSkipped are idempotent terminal transitions: applied
	// to an already-terminal occurrence they return it unchanged.
	MarkDone(ctx context.Context, id string, at time.Time) (*domain.Occurrence, error)
	MarkSkipped(ctx context.Context, id string, at time.Time) (*domain.Occurrence, error)
	CountByStateBetween(ctx context.Context, start, end time.Time) ([]StateCount, error)
	// NextPendingBetween returns the earliest not-yet-due pending occurrence
	// in the range, or nil when there is none.
	NextPendingBetween(ctx context.Context, now, end time.Time) (*domain.Occurrence, error)
	DeleteOrphans(ctx context.Context) (int64, error)
}

type GormOccurrenceRepo struct {
	db *gorm.DB
}

func NewGormOccurrenceRepo(db *gorm.DB) *GormOccurrenceRepo {
	return &GormOccurrenceRepo{db: db}
}

func (r *GormOccurrenceRepo) Create(ctx context.Context, o *domain.Occurrence) error {
	model := occurrenceModelFromDomain(o)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if o != nil {
		*o = *occurrenceModelToDomain(model)
	}
	return nil
}

func (r *GormOccurrenceRepo) GetByID(ctx context.Context, id string) (*domain.Occurrence, error) {
	var model OccurrenceModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return occurrenceModelToDomain(&model), nil
}

func (r *GormOccurrenceRepo) List(ctx context.Context, params OccurrenceListParams) ([]domain.Occurrence, error) {
	query := r.db.WithContext(ctx).Model(&OccurrenceModel{})

	if params.DayStart != nil {
		query = query.Where("due_at >= ?", *params.DayStart)
	}
	if params.DayEnd != nil {
		query = query.Where("due_at <= ?", *params.DayEnd)
	}
	if params.State != nil {
		query = query.Where("state = ?", *params.State)
	}
	if params.ReminderID != nil {
		query = query.Where("reminder_id = ?", *params.ReminderID)
	}

	var models []OccurrenceModel
	if err := query.Order("due_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	occurrences := make([]domain.Occurrence, 0, len(models))
	for i := range models {
		occurrences = append(occurrences, *occurrenceModelToDomain(&models[i]))
	}
	return occurrences, nil
}

func (r *GormOccurrenceRepo) ExistsForReminderBetween(ctx context.Context, reminderID string, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&OccurrenceModel{}).
		Where("reminder_id = ? AND due_at >= ? AND due_at <= ?", reminderID, start, end).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormOccurrenceRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&OccurrenceModel{}).
		Where("state = ? AND window_end_at < ?", domain.OccurrencePending, now).
		Updates(map[string]any{
			"state":      domain.OccurrenceMissed,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormOccurrenceRepo) ListDueUnalerted(ctx context.Context, now time.Time) ([]domain.Occurrence, error) {
	var models []OccurrenceModel
	err := r.db.WithContext(ctx).
		Where("state = ? AND due_at <= ? AND alerted_at IS NULL", domain.OccurrencePending, now).
		Order("due_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	occurrences := make([]domain.Occurrence, 0, len(models))
	for i := range models {
		occurrences = append(occurrences, *occurrenceModelToDomain(&models[i]))
	}
	return occurrences, nil
}

func (r *GormOccurrenceRepo) StampAlerted(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&OccurrenceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"alerted_at": at,
			"updated_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormOccurrenceRepo) MarkDone(ctx context.Context, id string, at time.Time) (*domain.Occurrence, error) {
	return r.markTerminal(ctx, id, domain.OccurrenceDone, at)
}

func (r *GormOccurrenceRepo) MarkSkipped(ctx context.Context, id string, at time.Time) (*domain.Occurrence, error) {
	return r.markTerminal(ctx, id, domain.OccurrenceSkipped, at)
}

func (r *GormOccurrenceRepo) markTerminal(ctx context.Context, id string, target domain.OccurrenceState, at time.Time) (*domain.Occurrence, error) {
	var model OccurrenceModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		// Terminal states stay as they are; re-applying is a no-op.
		if model.State.IsTerminal() {
			return nil
		}

		updates := map[string]any{
			"state":      target,
			"updated_at": at,
		}
		switch target {
		case domain.OccurrenceDone:
			updates["done_at"] = at
			updates["skipped_at"] = nil
		case domain.OccurrenceSkipped:
			updates["skipped_at"] = at
			updates["done_at"] = nil
		}

		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&model, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return occurrenceModelToDomain(&model), nil
}

func (r *GormOccurrenceRepo) CountByStateBetween(ctx context.Context, start, end time.Time) ([]StateCount, error) {
	var counts []StateCount
	err := r.db.WithContext(ctx).
		Model(&OccurrenceModel{}).
		Select("state, COUNT(*) as count").
		Where("due_at >= ? AND due_at <= ?", start, end).
		Group("state").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *GormOccurrenceRepo) NextPendingBetween(ctx context.Context, now, end time.Time) (*domain.Occurrence, error) {
	var model OccurrenceModel
	err := r.db.WithContext(ctx).
		Where("state = ? AND due_at > ? AND due_at <= ?", domain.OccurrencePending, now, end).
		Order("due_at ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return occurrenceModelToDomain(&model), nil
}

func (r *GormOccurrenceRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("reminder_id IS NULL").
		Delete(&OccurrenceModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
