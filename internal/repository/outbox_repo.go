package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/minervahome/brain/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxRepository is the durable notification queue. Claim hands out
// time-leased events with at-most-one concurrent consumer per event; a
// crashed consumer's claims self-heal through lease expiry, never through
// explicit unlock.
type OutboxRepository interface {
	Enqueue(ctx context.Context, channel string, payload domain.EventPayload) (*domain.NotificationEvent, error)
	// Claim leases up to limit eligible events. A non-empty channels slice
	// restricts claiming to those channels so an in-process consumer does
	// not starve external ones of events it cannot deliver.
	Claim(ctx context.Context, limit int, consumerID string, lease time.Duration, channels ...string) ([]domain.NotificationEvent, error)
	Ack(ctx context.Context, id string) (*domain.NotificationEvent, error)
	Fail(ctx context.Context, id string, errorMessage string) (*domain.NotificationEvent, error)
	GetByID(ctx context.Context, id string) (*domain.NotificationEvent, error)
}

type GormOutboxRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormOutboxRepo(db *gorm.DB) *GormOutboxRepo {
	return &GormOutboxRepo{db: db, now: time.Now}
}

func (r *GormOutboxRepo) Enqueue(ctx context.Context, channel string, payload domain.EventPayload) (*domain.NotificationEvent, error) {
	now := r.now().UTC()
	event := &domain.NotificationEvent{
		ID:        uuid.NewString(),
		Channel:   channel,
		Payload:   payload,
		Status:    domain.EventPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	model, err := eventModelFromDomain(event)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return eventModelToDomain(model), nil
}

// Claim atomically selects and leases up to limit eligible events, oldest
// first. Eligibility: not sent, attempts below the budget, and either no
// lease or a lease older than the lease duration (an abandoned claim).
// SELECT ... FOR UPDATE SKIP LOCKED inside one transaction guarantees two
// racing consumers never receive the same event.
func (r *GormOutboxRepo) Claim(ctx context.Context, limit int, consumerID string, lease time.Duration, channels ...string) ([]domain.NotificationEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	now := r.now().UTC()
	staleBefore := now.Add(-lease)

	var models []NotificationEventModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&NotificationEventModel{}).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("sent_at IS NULL AND status <> ?", domain.EventSent).
			Where("attempt_count < ?", domain.MaxAttempts).
			Where("locked_at IS NULL OR locked_at < ?", staleBefore)
		if len(channels) > 0 {
			query = query.Where("channel IN ?", channels)
		}

		var ids []string
		err := query.
			Order("created_at ASC").
			Limit(limit).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		err = tx.Model(&NotificationEventModel{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     domain.EventSending,
				"locked_at":  now,
				"locked_by":  consumerID,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		return tx.Where("id IN ?", ids).Order("created_at ASC").Find(&models).Error
	})
	if err != nil {
		return nil, err
	}

	events := make([]domain.NotificationEvent, 0, len(models))
	for i := range models {
		events = append(events, *eventModelToDomain(&models[i]))
	}
	return events, nil
}

// Ack marks the event delivered and releases its lease. Acking an already
// acked event is a harmless overwrite.
func (r *GormOutboxRepo) Ack(ctx context.Context, id string) (*domain.NotificationEvent, error) {
	now := r.now().UTC()
	result := r.db.WithContext(ctx).
		Model(&NotificationEventModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.EventSent,
			"sent_at":    now,
			"acked_at":   now,
			"locked_at":  nil,
			"locked_by":  nil,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Fail records a delivery failure: bumps the attempt count, stores the error
// and releases the lease so the event is reclaimable immediately, until the
// attempt budget runs out.
func (r *GormOutboxRepo) Fail(ctx context.Context, id string, errorMessage string) (*domain.NotificationEvent, error) {
	now := r.now().UTC()
	result := r.db.WithContext(ctx).
		Model(&NotificationEventModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.EventFailed,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    errorMessage,
			"locked_at":     nil,
			"locked_by":     nil,
			"updated_at":    now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *GormOutboxRepo) GetByID(ctx context.Context, id string) (*domain.NotificationEvent, error) {
	var model NotificationEventModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return eventModelToDomain(&model), nil
}
