package repository

import (
	"context"
	"errors"
	"time"

	"github.com/minervahome/brain/internal/domain"
	"gorm.io/gorm"
)

type ServiceRepository interface {
	Create(ctx context.Context, s *domain.Service) error
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Service, error)
	List(ctx context.Context) ([]domain.Service, error)
	ListEnabled(ctx context.Context) ([]domain.Service, error)
	Update(ctx context.Context, s *domain.Service) error
	// Delete removes the service together with its status row.
	Delete(ctx context.Context, id string) error

	GetStatus(ctx context.Context, serviceID string) (*domain.ServiceStatus, error)
	SaveStatus(ctx context.Context, status *domain.ServiceStatus) error
	ListStatuses(ctx context.Context) ([]domain.ServiceStatus, error)
}

type GormServiceRepo struct {
	db *gorm.DB
}

func NewGormServiceRepo(db *gorm.DB) *GormServiceRepo {
	return &GormServiceRepo{db: db}
}

func (r *GormServiceRepo) Create(ctx context.Context, s *domain.Service) error {
	model := serviceModelFromDomain(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if s != nil {
		*s = *serviceModelToDomain(model)
	}
	return nil
}

func (r *GormServiceRepo) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	var model ServiceModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return serviceModelToDomain(&model), nil
}

func (r *GormServiceRepo) GetBySlug(ctx context.Context, slug string) (*domain.Service, error) {
	var model ServiceModel
	err := r.db.WithContext(ctx).First(&model, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return serviceModelToDomain(&model), nil
}

func (r *GormServiceRepo) List(ctx context.Context) ([]domain.Service, error) {
	return r.list(ctx, false)
}

func (r *GormServiceRepo) ListEnabled(ctx context.Context) ([]domain.Service, error) {
	return r.list(ctx, true)
}

func (r *GormServiceRepo) list(ctx context.Context, enabledOnly bool) ([]domain.Service, error) {
	query := r.db.WithContext(ctx).Model(&ServiceModel{})
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}

	var models []ServiceModel
	if err := query.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	services := make([]domain.Service, 0, len(models))
	for i := range models {
		services = append(services, *serviceModelToDomain(&models[i]))
	}
	return services, nil
}

func (r *GormServiceRepo) Update(ctx context.Context, s *domain.Service) error {
	model := serviceModelFromDomain(s)
	model.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&ServiceModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormServiceRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ServiceStatusModel{}, "service_id = ?", id).Error; err != nil {
			return err
		}

		result := tx.Delete(&ServiceModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *GormServiceRepo) GetStatus(ctx context.Context, serviceID string) (*domain.ServiceStatus, error) {
	var model ServiceStatusModel
	err := r.db.WithContext(ctx).First(&model, "service_id = ?", serviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return statusModelToDomain(&model), nil
}

func (r *GormServiceRepo) SaveStatus(ctx context.Context, status *domain.ServiceStatus) error {
	model := statusModelFromDomain(status)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	if status != nil {
		*status = *statusModelToDomain(model)
	}
	return nil
}

func (r *GormServiceRepo) ListStatuses(ctx context.Context) ([]domain.ServiceStatus, error) {
	var models []ServiceStatusModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}

	statuses := make([]domain.ServiceStatus, 0, len(models))
	for i := range models {
		statuses = append(statuses, *statusModelToDomain(&models[i]))
	}
	return statuses, nil
}
