package repository

import (
	"context"
	"errors"
	"time"

	"github.com/minervahome/brain/internal/domain"
	"gorm.io/gorm"
)

type WordRepository interface {
	Create(ctx context.Context, w *domain.Word) error
	GetByID(ctx context.Context, id string) (*domain.Word, error)
	GetByWord(ctx context.Context, word string) (*domain.Word, error)
	List(ctx context.Context) ([]domain.Word, error)
	ListActive(ctx context.Context) ([]domain.Word, error)
	Update(ctx context.Context, w *domain.Word) error
	Delete(ctx context.Context, id string) error
}

type GormWordRepo struct {
	db *gorm.DB
}

func NewGormWordRepo(db *gorm.DB) *GormWordRepo {
	return &GormWordRepo{db: db}
}

func (r *GormWordRepo) Create(ctx context.Context, w *domain.Word) error {
	model := wordModelFromDomain(w)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if w != nil {
		*w = *wordModelToDomain(model)
	}
	return nil
}

func (r *GormWordRepo) GetByID(ctx context.Context, id string) (*domain.Word, error) {
	var model WordModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return wordModelToDomain(&model), nil
}

func (r *GormWordRepo) GetByWord(ctx context.Context, word string) (*domain.Word, error) {
	var model WordModel
	err := r.db.WithContext(ctx).First(&model, "word = ?", word).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return wordModelToDomain(&model), nil
}

func (r *GormWordRepo) List(ctx context.Context) ([]domain.Word, error) {
	return r.list(ctx, false)
}

func (r *GormWordRepo) ListActive(ctx context.Context) ([]domain.Word, error) {
	return r.list(ctx, true)
}

func (r *GormWordRepo) list(ctx context.Context, activeOnly bool) ([]domain.Word, error) {
	query := r.db.WithContext(ctx).Model(&WordModel{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var models []WordModel
	if err := query.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	words := make([]domain.Word, 0, len(models))
	for i := range models {
		words = append(words, *wordModelToDomain(&models[i]))
	}
	return words, nil
}

func (r *GormWordRepo) Update(ctx context.Context, w *domain.Word) error {
	model := wordModelFromDomain(w)
	model.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&WordModel{}).
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

func (r *GormWordRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&WordModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
