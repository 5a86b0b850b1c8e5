package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/minervahome/brain/internal/domain"
	"gorm.io/gorm"
)

type ChatRepository interface {
	// Upsert registers a chat by its telegram chat id, refreshing metadata
	// and last-seen on repeat registration without touching enabled.
	Upsert(ctx context.Context, chat *domain.TelegramChat) (*domain.TelegramChat, error)
	ListEnabled(ctx context.Context) ([]domain.TelegramChat, error)
}

type GormChatRepo struct {
	db *gorm.DB
}

func NewGormChatRepo(db *gorm.DB) *GormChatRepo {
	return &GormChatRepo{db: db}
}

func (r *GormChatRepo) Upsert(ctx context.Context, chat *domain.TelegramChat) (*domain.TelegramChat, error) {
	now := time.Now().UTC()

	var model TelegramChatModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&model, "chat_id = ?", chat.ChatID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model = *chatModelFromDomain(chat)
			model.ID = uuid.NewString()
			model.Enabled = true
			model.FirstSeenAt = now
			model.LastSeenAt = now
			return tx.Create(&model).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]any{
			"username":     chat.Username,
			"title":        chat.Title,
			"last_seen_at": now,
		}
		if chat.ChatType != "" {
			updates["chat_type"] = chat.ChatType
		}
		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&model, "chat_id = ?", chat.ChatID).Error
	})
	if err != nil {
		return nil, err
	}
	return chatModelToDomain(&model), nil
}

func (r *GormChatRepo) ListEnabled(ctx context.Context) ([]domain.TelegramChat, error) {
	var models []TelegramChatModel
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("first_seen_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	chats := make([]domain.TelegramChat, 0, len(models))
	for i := range models {
		chats = append(chats, *chatModelToDomain(&models[i]))
	}
	return chats, nil
}
