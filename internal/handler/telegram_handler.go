package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minervahome/brain/internal/domain"
)

type ChatStore interface {
	Upsert(ctx context.Context, chat *domain.TelegramChat) (*domain.TelegramChat, error)
}

type TelegramHandler struct {
	store ChatStore
}

func NewTelegramHandler(store ChatStore) (*TelegramHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("chat store is required")
	}
	return &TelegramHandler{store: store}, nil
}

func RegisterTelegramRoutes(router fiber.Router, store ChatStore) error {
	h, err := NewTelegramHandler(store)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/integrations/telegram/register", h.RegisterChat)

	return nil
}

type registerChatRequest struct {
	ChatID   int64   `json:"chat_id"`
	ChatType string  `json:"chat_type"`
	Username *string `json:"username"`
	Title    *string `json:"title"`
}

type chatResponse struct {
	ID          string    `json:"id"`
	ChatID      int64     `json:"chat_id"`
	ChatType    string    `json:"chat_type"`
	Username    *string   `json:"username,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Enabled     bool      `json:"enabled"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// RegisterChat is idempotent: registering a known chat refreshes its
// metadata without flipping enabled.
func (h *TelegramHandler) RegisterChat(c *fiber.Ctx) error {
	var req registerChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.ChatID == 0 {
		return toHTTPError(fmt.Errorf("%w: chat_id is required", domain.ErrValidation))
	}

	chatType := strings.TrimSpace(req.ChatType)
	if chatType == "" {
		chatType = "private"
	}

	chat, err := h.store.Upsert(c.Context(), &domain.TelegramChat{
		ChatID:   req.ChatID,
		ChatType: chatType,
		Username: req.Username,
		Title:    req.Title,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(chatResponse{
		ID:          chat.ID,
		ChatID:      chat.ChatID,
		ChatType:    chat.ChatType,
		Username:    chat.Username,
		Title:       chat.Title,
		Enabled:     chat.Enabled,
		FirstSeenAt: chat.FirstSeenAt,
		LastSeenAt:  chat.LastSeenAt,
	})
}
