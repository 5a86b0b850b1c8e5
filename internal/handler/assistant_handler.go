package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/minervahome/brain/internal/assistant"
	"github.com/minervahome/brain/internal/domain"
)

type AssistantHandler struct {
	provider assistant.Provider
}

func NewAssistantHandler(provider assistant.Provider) (*AssistantHandler, error) {
	if provider == nil {
		return nil, fmt.Errorf("assistant provider is required")
	}
	return &AssistantHandler{provider: provider}, nil
}

func RegisterAssistantRoutes(router fiber.Router, provider assistant.Provider) error {
	h, err := NewAssistantHandler(provider)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/assistant/chat", h.Chat)

	return nil
}

type chatRequest struct {
	SessionID *string `json:"session_id"`
	Message   string  `json:"message"`
}

type assistantChatResponse struct {
	SessionID string         `json:"session_id"`
	Reply     string         `json:"reply"`
	Meta      map[string]any `json:"meta"`
}

func (h *AssistantHandler) Chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return toHTTPError(fmt.Errorf("%w: message is required", domain.ErrValidation))
	}

	sessionID := "session-1"
	if req.SessionID != nil && strings.TrimSpace(*req.SessionID) != "" {
		sessionID = strings.TrimSpace(*req.SessionID)
	}

	reply, err := h.provider.Chat(c.Context(), req.Message)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(assistantChatResponse{
		SessionID: sessionID,
		Reply:     reply,
		Meta: map[string]any{
			"used_tools": []string{},
			"mode":       "dummy",
		},
	})
}
