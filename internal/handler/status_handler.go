package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/minervahome/brain/internal/service"
)

type StatusProvider interface {
	Today(ctx context.Context) (*service.TodayStatus, error)
}

type StatusHandler struct {
	provider StatusProvider
}

func NewStatusHandler(provider StatusProvider) (*StatusHandler, error) {
	if provider == nil {
		return nil, fmt.Errorf("status provider is required")
	}
	return &StatusHandler{provider: provider}, nil
}

func RegisterStatusRoutes(router fiber.Router, provider StatusProvider) error {
	h, err := NewStatusHandler(provider)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/status/today", h.Today)

	return nil
}

func (h *StatusHandler) Today(c *fiber.Ctx) error {
	status, err := h.provider.Today(c.Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}
