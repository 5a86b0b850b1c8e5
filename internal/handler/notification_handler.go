package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minervahome/brain/internal/domain"
)

const (
	defaultClaimLimit   = 10
	maxClaimLimit       = 100
	defaultLeaseSeconds = 60
	maxLeaseSeconds     = 600
)

type OutboxStore interface {
	Claim(ctx context.Context, limit int, consumerID string, lease time.Duration, channels ...string) ([]domain.NotificationEvent, error)
	Ack(ctx context.Context, id string) (*domain.NotificationEvent, error)
	Fail(ctx context.Context, id string, errorMessage string) (*domain.NotificationEvent, error)
	GetByID(ctx context.Context, id string) (*domain.NotificationEvent, error)
}

type NotificationHandler struct {
	store OutboxStore
}

func NewNotificationHandler(store OutboxStore) (*NotificationHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	return &NotificationHandler{store: store}, nil
}

func RegisterNotificationRoutes(router fiber.Router, store OutboxStore) error {
	h, err := NewNotificationHandler(store)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/notifications/pending", h.ClaimPending)
	v1.Get("/notifications/:id", h.GetNotification)
	v1.Post("/notifications/:id/ack", h.AckNotification)
	v1.Post("/notifications/:id/fail", h.FailNotification)

	return nil
}

type failNotificationRequest struct {
	ErrorMessage string `json:"error_message"`
}

type notificationEventResponse struct {
	ID           string              `json:"id"`
	Channel      string              `json:"channel"`
	Payload      domain.EventPayload `json:"payload"`
	Status       string              `json:"status"`
	AttemptCount int                 `json:"attempt_count"`
	LastError    *string             `json:"last_error,omitempty"`
	LockedAt     *time.Time          `json:"locked_at,omitempty"`
	LockedBy     *string             `json:"locked_by,omitempty"`
	SentAt       *time.Time          `json:"sent_at,omitempty"`
	AckedAt      *time.Time          `json:"acked_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ClaimPending leases a batch of deliverable events to the calling consumer.
// Repeated polls from the same consumer extend nothing; claims expire on
// their own when the lease runs out.
func (h *NotificationHandler) ClaimPending(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultClaimLimit)
	if limit < 1 || limit > maxClaimLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxClaimLimit))
	}

	consumerID := strings.TrimSpace(c.Query("consumer_id"))
	if consumerID == "" {
		return toHTTPError(fmt.Errorf("%w: consumer_id is required", domain.ErrValidation))
	}

	leaseSeconds := c.QueryInt("lock_seconds", defaultLeaseSeconds)
	if leaseSeconds < 1 || leaseSeconds > maxLeaseSeconds {
		return toHTTPError(fmt.Errorf("%w: lock_seconds must be between 1 and %d", domain.ErrValidation, maxLeaseSeconds))
	}

	var channels []string
	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		channels = append(channels, strings.ToLower(rawChannel))
	}

	events, err := h.store.Claim(c.Context(), limit, consumerID, time.Duration(leaseSeconds)*time.Second, channels...)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]notificationEventResponse, 0, len(events))
	for i := range events {
		responses = append(responses, toEventResponse(&events[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	event, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toEventResponse(event))
}

func (h *NotificationHandler) AckNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	event, err := h.store.Ack(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toEventResponse(event))
}

func (h *NotificationHandler) FailNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req failNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	message := strings.TrimSpace(req.ErrorMessage)
	if message == "" {
		message = "delivery failed"
	}

	event, err := h.store.Fail(c.Context(), id, message)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toEventResponse(event))
}

func toEventResponse(e *domain.NotificationEvent) notificationEventResponse {
	if e == nil {
		return notificationEventResponse{}
	}
	return notificationEventResponse{
		ID:           e.ID,
		Channel:      e.Channel,
		Payload:      e.Payload,
		Status:       e.Status.String(),
		AttemptCount: e.AttemptCount,
		LastError:    e.LastError,
		LockedAt:     e.LockedAt,
		LockedBy:     e.LockedBy,
		SentAt:       e.SentAt,
		AckedAt:      e.AckedAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
