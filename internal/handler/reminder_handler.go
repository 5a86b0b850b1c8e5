package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minervahome/brain/internal/domain"
)

type ReminderStore interface {
	Create(ctx context.Context, r *domain.Reminder) error
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	List(ctx context.Context) ([]domain.Reminder, error)
	Update(ctx context.Context, r *domain.Reminder) error
	Delete(ctx context.Context, id string) error
}

type ReminderHandler struct {
	store ReminderStore
	now   func() time.Time
}

func NewReminderHandler(store ReminderStore) (*ReminderHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("reminder store is required")
	}
	return &ReminderHandler{store: store, now: time.Now}, nil
}

func RegisterReminderRoutes(router fiber.Router, store ReminderStore) error {
	h, err := NewReminderHandler(store)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/reminders", h.CreateReminder)
	v1.Get("/reminders", h.ListReminders)
	v1.Get("/reminders/:id", h.GetReminder)
	v1.Patch("/reminders/:id", h.UpdateReminder)
	v1.Delete("/reminders/:id", h.DeleteReminder)

	return nil
}

type createReminderRequest struct {
	Label          string     `json:"label"`
	Description    *string    `json:"description"`
	ScheduleKind   string     `json:"schedule_kind"`
	TimeOfDay      string     `json:"time_of_day"`
	DaysOfWeek     []int      `json:"days_of_week"`
	OneOffAt       *time.Time `json:"one_off_at"`
	GraceBeforeMin *int       `json:"grace_before_min"`
	GraceAfterMin  *int       `json:"grace_after_min"`
	Channels       []string   `json:"channels"`
	Enabled        *bool      `json:"enabled"`
}

type updateReminderRequest struct {
	Label          *string    `json:"label"`
	Description    *string    `json:"description"`
	ScheduleKind   *string    `json:"schedule_kind"`
	TimeOfDay      *string    `json:"time_of_day"`
	DaysOfWeek     []int      `json:"days_of_week"`
	OneOffAt       *time.Time `json:"one_off_at"`
	GraceBeforeMin *int       `json:"grace_before_min"`
	GraceAfterMin  *int       `json:"grace_after_min"`
	Channels       []string   `json:"channels"`
	Enabled        *bool      `json:"enabled"`
}

type reminderResponse struct {
	ID             string     `json:"id"`
	Label          string     `json:"label"`
	Description    *string    `json:"description,omitempty"`
	ScheduleKind   string     `json:"schedule_kind"`
	TimeOfDay      string     `json:"time_of_day,omitempty"`
	DaysOfWeek     []int      `json:"days_of_week,omitempty"`
	OneOffAt       *time.Time `json:"one_off_at,omitempty"`
	GraceBeforeMin int        `json:"grace_before_min"`
	GraceAfterMin  int        `json:"grace_after_min"`
	Channels       []string   `json:"channels"`
	Enabled        bool       `json:"enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (h *ReminderHandler) CreateReminder(c *fiber.Ctx) error {
	var req createReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	now := h.now().UTC()
	reminder := domain.Reminder{
		ID:           uuid.NewString(),
		Label:        strings.TrimSpace(req.Label),
		Description:  req.Description,
		ScheduleKind: domain.ScheduleKind(strings.ToUpper(strings.TrimSpace(req.ScheduleKind))),
		TimeOfDay:    strings.TrimSpace(req.TimeOfDay),
		DaysOfWeek:   req.DaysOfWeek,
		OneOffAt:     req.OneOffAt,
		Channels:     normalizeChannels(req.Channels),
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.GraceBeforeMin != nil {
		reminder.GraceBeforeMin = *req.GraceBeforeMin
	}
	if req.GraceAfterMin != nil {
		reminder.GraceAfterMin = *req.GraceAfterMin
	}
	if req.Enabled != nil {
		reminder.Enabled = *req.Enabled
	}

	if err := reminder.Validate(); err != nil {
		return toHTTPError(err)
	}
	if err := h.store.Create(c.Context(), &reminder); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toReminderResponse(&reminder))
}

func (h *ReminderHandler) ListReminders(c *fiber.Ctx) error {
	reminders, err := h.store.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]reminderResponse, 0, len(reminders))
	for i := range reminders {
		responses = append(responses, toReminderResponse(&reminders[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *ReminderHandler) GetReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	reminder, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toReminderResponse(reminder))
}

func (h *ReminderHandler) UpdateReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req updateReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	reminder, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	if req.Label != nil {
		reminder.Label = strings.TrimSpace(*req.Label)
	}
	if req.Description != nil {
		reminder.Description = req.Description
	}
	if req.ScheduleKind != nil {
		kind, err := domain.ParseScheduleKindFromString(*req.ScheduleKind)
		if err != nil {
			return toHTTPError(err)
		}
		reminder.ScheduleKind = kind
	}
	if req.TimeOfDay != nil {
		reminder.TimeOfDay = strings.TrimSpace(*req.TimeOfDay)
	}
	if req.DaysOfWeek != nil {
		reminder.DaysOfWeek = req.DaysOfWeek
	}
	if req.OneOffAt != nil {
		reminder.OneOffAt = req.OneOffAt
	}
	if req.GraceBeforeMin != nil {
		reminder.GraceBeforeMin = *req.GraceBeforeMin
	}
	if req.GraceAfterMin != nil {
		reminder.GraceAfterMin = *req.GraceAfterMin
	}
	if req.Channels != nil {
		reminder.Channels = normalizeChannels(req.Channels)
	}
	if req.Enabled != nil {
		reminder.Enabled = *req.Enabled
	}
	reminder.UpdatedAt = h.now().UTC()

	if err := reminder.Validate(); err != nil {
		return toHTTPError(err)
	}
	if err := h.store.Update(c.Context(), reminder); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toReminderResponse(reminder))
}

func (h *ReminderHandler) DeleteReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.store.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func normalizeChannels(channels []string) []string {
	normalized := make([]string, 0, len(channels))
	for _, ch := range channels {
		trimmed := strings.ToLower(strings.TrimSpace(ch))
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

func toReminderResponse(r *domain.Reminder) reminderResponse {
	if r == nil {
		return reminderResponse{}
	}
	return reminderResponse{
		ID:             r.ID,
		Label:          r.Label,
		Description:    r.Description,
		ScheduleKind:   r.ScheduleKind.String(),
		TimeOfDay:      r.TimeOfDay,
		DaysOfWeek:     r.DaysOfWeek,
		OneOffAt:       r.OneOffAt,
		GraceBeforeMin: r.GraceBeforeMin,
		GraceAfterMin:  r.GraceAfterMin,
		Channels:       r.Channels,
		Enabled:        r.Enabled,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
