package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minervahome/brain/internal/domain"
	"github.com/minervahome/brain/internal/repository"
)

type OccurrenceStore interface {
	GetByID(ctx context.Context, id string) (*domain.Occurrence, error)
	List(ctx context.Context, params repository.OccurrenceListParams) ([]domain.Occurrence, error)
	MarkDone(ctx context.Context, id string, at time.Time) (*domain.Occurrence, error)
	MarkSkipped(ctx context.Context, id string, at time.Time) (*domain.Occurrence, error)
	DeleteOrphans(ctx context.Context) (int64, error)
}

type OccurrenceHandler struct {
	store OccurrenceStore
	// cleanup-orphans is destructive; only non-production environments
	// expose it without confirmation plumbing.
	allowCleanup bool
	now          func() time.Time
}

func NewOccurrenceHandler(store OccurrenceStore, allowCleanup bool) (*OccurrenceHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("occurrence store is required")
	}
	return &OccurrenceHandler{store: store, allowCleanup: allowCleanup, now: time.Now}, nil
}

func RegisterOccurrenceRoutes(router fiber.Router, store OccurrenceStore, allowCleanup bool) error {
	h, err := NewOccurrenceHandler(store, allowCleanup)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/occurrences", h.ListOccurrences)
	v1.Get("/occurrences/:id", h.GetOccurrence)
	v1.Post("/occurrences/:id/done", h.MarkDone)
	v1.Post("/occurrences/:id/skip", h.MarkSkipped)
	v1.Post("/occurrences/cleanup-orphans", h.CleanupOrphans)

	return nil
}

type occurrenceResponse struct {
	ID            string     `json:"id"`
	ReminderID    *string    `json:"reminder_id"`
	DueAt         time.Time  `json:"due_at"`
	WindowStartAt time.Time  `json:"window_start_at"`
	WindowEndAt   time.Time  `json:"window_end_at"`
	State         string     `json:"state"`
	DoneAt        *time.Time `json:"done_at,omitempty"`
	SkippedAt     *time.Time `json:"skipped_at,omitempty"`
	AlertedAt     *time.Time `json:"alerted_at,omitempty"`
	Note          *string    `json:"note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (h *OccurrenceHandler) ListOccurrences(c *fiber.Ctx) error {
	params, err := parseOccurrenceListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	occurrences, err := h.store.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]occurrenceResponse, 0, len(occurrences))
	for i := range occurrences {
		responses = append(responses, toOccurrenceResponse(&occurrences[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *OccurrenceHandler) GetOccurrence(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	occurrence, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toOccurrenceResponse(occurrence))
}

func (h *OccurrenceHandler) MarkDone(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	occurrence, err := h.store.MarkDone(c.Context(), id, h.now().UTC())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toOccurrenceResponse(occurrence))
}

func (h *OccurrenceHandler) MarkSkipped(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	occurrence, err := h.store.MarkSkipped(c.Context(), id, h.now().UTC())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toOccurrenceResponse(occurrence))
}

func (h *OccurrenceHandler) CleanupOrphans(c *fiber.Ctx) error {
	if !h.allowCleanup {
		return fiber.NewError(fiber.StatusForbidden, "orphan cleanup is disabled in this environment")
	}
	if !strings.EqualFold(strings.TrimSpace(c.Query("confirm")), "true") {
		return fiber.NewError(fiber.StatusBadRequest, "confirm=true is required")
	}

	deleted, err := h.store.DeleteOrphans(c.Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"deleted": deleted})
}

func parseOccurrenceListParams(c *fiber.Ctx) (repository.OccurrenceListParams, error) {
	var params repository.OccurrenceListParams

	if rawDate := strings.TrimSpace(c.Query("date")); rawDate != "" {
		day, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			return repository.OccurrenceListParams{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
		}
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)
		params.DayStart = &dayStart
		params.DayEnd = &dayEnd
	}

	if rawState := strings.TrimSpace(c.Query("state")); rawState != "" {
		state, err := domain.ParseOccurrenceStateFromString(rawState)
		if err != nil {
			return repository.OccurrenceListParams{}, err
		}
		params.State = &state
	}

	if reminderID := strings.TrimSpace(c.Query("reminder_id")); reminderID != "" {
		params.ReminderID = &reminderID
	}

	return params, nil
}

func toOccurrenceResponse(o *domain.Occurrence) occurrenceResponse {
	if o == nil {
		return occurrenceResponse{}
	}
	return occurrenceResponse{
		ID:            o.ID,
		ReminderID:    o.ReminderID,
		DueAt:         o.DueAt,
		WindowStartAt: o.WindowStartAt,
		WindowEndAt:   o.WindowEndAt,
		State:         o.State.String(),
		DoneAt:        o.DoneAt,
		SkippedAt:     o.SkippedAt,
		AlertedAt:     o.AlertedAt,
		Note:          o.Note,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
