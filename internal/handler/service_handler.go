package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minervahome/brain/internal/domain"
)

const (
	defaultCheckIntervalSec = 60
	defaultTimeoutSec       = 5
)

type ServiceStore interface {
	Create(ctx context.Context, s *domain.Service) error
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Service, error)
	List(ctx context.Context) ([]domain.Service, error)
	Update(ctx context.Context, s *domain.Service) error
	Delete(ctx context.Context, id string) error
	GetStatus(ctx context.Context, serviceID string) (*domain.ServiceStatus, error)
}

type ServiceHandler struct {
	store ServiceStore
	now   func() time.Time
}

func NewServiceHandler(store ServiceStore) (*ServiceHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("service store is required")
	}
	return &ServiceHandler{store: store, now: time.Now}, nil
}

func RegisterServiceRoutes(router fiber.Router, store ServiceStore) error {
	h, err := NewServiceHandler(store)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/services", h.CreateService)
	v1.Get("/services", h.ListServices)
	v1.Get("/services/:id", h.GetService)
	v1.Patch("/services/:id", h.UpdateService)
	v1.Delete("/services/:id", h.DeleteService)

	return nil
}

type createServiceRequest struct {
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Kind             string `json:"kind"`
	Target           string `json:"target"`
	CheckIntervalSec *int   `json:"check_interval_sec"`
	TimeoutSec       *int   `json:"timeout_sec"`
	Enabled          *bool  `json:"enabled"`
	AlertOnDown      *bool  `json:"alert_on_down"`
	AlertOnRecovery  *bool  `json:"alert_on_recovery"`
}

type updateServiceRequest struct {
	Name             *string `json:"name"`
	Kind             *string `json:"kind"`
	Target           *string `json:"target"`
	CheckIntervalSec *int    `json:"check_interval_sec"`
	TimeoutSec       *int    `json:"timeout_sec"`
	Enabled          *bool   `json:"enabled"`
	AlertOnDown      *bool   `json:"alert_on_down"`
	AlertOnRecovery  *bool   `json:"alert_on_recovery"`
}

type serviceResponse struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Slug             string              `json:"slug"`
	Kind             string              `json:"kind"`
	Target           string              `json:"target"`
	CheckIntervalSec int                 `json:"check_interval_sec"`
	TimeoutSec       int                 `json:"timeout_sec"`
	Enabled          bool                `json:"enabled"`
	AlertOnDown      bool                `json:"alert_on_down"`
	AlertOnRecovery  bool                `json:"alert_on_recovery"`
	Status           *serviceStatusView  `json:"status,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type serviceStatusView struct {
	IsUp                bool       `json:"is_up"`
	LatencyMS           *float64   `json:"latency_ms"`
	LastCheckedAt       *time.Time `json:"last_checked_at"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastChangeAt        *time.Time `json:"last_change_at"`
}

func (h *ServiceHandler) CreateService(c *fiber.Ctx) error {
	var req createServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	now := h.now().UTC()
	service := domain.Service{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(req.Name),
		Slug:             strings.ToLower(strings.TrimSpace(req.Slug)),
		Kind:             domain.ServiceKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Target:           strings.TrimSpace(req.Target),
		CheckIntervalSec: defaultCheckIntervalSec,
		TimeoutSec:       defaultTimeoutSec,
		Enabled:          true,
		AlertOnDown:      true,
		AlertOnRecovery:  true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.CheckIntervalSec != nil {
		service.CheckIntervalSec = *req.CheckIntervalSec
	}
	if req.TimeoutSec != nil {
		service.TimeoutSec = *req.TimeoutSec
	}
	if req.Enabled != nil {
		service.Enabled = *req.Enabled
	}
	if req.AlertOnDown != nil {
		service.AlertOnDown = *req.AlertOnDown
	}
	if req.AlertOnRecovery != nil {
		service.AlertOnRecovery = *req.AlertOnRecovery
	}

	if err := service.Validate(); err != nil {
		return toHTTPError(err)
	}
	if existing, err := h.store.GetBySlug(c.Context(), service.Slug); err == nil && existing != nil {
		return toHTTPError(fmt.Errorf("%w: slug %q already exists", domain.ErrConflict, service.Slug))
	}
	if err := h.store.Create(c.Context(), &service); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.toServiceResponse(c.Context(), &service))
}

func (h *ServiceHandler) ListServices(c *fiber.Ctx) error {
	services, err := h.store.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]serviceResponse, 0, len(services))
	for i := range services {
		responses = append(responses, h.toServiceResponse(c.Context(), &services[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *ServiceHandler) GetService(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	service, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(h.toServiceResponse(c.Context(), service))
}

func (h *ServiceHandler) UpdateService(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req updateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	service, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	if req.Name != nil {
		service.Name = strings.TrimSpace(*req.Name)
	}
	if req.Kind != nil {
		kind, err := domain.ParseServiceKindFromString(*req.Kind)
		if err != nil {
			return toHTTPError(err)
		}
		service.Kind = kind
	}
	if req.Target != nil {
		service.Target = strings.TrimSpace(*req.Target)
	}
	if req.CheckIntervalSec != nil {
		service.CheckIntervalSec = *req.CheckIntervalSec
	}
	if req.TimeoutSec != nil {
		service.TimeoutSec = *req.TimeoutSec
	}
	if req.Enabled != nil {
		service.Enabled = *req.Enabled
	}
	if req.AlertOnDown != nil {
		service.AlertOnDown = *req.AlertOnDown
	}
	if req.AlertOnRecovery != nil {
		service.AlertOnRecovery = *req.AlertOnRecovery
	}
	service.UpdatedAt = h.now().UTC()

	if err := service.Validate(); err != nil {
		return toHTTPError(err)
	}
	if err := h.store.Update(c.Context(), service); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(h.toServiceResponse(c.Context(), service))
}

func (h *ServiceHandler) DeleteService(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.store.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ServiceHandler) toServiceResponse(ctx context.Context, s *domain.Service) serviceResponse {
	if s == nil {
		return serviceResponse{}
	}

	resp := serviceResponse{
		ID:               s.ID,
		Name:             s.Name,
		Slug:             s.Slug,
		Kind:             s.Kind.String(),
		Target:           s.Target,
		CheckIntervalSec: s.CheckIntervalSec,
		TimeoutSec:       s.TimeoutSec,
		Enabled:          s.Enabled,
		AlertOnDown:      s.AlertOnDown,
		AlertOnRecovery:  s.AlertOnRecovery,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}

	if status, err := h.store.GetStatus(ctx, s.ID); err == nil && status != nil {
		resp.Status = &serviceStatusView{
			IsUp:                status.IsUp,
			LatencyMS:           status.LatencyMS,
			LastCheckedAt:       status.LastCheckedAt,
			ConsecutiveFailures: status.ConsecutiveFailures,
			LastChangeAt:        status.LastChangeAt,
		}
	}

	return resp
}
