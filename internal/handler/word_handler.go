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

type WordStore interface {
	Create(ctx context.Context, w *domain.Word) error
	GetByID(ctx context.Context, id string) (*domain.Word, error)
	GetByWord(ctx context.Context, word string) (*domain.Word, error)
	List(ctx context.Context) ([]domain.Word, error)
	Update(ctx context.Context, w *domain.Word) error
	Delete(ctx context.Context, id string) error
}

type WordHandler struct {
	store WordStore
	now   func() time.Time
}

func NewWordHandler(store WordStore) (*WordHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("word store is required")
	}
	return &WordHandler{store: store, now: time.Now}, nil
}

func RegisterWordRoutes(router fiber.Router, store WordStore) error {
	h, err := NewWordHandler(store)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/words", h.CreateWord)
	v1.Get("/words", h.ListWords)
	v1.Get("/words/:id", h.GetWord)
	v1.Patch("/words/:id", h.UpdateWord)
	v1.Delete("/words/:id", h.DeleteWord)

	return nil
}

type createWordRequest struct {
	Word       string  `json:"word"`
	Definition string  `json:"definition"`
	ExtraJSON  *string `json:"extra_json"`
	Active     *bool   `json:"active"`
}

type updateWordRequest struct {
	Word       *string `json:"word"`
	Definition *string `json:"definition"`
	ExtraJSON  *string `json:"extra_json"`
	Active     *bool   `json:"active"`
}

type wordResponse struct {
	ID         string    `json:"id"`
	Word       string    `json:"word"`
	Definition string    `json:"definition"`
	ExtraJSON  *string   `json:"extra_json,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *WordHandler) CreateWord(c *fiber.Ctx) error {
	var req createWordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	now := h.now().UTC()
	word := domain.Word{
		ID:         uuid.NewString(),
		Word:       strings.TrimSpace(req.Word),
		Definition: strings.TrimSpace(req.Definition),
		ExtraJSON:  req.ExtraJSON,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Active != nil {
		word.Active = *req.Active
	}

	if err := word.Validate(); err != nil {
		return toHTTPError(err)
	}
	if existing, err := h.store.GetByWord(c.Context(), word.Word); err == nil && existing != nil {
		return toHTTPError(fmt.Errorf("%w: word %q already exists", domain.ErrConflict, word.Word))
	}
	if err := h.store.Create(c.Context(), &word); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toWordResponse(&word))
}

func (h *WordHandler) ListWords(c *fiber.Ctx) error {
	words, err := h.store.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]wordResponse, 0, len(words))
	for i := range words {
		responses = append(responses, toWordResponse(&words[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *WordHandler) GetWord(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	word, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toWordResponse(word))
}

func (h *WordHandler) UpdateWord(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req updateWordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	word, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	if req.Word != nil {
		word.Word = strings.TrimSpace(*req.Word)
	}
	if req.Definition != nil {
		word.Definition = strings.TrimSpace(*req.Definition)
	}
	if req.ExtraJSON != nil {
		word.ExtraJSON = req.ExtraJSON
	}
	if req.Active != nil {
		word.Active = *req.Active
	}
	word.UpdatedAt = h.now().UTC()

	if err := word.Validate(); err != nil {
		return toHTTPError(err)
	}
	if err := h.store.Update(c.Context(), word); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toWordResponse(word))
}

func (h *WordHandler) DeleteWord(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.store.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toWordResponse(w *domain.Word) wordResponse {
	if w == nil {
		return wordResponse{}
	}
	return wordResponse{
		ID:         w.ID,
		Word:       w.Word,
		Definition: w.Definition,
		ExtraJSON:  w.ExtraJSON,
		Active:     w.Active,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}
