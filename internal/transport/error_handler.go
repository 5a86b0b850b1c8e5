package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/minervahome/brain/internal/domain"
	"go.uber.org/zap"
)

// ErrorHandler maps domain sentinel errors to HTTP status codes and keeps
// the response body to a single error message.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
		case errors.Is(err, domain.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, domain.ErrValidation):
			code = fiber.StatusBadRequest
		case errors.Is(err, domain.ErrConflict):
			code = fiber.StatusConflict
		}

		logFn := logger.Error
		if code < fiber.StatusInternalServerError {
			logFn = logger.Warn
		}
		logFn("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
