package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"needthisdone-payments/apperr"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		// 2) Request validation errors (422 + per-field info)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := make(map[string]string, len(ve))
			for _, fe := range ve {
				out[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  out,
			})
		}

		// 3) Payment invariant violations (422 + codes)
		var pe *apperr.ValidationError
		if errors.As(err, &pe) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"message": "payment validation failed",
				"errors":  pe.Codes,
			})
		}

		// 4) Coded domain errors
		status := apperr.HTTPStatus(err)
		if code := apperr.CodeOf(err); code != "" && status != fiber.StatusInternalServerError {
			if status >= fiber.StatusInternalServerError {
				log.Warn("request failed on backing store",
					zap.String("path", c.Path()),
					zap.String("code", string(code)),
					zap.Error(err),
				)
			}
			var ae *apperr.Error
			errors.As(err, &ae)
			return c.Status(status).JSON(fiber.Map{
				"message": ae.Message,
				"code":    code,
			})
		}

		// 5) Unknown errors (500)
		log.Error("internal error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
		})
	}
}
