package middlewares

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"needthisdone-payments/apperr"
	"needthisdone-payments/dedup"
)

const maxIdempotencyKeyLen = 128

// DedupConfig configures the Dedup middleware.
type DedupConfig struct {
	Guard *dedup.Guard
	// Label names the operation in logs and metrics.
	Label string
	// FailOpen lets requests through when the dedup store is unreachable.
	// When false they are rejected with 503.
	FailOpen bool
	Log      *zap.Logger
}

// Dedup rejects a mutating request that repeats one admitted within the guard's
// TTL. The fingerprint covers method, path, the canonical JSON body and the
// Idempotency-Key header, scoped to the authenticated user, so run it AFTER
// IsAuthenticatedHeader().
//
// If the handler fails with anything but a validation error the marker is
// cleared, so an immediate retry is not mistaken for a duplicate.
func Dedup(cfg DedupConfig) fiber.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		fp, err := dedup.CreateFingerprint(map[string]any{
			"method":          method,
			"path":            c.Path(),
			"body":            dedup.CanonicalBody(c.Body()),
			"idempotency_key": key,
		}, UserID(c))
		if err != nil {
			return err
		}

		admitted, err := cfg.Guard.CheckAndMark(c.UserContext(), fp, cfg.Label)
		if err != nil {
			if cfg.FailOpen {
				log.Warn("dedup unavailable, admitting request",
					zap.String("label", cfg.Label),
					zap.String("path", c.Path()),
				)
				return c.Next()
			}
			return err
		}
		if !admitted {
			return apperr.ErrDuplicateRequest
		}

		// picked up by RequestLogger
		c.Locals("fingerprint", fp)
		if err := c.Next(); err != nil {
			if !isValidationFailure(err) {
				// best-effort: the marker expires with its TTL anyway
				_ = cfg.Guard.Clear(c.UserContext(), fp)
			}
			return err
		}
		return nil
	}
}

func isValidationFailure(err error) bool {
	var ve validator.ValidationErrors
	var pe *apperr.ValidationError
	return errors.As(err, &ve) || errors.As(err, &pe)
}
