package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"needthisdone-payments/apperr"
)

func TestErrorHandler(t *testing.T) {
	type probe struct {
		Name string `validate:"required"`
	}

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"fiber error", fiber.NewError(fiber.StatusBadRequest, "bad"), fiber.StatusBadRequest, ""},
		{"request validation", ValidateStruct(probe{}), fiber.StatusUnprocessableEntity, ""},
		{"payment validation", apperr.Validation(apperr.CodeAmountMismatch), fiber.StatusUnprocessableEntity, ""},
		{"duplicate", apperr.ErrDuplicateRequest, fiber.StatusConflict, "DUPLICATE_REQUEST"},
		{"not found", fmt.Errorf("load: %w", apperr.ErrOrderNotFound), fiber.StatusNotFound, "ORDER_NOT_FOUND"},
		{"transition", apperr.ErrInvalidAttemptTransition, fiber.StatusConflict, "INVALID_ATTEMPT_TRANSITION"},
		{"key reused", apperr.ErrIdempotencyKeyReused, fiber.StatusConflict, "IDEMPOTENCY_KEY_REUSED"},
		{"store down", apperr.Store(errors.New("dial tcp: refused")), fiber.StatusServiceUnavailable, "STORE_UNREACHABLE"},
		{"store timeout", apperr.Store(context.DeadlineExceeded), fiber.StatusGatewayTimeout, "STORE_UNREACHABLE"},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
			app.Get("/", func(c *fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["message"])
			if tc.code != "" {
				assert.Equal(t, tc.code, body["code"])
			}
		})
	}
}

func TestErrorHandler_HidesInternalDetails(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	app.Get("/", func(c *fiber.Ctx) error { return errors.New("pq: password authentication failed") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "internal server error", body["message"])
}

func TestErrorHandler_PaymentCodesListed(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	app.Get("/", func(c *fiber.Ctx) error {
		return apperr.Validation(apperr.CodePaymentAlreadyProcessed, apperr.CodeNoBalanceRemaining)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"PAYMENT_ALREADY_PROCESSED", "NO_BALANCE_REMAINING"}, body.Errors)
}
