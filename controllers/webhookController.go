package controllers

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"needthisdone-payments/apperr"
	"needthisdone-payments/dedup"
	"needthisdone-payments/middlewares"
	"needthisdone-payments/models"
	"needthisdone-payments/payments"
)

const webhookLabel = "payment_webhook"

// paymentEvent is the settlement callback sent by the payment provider.
type paymentEvent struct {
	EventID         string               `json:"event_id" validate:"required,max=255"`
	OrderID         string               `json:"order_id" validate:"required,max=36"`
	Status          models.AttemptStatus `json:"status" validate:"required,oneof=succeeded failed"`
	DeclineCode     *string              `json:"decline_code" validate:"omitempty,max=100"`
	ErrorMessage    *string              `json:"error_message" validate:"omitempty,max=2000"`
	PaymentIntentID *string              `json:"payment_intent_id" validate:"omitempty,max=255"`
}

// PaymentWebhook settles the latest attempt of an order from a provider event.
//
// Providers redeliver until they get a 2xx, so every event id is processed at
// most once per dedup window: a redelivery is acknowledged without touching
// the ledger. When the settlement fails on the store the marker is released so
// the next redelivery is processed.
func (h *Controller) PaymentWebhook(c *fiber.Ctx) error {
	if h.webhookSecret == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "webhooks not configured")
	}
	if subtle.ConstantTimeCompare([]byte(c.Get("X-Webhook-Secret")), []byte(h.webhookSecret)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook secret")
	}

	var ev paymentEvent
	if err := middlewares.BindAndValidate(c, &ev); err != nil {
		return err
	}

	fp, err := dedup.CreateFingerprint(map[string]string{"event_id": ev.EventID}, webhookLabel)
	if err != nil {
		return err
	}
	// Unknown outcome: fail closed, the provider will redeliver.
	admitted, err := h.guard.CheckAndMark(c.UserContext(), fp, webhookLabel)
	if err != nil {
		return err
	}
	if !admitted {
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	res, err := h.payments.Settle(c.UserContext(), ev.OrderID, payments.AttemptUpdate{
		Status:          ev.Status,
		DeclineCode:     ev.DeclineCode,
		ErrorMessage:    ev.ErrorMessage,
		PaymentIntentID: ev.PaymentIntentID,
	})
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "processed", "attempt": res.Attempt})

	case errors.Is(err, apperr.ErrInvalidAttemptTransition):
		h.log.Info("webhook for settled attempt ignored",
			zap.String("event_id", ev.EventID),
			zap.String("order_id", ev.OrderID),
		)
		return c.JSON(fiber.Map{"status": "ignored"})

	case errors.Is(err, apperr.ErrStoreUnreachable):
		if cerr := h.guard.Clear(c.UserContext(), fp); cerr != nil {
			h.log.Warn("webhook marker kept, redelivery will be rejected until it expires",
				zap.String("event_id", ev.EventID),
			)
		}
		return err

	default:
		return err
	}
}
