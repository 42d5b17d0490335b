package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"needthisdone-payments/middlewares"
	"needthisdone-payments/models"
	"needthisdone-payments/payments"
	"needthisdone-payments/utils"
)

type collectRequest struct {
	Amount        string `json:"amount" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash check manual card" normalize:"lower"`
}

type collectionResponse struct {
	Attempt  *models.PaymentAttempt `json:"attempt"`
	Order    orderResponse          `json:"order"`
	Replayed bool                   `json:"replayed"`
}

func newCollectionResponse(res *payments.Collection) collectionResponse {
	return collectionResponse{
		Attempt:  res.Attempt,
		Order:    newOrderResponse(res.Order),
		Replayed: res.Replayed,
	}
}

// CollectBalance charges (part of) the outstanding balance. The
// Idempotency-Key header becomes the attempt's key, so a retried request
// returns the original attempt with 200 instead of 201.
func (h *Controller) CollectBalance(c *fiber.Ctx) error {
	var data collectRequest
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}
	amount, err := parseAmount("amount", data.Amount)
	if err != nil {
		return err
	}

	res, err := h.payments.CollectBalance(c.UserContext(), payments.CollectRequest{
		OrderID:        c.Params("id"),
		AmountCents:    amount,
		PaymentMethod:  data.PaymentMethod,
		IdempotencyKey: strings.TrimSpace(c.Get("Idempotency-Key")),
		AdminID:        middlewares.UserID(c),
	})
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(newCollectionResponse(res))
}

// ListPaymentAttempts returns the attempt history, oldest first. ?limit=N keeps
// only the N most recent.
func (h *Controller) ListPaymentAttempts(c *fiber.Ctx) error {
	order, err := h.loadOrder(c)
	if err != nil {
		return err
	}
	attempts, err := h.payments.Ledger().GetAttempts(c.UserContext(), order.ID)
	if err != nil {
		return err
	}
	if limit := utils.ParseIntDefault(c.Query("limit"), 0); limit > 0 && limit < len(attempts) {
		attempts = attempts[len(attempts)-limit:]
	}
	return c.JSON(fiber.Map{"attempts": attempts})
}

// UpdateLatestAttempt settles the latest attempt by hand, e.g. after checking
// the provider dashboard.
func (h *Controller) UpdateLatestAttempt(c *fiber.Ctx) error {
	var data payments.AttemptUpdate
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}
	res, err := h.payments.Settle(c.UserContext(), c.Params("id"), data)
	if err != nil {
		return err
	}
	return c.JSON(newCollectionResponse(res))
}
