package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"needthisdone-payments/apperr"
	"needthisdone-payments/middlewares"
	"needthisdone-payments/models"
	"needthisdone-payments/utils"
)

type createOrderRequest struct {
	// Admins create orders for any customer; customers always for themselves.
	CustomerEmail string `json:"customer_email" validate:"omitempty,email,max=255" normalize:"lower"`
	Currency      string `json:"currency" validate:"omitempty,len=3,alpha"`
	Total         string `json:"total" validate:"required"`
	DepositAmount string `json:"deposit_amount" validate:"required"`
}

// paymentFieldsRequest is a full replacement of the deposit split. Omitted
// fields are reported as MISSING_PAYMENT_FIELDS.
type paymentFieldsRequest struct {
	DepositAmount    *string `json:"deposit_amount"`
	BalanceRemaining *string `json:"balance_remaining"`
	Total            *string `json:"total"`
}

// orderResponse adds display amounts next to the cent values.
type orderResponse struct {
	*models.Order
	Amounts map[string]string `json:"amounts"`
}

func newOrderResponse(o *models.Order) orderResponse {
	return orderResponse{
		Order: o,
		Amounts: map[string]string{
			"total":             utils.FormatCents(o.Total),
			"deposit_amount":    utils.FormatCents(o.DepositAmount),
			"balance_remaining": utils.FormatCents(o.BalanceRemaining),
			"balance_collected": utils.FormatCents(o.BalanceCollected),
			"outstanding":       utils.FormatCents(o.Outstanding()),
		},
	}
}

func parseAmount(field, raw string) (int64, error) {
	cents, err := utils.ParseAmountCents(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("invalid %s: %v", field, err))
	}
	return cents, nil
}

func parseOptionalAmount(field string, raw *string) (*int64, error) {
	if raw == nil {
		return nil, nil
	}
	cents, err := parseAmount(field, *raw)
	if err != nil {
		return nil, err
	}
	return &cents, nil
}

func (h *Controller) CreateOrder(c *fiber.Ctx) error {
	var data createOrderRequest
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}

	total, err := parseAmount("total", data.Total)
	if err != nil {
		return err
	}
	deposit, err := parseAmount("deposit_amount", data.DepositAmount)
	if err != nil {
		return err
	}

	email := middlewares.UserEmail(c)
	if middlewares.IsAdmin(c) {
		if data.CustomerEmail == "" {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "customer_email is required")
		}
		email = data.CustomerEmail
	}
	currency := strings.ToUpper(data.Currency)
	if currency == "" {
		currency = "USD"
	}

	order := &models.Order{
		CustomerEmail:    email,
		Currency:         currency,
		Total:            total,
		DepositAmount:    deposit,
		BalanceRemaining: total - deposit,
	}
	if err := h.payments.CreateOrder(c.UserContext(), order); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newOrderResponse(order))
}

// loadOrder returns the order if the caller may see it. Customers only see
// their own orders; anything else is reported as not found.
func (h *Controller) loadOrder(c *fiber.Ctx) (*models.Order, error) {
	order, err := h.payments.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if !middlewares.IsAdmin(c) && !strings.EqualFold(order.CustomerEmail, middlewares.UserEmail(c)) {
		return nil, apperr.ErrOrderNotFound
	}
	return order, nil
}

func (h *Controller) GetOrder(c *fiber.Ctx) error {
	order, err := h.loadOrder(c)
	if err != nil {
		return err
	}
	return c.JSON(newOrderResponse(order))
}

func (h *Controller) UpdatePaymentFields(c *fiber.Ctx) error {
	var data paymentFieldsRequest
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}

	var fields models.PaymentFields
	var err error
	if fields.DepositAmount, err = parseOptionalAmount("deposit_amount", data.DepositAmount); err != nil {
		return err
	}
	if fields.BalanceRemaining, err = parseOptionalAmount("balance_remaining", data.BalanceRemaining); err != nil {
		return err
	}
	if fields.Total, err = parseOptionalAmount("total", data.Total); err != nil {
		return err
	}

	order, err := h.payments.UpdatePaymentFields(c.UserContext(), c.Params("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(newOrderResponse(order))
}

func (h *Controller) MarkReadyForDelivery(c *fiber.Ctx) error {
	order, err := h.payments.MarkReadyForDelivery(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newOrderResponse(order))
}
