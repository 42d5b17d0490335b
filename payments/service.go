package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"needthisdone-payments/apperr"
	"needthisdone-payments/models"
)

// Payment methods that are settled on the spot by the collecting admin.
// Anything else is settled later by the provider webhook.
var manualMethods = map[string]bool{
	"cash":   true,
	"check":  true,
	"manual": true,
}

func IsManualMethod(method string) bool { return manualMethods[method] }

// CollectRequest asks to charge (part of) the outstanding balance of an order.
type CollectRequest struct {
	OrderID        string
	AmountCents    int64
	PaymentMethod  string
	IdempotencyKey string
	AdminID        string
}

// Collection is the result of a collect or settle call.
type Collection struct {
	Attempt *models.PaymentAttempt `json:"attempt"`
	Order   *models.Order          `json:"order"`
	// Replayed is true when the idempotency key matched an earlier attempt.
	Replayed bool `json:"replayed"`
}

// Service ties the ledger to the order payment fields.
type Service struct {
	ledger  *Ledger
	orders  OrderRepository
	timeout time.Duration
	log     *zap.Logger
}

func NewService(ledger *Ledger, orders OrderRepository, timeout time.Duration, log *zap.Logger) *Service {
	if ledger == nil || orders == nil {
		panic("payments.NewService: nil dependency")
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{ledger: ledger, orders: orders, timeout: timeout, log: log}
}

func (s *Service) Ledger() *Ledger { return s.ledger }

// CreateOrder validates the deposit split and stores a new order.
func (s *Service) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := s.validate(ValidateDepositPaymentFields(order.PaymentFields())); err != nil {
		return err
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusPending
	}
	order.FinalPaymentStatus = models.FinalPaymentPending

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.orders.Create(ctx, order); err != nil {
		return apperr.Store(fmt.Errorf("create order: %w", err))
	}
	return nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return order, nil
}

// UpdatePaymentFields validates and writes a new deposit split. Nothing is
// written when validation fails.
func (s *Service) UpdatePaymentFields(ctx context.Context, id string, f models.PaymentFields) (*models.Order, error) {
	if err := s.validate(ValidateDepositPaymentFields(f)); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.orders.UpdatePaymentFields(ctx, id, *f.DepositAmount, *f.BalanceRemaining, *f.Total)
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("update payment fields: %w", err))
	}
	if !ok {
		return nil, apperr.ErrPaymentAlreadyProcessed
	}
	return s.GetOrder(ctx, id)
}

// MarkReadyForDelivery checks the final-payment prerequisites and flags the
// order so the balance can be requested.
func (s *Service) MarkReadyForDelivery(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ValidateReadyForDeliveryPrerequisites(order.PaymentFields())); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.orders.MarkReadyForDelivery(ctx, id)
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("mark ready for delivery: %w", err))
	}
	if !ok {
		return nil, apperr.ErrPaymentAlreadyProcessed
	}
	return s.GetOrder(ctx, id)
}

// CollectBalance records an attempt to charge the outstanding balance.
//
// Manual methods settle immediately. Card attempts stay processing until the
// provider reports back through Settle. A repeated idempotency key returns the
// earlier attempt and writes nothing.
func (s *Service) CollectBalance(ctx context.Context, req CollectRequest) (*Collection, error) {
	order, err := s.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if err := s.checkCollectable(order, req.AmountCents); err != nil {
		// A replay of a collection that already went through fails the balance
		// checks; answer it with the original attempt instead.
		if req.IdempotencyKey != "" {
			if prior, lerr := s.ledger.FindByIdempotencyKey(ctx, req.IdempotencyKey); lerr == nil && prior.OrderID == req.OrderID {
				return &Collection{Attempt: prior, Order: order, Replayed: true}, nil
			}
		}
		return nil, err
	}

	attempt, created, err := s.ledger.CreateAttempt(ctx, NewAttempt{
		OrderID:            req.OrderID,
		PaymentMethod:      req.PaymentMethod,
		AmountCents:        req.AmountCents,
		IdempotencyKey:     req.IdempotencyKey,
		CollectedByAdminID: req.AdminID,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		if attempt.OrderID != req.OrderID {
			return nil, &apperr.Error{
				Code:    apperr.CodeIdempotencyKeyReused,
				Message: fmt.Sprintf("idempotency key %q belongs to another order", req.IdempotencyKey),
			}
		}
		return &Collection{Attempt: attempt, Order: order, Replayed: true}, nil
	}

	if !IsManualMethod(req.PaymentMethod) {
		return &Collection{Attempt: attempt, Order: order}, nil
	}
	settled, err := s.ledger.settleAttempt(ctx, attempt.ID, AttemptUpdate{Status: models.AttemptSucceeded})
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, settled)
}

// Settle closes the latest attempt of the order and, on success, applies the
// amount to the order balance.
func (s *Service) Settle(ctx context.Context, orderID string, upd AttemptUpdate) (*Collection, error) {
	attempt, err := s.ledger.UpdateAttempt(ctx, orderID, upd)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, attempt)
}

// apply moves the amount of a settled attempt onto its order. Failed attempts
// leave the order untouched.
//
// A succeeded attempt that cannot be applied means money moved that the order
// cannot absorb. It is logged for manual reconciliation and reported as
// PAYMENT_ALREADY_PROCESSED; it is never retried here.
func (s *Service) apply(ctx context.Context, attempt *models.PaymentAttempt) (*Collection, error) {
	orderID := attempt.OrderID
	if attempt.Status != models.AttemptSucceeded {
		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return &Collection{Attempt: attempt, Order: order}, nil
	}

	applyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	applied, err := s.orders.ApplyCollection(applyCtx, orderID, attempt.AmountCents, *attempt.SucceededAt)
	if err != nil {
		reconciliationNeeded.WithLabelValues("apply_collection").Inc()
		s.log.Error("succeeded payment not applied to order, reconcile manually",
			zap.String("order_id", orderID),
			zap.String("attempt_id", attempt.ID),
			zap.Int64("amount_cents", attempt.AmountCents),
			zap.Error(err),
		)
		return nil, apperr.Store(fmt.Errorf("apply collection: %w", err))
	}
	if !applied {
		reconciliationNeeded.WithLabelValues("apply_collection").Inc()
		s.log.Error("succeeded payment exceeds order balance, reconcile manually",
			zap.String("order_id", orderID),
			zap.String("attempt_id", attempt.ID),
			zap.Int64("amount_cents", attempt.AmountCents),
		)
		return nil, apperr.ErrPaymentAlreadyProcessed
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.FinalPaymentStatus == models.FinalPaymentPaid {
		s.log.Info("final payment collected", zap.String("order_id", orderID))
	}
	return &Collection{Attempt: attempt, Order: order}, nil
}

func (s *Service) checkCollectable(order *models.Order, amount int64) error {
	if err := s.validate(ValidateReadyForDeliveryPrerequisites(order.PaymentFields())); err != nil {
		return err
	}
	if !ValidateChargeAmountNotExceedsBalance(amount, order.Outstanding()) {
		return s.validate(result([]apperr.Code{apperr.CodeChargeExceedsBalance}))
	}
	return nil
}

func (s *Service) validate(r Result) error {
	for _, c := range r.Errors {
		validationFailures.WithLabelValues(string(c)).Inc()
	}
	err := r.Err()
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		s.log.Debug("payment validation failed", zap.Any("codes", ve.Codes))
	}
	return err
}
