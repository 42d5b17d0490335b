// Package payments records payment attempts against orders and enforces the
// deposit/balance invariants around them.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"needthisdone-payments/apperr"
	"needthisdone-payments/models"
)

const defaultStoreTimeout = 2 * time.Second

// NewAttempt describes a charge about to be made.
type NewAttempt struct {
	OrderID            string
	PaymentMethod      string
	AmountCents        int64
	IdempotencyKey     string
	CollectedByAdminID string
	Metadata           datatypes.JSON
}

// AttemptUpdate is the settlement reported for the latest attempt of an order.
type AttemptUpdate struct {
	Status          models.AttemptStatus `json:"status" validate:"required,oneof=succeeded failed"`
	DeclineCode     *string              `json:"decline_code" validate:"omitempty,max=100"`
	ErrorMessage    *string              `json:"error_message" validate:"omitempty,max=2000"`
	PaymentIntentID *string              `json:"payment_intent_id" validate:"omitempty,max=255"`
}

// Ledger is the audit trail of payment attempts.
type Ledger struct {
	repo    AttemptRepository
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// NewLedger panics if repo is nil. A non-positive timeout selects the default.
func NewLedger(repo AttemptRepository, timeout time.Duration, log *zap.Logger) *Ledger {
	if repo == nil {
		panic("payments.NewLedger: nil repository")
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		repo:    repo,
		timeout: timeout,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateAttempt records a processing attempt. When in.IdempotencyKey is set and
// already used, the existing attempt is returned unchanged with created=false.
//
// A store error here means the attempt may or may not exist. Callers must not
// go on to charge, and must not blindly retry with a new key.
func (l *Ledger) CreateAttempt(ctx context.Context, in NewAttempt) (*models.PaymentAttempt, bool, error) {
	if in.OrderID == "" || in.PaymentMethod == "" {
		return nil, false, fmt.Errorf("create payment attempt: order id and payment method are required")
	}
	if in.AmountCents <= 0 {
		return nil, false, fmt.Errorf("create payment attempt: amount must be positive, got %d", in.AmountCents)
	}

	attempt := &models.PaymentAttempt{
		OrderID:       in.OrderID,
		PaymentMethod: in.PaymentMethod,
		AmountCents:   in.AmountCents,
		Status:        models.AttemptProcessing,
		Metadata:      in.Metadata,
		AttemptedAt:   l.now(),
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		attempt.IdempotencyKey = &key
	}
	if in.CollectedByAdminID != "" {
		admin := in.CollectedByAdminID
		attempt.CollectedByAdminID = &admin
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	stored, created, err := l.repo.Insert(ctx, attempt)
	if err != nil {
		reconciliationNeeded.WithLabelValues("create_attempt").Inc()
		l.log.Error("payment attempt outcome unknown, reconcile before charging",
			zap.String("order_id", in.OrderID),
			zap.String("idempotency_key", in.IdempotencyKey),
			zap.Error(err),
		)
		return nil, false, apperr.Store(fmt.Errorf("create payment attempt: %w", err))
	}

	if created {
		attemptsCreated.WithLabelValues(in.PaymentMethod, "created").Inc()
		l.log.Info("payment attempt created",
			zap.String("order_id", stored.OrderID),
			zap.String("attempt_id", stored.ID),
			zap.Int("attempt_number", stored.AttemptNumber),
			zap.Int64("amount_cents", stored.AmountCents),
		)
	} else {
		attemptsCreated.WithLabelValues(in.PaymentMethod, "replayed").Inc()
		l.log.Info("payment attempt replayed by idempotency key",
			zap.String("order_id", stored.OrderID),
			zap.String("attempt_id", stored.ID),
			zap.String("idempotency_key", in.IdempotencyKey),
		)
	}
	return stored, created, nil
}

// UpdateAttempt settles the most recent attempt of the order. Only a
// processing attempt can move; a settled one yields
// apperr.ErrInvalidAttemptTransition and no attempt at all yields
// apperr.ErrAttemptNotFound.
func (l *Ledger) UpdateAttempt(ctx context.Context, orderID string, upd AttemptUpdate) (*models.PaymentAttempt, error) {
	if !upd.Status.Terminal() {
		return nil, fmt.Errorf("update payment attempt: status %q is not terminal", upd.Status)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	latest, err := l.repo.Latest(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrAttemptNotFound) {
			return nil, &apperr.Error{
				Code:    apperr.CodeAttemptNotFound,
				Message: fmt.Sprintf("no payment attempt for order %s", orderID),
			}
		}
		return nil, apperr.Store(fmt.Errorf("update payment attempt: %w", err))
	}
	return l.settle(ctx, latest.ID, upd)
}

// settleAttempt settles the attempt with the given id, whatever its position
// in the order history.
func (l *Ledger) settleAttempt(ctx context.Context, attemptID string, upd AttemptUpdate) (*models.PaymentAttempt, error) {
	if !upd.Status.Terminal() {
		return nil, fmt.Errorf("settle payment attempt: status %q is not terminal", upd.Status)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.settle(ctx, attemptID, upd)
}

func (l *Ledger) settle(ctx context.Context, attemptID string, upd AttemptUpdate) (*models.PaymentAttempt, error) {
	applied, err := l.repo.Settle(ctx, attemptID, Settlement{
		Status:          upd.Status,
		DeclineCode:     upd.DeclineCode,
		ErrorMessage:    upd.ErrorMessage,
		PaymentIntentID: upd.PaymentIntentID,
		At:              l.now(),
	})
	if err != nil {
		reconciliationNeeded.WithLabelValues("settle_attempt").Inc()
		return nil, apperr.Store(fmt.Errorf("settle payment attempt %s: %w", attemptID, err))
	}
	if !applied {
		return nil, &apperr.Error{
			Code:    apperr.CodeInvalidAttemptTransition,
			Message: fmt.Sprintf("payment attempt %s is no longer processing", attemptID),
		}
	}

	attemptsSettled.WithLabelValues(string(upd.Status)).Inc()
	settled, err := l.repo.Get(ctx, attemptID)
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("reload payment attempt %s: %w", attemptID, err))
	}

	fields := []zap.Field{
		zap.String("order_id", settled.OrderID),
		zap.String("attempt_id", settled.ID),
		zap.String("status", string(settled.Status)),
	}
	if settled.DeclineCode != nil {
		fields = append(fields, zap.String("decline_code", *settled.DeclineCode))
	}
	l.log.Info("payment attempt settled", fields...)
	return settled, nil
}

// FindByIdempotencyKey looks up the attempt that owns key.
func (l *Ledger) FindByIdempotencyKey(ctx context.Context, key string) (*models.PaymentAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	attempt, err := l.repo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return attempt, nil
}

// GetAttempts returns the attempt history of an order, oldest first.
func (l *Ledger) GetAttempts(ctx context.Context, orderID string) ([]models.PaymentAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	attempts, err := l.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("list payment attempts: %w", err))
	}
	return attempts, nil
}
