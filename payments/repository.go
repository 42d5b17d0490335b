package payments

import (
	"context"
	"time"

	"needthisdone-payments/models"
)

// Settlement is the terminal state written onto an attempt.
type Settlement struct {
	Status          models.AttemptStatus `json:"-"`
	DeclineCode     *string              `json:"decline_code"`
	ErrorMessage    *string              `json:"error_message"`
	PaymentIntentID *string              `json:"payment_intent_id"`
	At              time.Time            `json:"-"`
}

// AttemptRepository persists payment attempts.
//
// Implementations must make Insert atomic on the idempotency key: two concurrent
// inserts with the same key produce one row, and both callers get that row back.
// Settle must be a compare-and-set from processing.
type AttemptRepository interface {
	// Insert stores attempt, assigning AttemptNumber. If attempt.IdempotencyKey
	// is already taken the stored attempt is returned with created=false.
	Insert(ctx context.Context, attempt *models.PaymentAttempt) (stored *models.PaymentAttempt, created bool, err error)

	// Get returns apperr.ErrAttemptNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.PaymentAttempt, error)

	// GetByIdempotencyKey returns apperr.ErrAttemptNotFound for an unused key.
	GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentAttempt, error)

	// Latest returns the most recently created attempt for the order, or
	// apperr.ErrAttemptNotFound.
	Latest(ctx context.Context, orderID string) (*models.PaymentAttempt, error)

	// ListByOrder returns attempts ordered by attempted_at ascending.
	ListByOrder(ctx context.Context, orderID string) ([]models.PaymentAttempt, error)

	// Settle moves a processing attempt to s.Status. It reports false without
	// writing when the attempt is no longer processing.
	Settle(ctx context.Context, id string, s Settlement) (bool, error)
}

// OrderRepository persists the payment fields of orders.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error

	// Get returns apperr.ErrOrderNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.Order, error)

	// UpdatePaymentFields rewrites deposit, balance and total while the final
	// payment is still pending and nothing collected exceeds the new balance.
	// It reports false when the guard condition did not hold.
	UpdatePaymentFields(ctx context.Context, id string, deposit, balance, total int64) (bool, error)

	// MarkReadyForDelivery flags the order for balance collection while the
	// final payment is pending.
	MarkReadyForDelivery(ctx context.Context, id string) (bool, error)

	// ApplyCollection adds amount to the collected balance in one conditional
	// write. It only applies while the final payment is pending and the sum
	// stays within the balance; the final payment flips to paid when the
	// balance is fully collected.
	ApplyCollection(ctx context.Context, id string, amount int64, at time.Time) (bool, error)
}
