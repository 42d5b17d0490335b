package payments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"needthisdone-payments/apperr"
	"needthisdone-payments/models"
)

// MemoryAttemptRepository keeps attempts in process. Every method runs in a
// single critical section, so the key lookup and the insert in Insert cannot
// be interleaved by another caller.
type MemoryAttemptRepository struct {
	mu       sync.Mutex
	attempts map[string]*models.PaymentAttempt
	byKey    map[string]string
	byOrder  map[string][]string
	seq      int64
	now      func() time.Time
}

func NewMemoryAttemptRepository() *MemoryAttemptRepository {
	return &MemoryAttemptRepository{
		attempts: make(map[string]*models.PaymentAttempt),
		byKey:    make(map[string]string),
		byOrder:  make(map[string][]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryAttemptRepository) Insert(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if attempt.IdempotencyKey != nil {
		if id, ok := r.byKey[*attempt.IdempotencyKey]; ok {
			existing := *r.attempts[id]
			return &existing, false, nil
		}
	}

	stored := *attempt
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := r.now()
	if stored.AttemptedAt.IsZero() {
		stored.AttemptedAt = now
	}
	// sequence keeps creation order stable when timestamps collide
	r.seq++
	stored.CreatedAt = now.Add(time.Duration(r.seq))
	stored.UpdatedAt = stored.CreatedAt
	stored.AttemptNumber = len(r.byOrder[stored.OrderID]) + 1

	r.attempts[stored.ID] = &stored
	r.byOrder[stored.OrderID] = append(r.byOrder[stored.OrderID], stored.ID)
	if stored.IdempotencyKey != nil {
		r.byKey[*stored.IdempotencyKey] = stored.ID
	}

	out := stored
	return &out, true, nil
}

func (r *MemoryAttemptRepository) Get(ctx context.Context, id string) (*models.PaymentAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attempts[id]
	if !ok {
		return nil, apperr.ErrAttemptNotFound
	}
	out := *a
	return &out, nil
}

func (r *MemoryAttemptRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[key]
	if !ok {
		return nil, apperr.ErrAttemptNotFound
	}
	out := *r.attempts[id]
	return &out, nil
}

func (r *MemoryAttemptRepository) Latest(ctx context.Context, orderID string) (*models.PaymentAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byOrder[orderID]
	if len(ids) == 0 {
		return nil, apperr.ErrAttemptNotFound
	}
	var latest *models.PaymentAttempt
	for _, id := range ids {
		a := r.attempts[id]
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	out := *latest
	return &out, nil
}

func (r *MemoryAttemptRepository) ListByOrder(ctx context.Context, orderID string) ([]models.PaymentAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.PaymentAttempt, 0, len(r.byOrder[orderID]))
	for _, id := range r.byOrder[orderID] {
		out = append(out, *r.attempts[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AttemptedAt.Equal(out[j].AttemptedAt) {
			return out[i].AttemptNumber < out[j].AttemptNumber
		}
		return out[i].AttemptedAt.Before(out[j].AttemptedAt)
	})
	return out, nil
}

func (r *MemoryAttemptRepository) Settle(ctx context.Context, id string, s Settlement) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attempts[id]
	if !ok {
		return false, apperr.ErrAttemptNotFound
	}
	if a.Status != models.AttemptProcessing {
		return false, nil
	}

	a.Status = s.Status
	if s.DeclineCode != nil {
		a.DeclineCode = s.DeclineCode
	}
	if s.ErrorMessage != nil {
		a.ErrorMessage = s.ErrorMessage
	}
	if s.PaymentIntentID != nil {
		a.PaymentIntentID = s.PaymentIntentID
	}
	at := s.At
	switch s.Status {
	case models.AttemptSucceeded:
		a.SucceededAt = &at
	case models.AttemptFailed:
		a.FailedAt = &at
	}
	a.UpdatedAt = r.now()
	return true, nil
}

var _ AttemptRepository = (*MemoryAttemptRepository)(nil)

// MemoryOrderRepository keeps orders in process with the same conditional
// write semantics as the gorm implementation.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*models.Order)}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	if order.FinalPaymentStatus == "" {
		order.FinalPaymentStatus = models.FinalPaymentPending
	}
	stored := *order
	r.orders[order.ID] = &stored
	return nil
}

func (r *MemoryOrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.ErrOrderNotFound
	}
	out := *o
	return &out, nil
}

func (r *MemoryOrderRepository) UpdatePaymentFields(ctx context.Context, id string, deposit, balance, total int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, apperr.ErrOrderNotFound
	}
	if o.FinalPaymentStatus != models.FinalPaymentPending || o.BalanceCollected > balance {
		return false, nil
	}
	o.DepositAmount, o.BalanceRemaining, o.Total = deposit, balance, total
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryOrderRepository) MarkReadyForDelivery(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, apperr.ErrOrderNotFound
	}
	if o.FinalPaymentStatus != models.FinalPaymentPending {
		return false, nil
	}
	o.FulfillmentStatus = models.FulfillmentReadyForDelivery
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryOrderRepository) ApplyCollection(ctx context.Context, id string, amount int64, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, apperr.ErrOrderNotFound
	}
	if o.FinalPaymentStatus != models.FinalPaymentPending || o.BalanceCollected+amount > o.BalanceRemaining {
		return false, nil
	}
	o.BalanceCollected += amount
	if o.BalanceCollected == o.BalanceRemaining {
		o.FinalPaymentStatus = models.FinalPaymentPaid
		o.PaymentStatus = models.PaymentStatusPaid
		paidAt := at
		o.FinalPaidAt = &paidAt
	}
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

var _ OrderRepository = (*MemoryOrderRepository)(nil)
