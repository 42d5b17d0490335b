package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"needthisdone-payments/apperr"
	"needthisdone-payments/models"
	"needthisdone-payments/utils"
)

// maxNumberingRetries bounds how often Insert re-reads the next attempt number
// after losing a race on (order_id, attempt_number).
const maxNumberingRetries = 5

// GormAttemptRepository stores attempts in the payment_attempts table. It relies
// on the unique indexes created by database.Migrate.
type GormAttemptRepository struct {
	db *gorm.DB
}

func NewGormAttemptRepository(db *gorm.DB) *GormAttemptRepository {
	return &GormAttemptRepository{db: db}
}

// Insert uses INSERT ... ON CONFLICT DO NOTHING. A skipped insert is either an
// idempotency key collision, answered with the row that owns the key, or a
// lost race for the attempt number, which is retried with a fresh number.
func (r *GormAttemptRepository) Insert(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, bool, error) {
	db := r.db.WithContext(ctx)

	for i := 0; i < maxNumberingRetries; i++ {
		row := *attempt
		if row.AttemptedAt.IsZero() {
			row.AttemptedAt = time.Now().UTC()
		}

		var next int
		if err := db.Model(&models.PaymentAttempt{}).
			Select("COALESCE(MAX(attempt_number), 0) + 1").
			Where("order_id = ?", row.OrderID).
			Scan(&next).Error; err != nil {
			return nil, false, err
		}
		row.AttemptNumber = next

		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected == 1 {
			return &row, true, nil
		}

		if row.IdempotencyKey != nil {
			var existing models.PaymentAttempt
			err := db.Where("idempotency_key = ?", *row.IdempotencyKey).Take(&existing).Error
			if err == nil {
				return &existing, false, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, err
			}
		}
	}
	return nil, false, fmt.Errorf("allocate attempt number for order %s: too much contention", attempt.OrderID)
}

func (r *GormAttemptRepository) Get(ctx context.Context, id string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAttemptRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAttemptRepository) Latest(ctx context.Context, orderID string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Order("attempt_number DESC").
		Take(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAttemptRepository) ListByOrder(ctx context.Context, orderID string) ([]models.PaymentAttempt, error) {
	attempts := []models.PaymentAttempt{}
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("attempted_at ASC").
		Order("attempt_number ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *GormAttemptRepository) Settle(ctx context.Context, id string, s Settlement) (bool, error) {
	updates := utils.ColumnUpdates(&s)
	updates["status"] = string(s.Status)
	switch s.Status {
	case models.AttemptSucceeded:
		updates["succeeded_at"] = s.At
	case models.AttemptFailed:
		updates["failed_at"] = s.At
	}

	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, string(models.AttemptProcessing)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// distinguish "already settled" from "no such attempt"
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

var _ AttemptRepository = (*GormAttemptRepository)(nil)

// GormOrderRepository stores order payment fields in the orders table.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.FinalPaymentStatus == "" {
		order.FinalPaymentStatus = models.FinalPaymentPending
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) UpdatePaymentFields(ctx context.Context, id string, deposit, balance, total int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND final_payment_status = ? AND balance_collected <= ?", id, string(models.FinalPaymentPending), balance).
		Updates(map[string]any{
			"deposit_amount":    deposit,
			"balance_remaining": balance,
			"total":             total,
		})
	return r.conditional(ctx, id, res)
}

func (r *GormOrderRepository) MarkReadyForDelivery(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND final_payment_status = ?", id, string(models.FinalPaymentPending)).
		Update("fulfillment_status", models.FulfillmentReadyForDelivery)
	return r.conditional(ctx, id, res)
}

// ApplyCollection is one UPDATE; every CASE reads the pre-update row, so the
// increment and the paid transition cannot disagree.
func (r *GormOrderRepository) ApplyCollection(ctx context.Context, id string, amount int64, at time.Time) (bool, error) {
	paid, pending := string(models.FinalPaymentPaid), string(models.FinalPaymentPending)
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND final_payment_status = ? AND balance_collected + ? <= balance_remaining", id, pending, amount).
		Updates(map[string]any{
			"balance_collected":    gorm.Expr("balance_collected + ?", amount),
			"final_payment_status": gorm.Expr("CASE WHEN balance_collected + ? = balance_remaining THEN ? ELSE final_payment_status END", amount, paid),
			"payment_status":       gorm.Expr("CASE WHEN balance_collected + ? = balance_remaining THEN ? ELSE payment_status END", amount, models.PaymentStatusPaid),
			"final_paid_at":        gorm.Expr("CASE WHEN balance_collected + ? = balance_remaining THEN ? ELSE final_paid_at END", amount, at),
		})
	return r.conditional(ctx, id, res)
}

// conditional turns a guarded UPDATE result into (applied, err), reporting
// ErrOrderNotFound when the row does not exist at all.
func (r *GormOrderRepository) conditional(ctx context.Context, id string, res *gorm.DB) (bool, error) {
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

var _ OrderRepository = (*GormOrderRepository)(nil)
