package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptProcessing AttemptStatus = "processing"
	AttemptSucceeded  AttemptStatus = "succeeded"
	AttemptFailed     AttemptStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptSucceeded || s == AttemptFailed
}

// PaymentAttempt is one try at charging an order. Rows are an audit trail and
// are never deleted; a retry after a failure is a new row.
type PaymentAttempt struct {
	ID                 string         `json:"id" gorm:"primaryKey;size:36"`
	OrderID            string         `json:"order_id" gorm:"size:36;not null;index:idx_payment_attempts_order_attempted,priority:1;uniqueIndex:idx_payment_attempts_order_number,priority:1"`
	AttemptNumber      int            `json:"attempt_number" gorm:"not null;uniqueIndex:idx_payment_attempts_order_number,priority:2"`
	PaymentMethod      string         `json:"payment_method" gorm:"size:30;not null"`
	AmountCents        int64          `json:"amount_cents" gorm:"not null"`
	Status             AttemptStatus  `json:"status" gorm:"size:20;not null;default:'processing'"`
	DeclineCode        *string        `json:"decline_code,omitempty" gorm:"size:100"`
	ErrorMessage       *string        `json:"error_message,omitempty" gorm:"type:text"`
	PaymentIntentID    *string        `json:"payment_intent_id,omitempty" gorm:"size:255;index"`
	IdempotencyKey     *string        `json:"idempotency_key,omitempty" gorm:"size:128;uniqueIndex:idx_payment_attempts_idempotency_key"`
	CollectedByAdminID *string        `json:"collected_by_admin_id,omitempty" gorm:"size:36"`
	Metadata           datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	AttemptedAt        time.Time      `json:"attempted_at" gorm:"not null;index:idx_payment_attempts_order_attempted,priority:2"`
	SucceededAt        *time.Time     `json:"succeeded_at,omitempty"`
	FailedAt           *time.Time     `json:"failed_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (attempt *PaymentAttempt) BeforeCreate(tx *gorm.DB) (err error) {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	return
}
