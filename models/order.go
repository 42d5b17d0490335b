package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FinalPaymentStatus string

const (
	FinalPaymentPending FinalPaymentStatus = "pending"
	FinalPaymentPaid    FinalPaymentStatus = "paid"
)

const (
	PaymentStatusPending     = "pending"
	PaymentStatusDepositPaid = "deposit_paid"
	PaymentStatusPaid        = "paid"

	FulfillmentReadyForDelivery = "ready_for_delivery"
)

// Order holds the payment side of a customer order. All amounts are in cents.
//
// DepositAmount + BalanceRemaining always equals Total. BalanceRemaining is the
// contractual remainder fixed when the deposit is taken; BalanceCollected tracks
// how much of it has been charged since.
type Order struct {
	ID                 string             `json:"id" gorm:"primaryKey;size:36"`
	CustomerEmail      string             `json:"customer_email" gorm:"size:255;index"`
	Currency           string             `json:"currency" gorm:"size:3;default:'USD'"`
	Total              int64              `json:"total" gorm:"not null"`
	DepositAmount      int64              `json:"deposit_amount" gorm:"not null"`
	BalanceRemaining   int64              `json:"balance_remaining" gorm:"not null"`
	BalanceCollected   int64              `json:"balance_collected" gorm:"not null;default:0"`
	PaymentStatus      string             `json:"payment_status" gorm:"size:20;not null"`
	FinalPaymentStatus FinalPaymentStatus `json:"final_payment_status" gorm:"size:20;not null;default:'pending'"`
	FulfillmentStatus  string             `json:"fulfillment_status" gorm:"size:30"`
	FinalPaidAt        *time.Time         `json:"final_paid_at"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (order *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	return
}

// Outstanding is the part of the balance not yet collected.
func (order *Order) Outstanding() int64 {
	return order.BalanceRemaining - order.BalanceCollected
}

// PaymentFields returns the typed view the validators work on.
func (order *Order) PaymentFields() PaymentFields {
	deposit, balance, total := order.DepositAmount, order.BalanceRemaining, order.Total
	return PaymentFields{
		DepositAmount:      &deposit,
		BalanceRemaining:   &balance,
		Total:              &total,
		BalanceCollected:   order.BalanceCollected,
		FinalPaymentStatus: order.FinalPaymentStatus,
	}
}

// PaymentFields is the deposit/balance subset of an order. Nil pointers mean
// the field was not supplied.
type PaymentFields struct {
	DepositAmount      *int64             `json:"deposit_amount"`
	BalanceRemaining   *int64             `json:"balance_remaining"`
	Total              *int64             `json:"total"`
	BalanceCollected   int64              `json:"balance_collected"`
	FinalPaymentStatus FinalPaymentStatus `json:"final_payment_status"`
}
