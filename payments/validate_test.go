package payments

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"needthisdone-payments/apperr"
	"needthisdone-payments/models"
)

func i64(v int64) *int64 { return &v }

func TestValidateDepositBalance(t *testing.T) {
	tests := []struct {
		name                    string
		deposit, balance, total int64
		want                    bool
	}{
		{"even split", 5000, 5000, 10000, true},
		{"full deposit", 10000, 0, 10000, true},
		{"mismatch", 5000, 4500, 10000, false},
		{"zero deposit", 0, 10000, 10000, false},
		{"negative balance", 11000, -1000, 10000, false},
		{"sum wraps around", math.MaxInt64, 1, math.MinInt64, false},
		{"largest total", math.MaxInt64 - 1, 1, math.MaxInt64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateDepositBalance(tt.deposit, tt.balance, tt.total))
		})
	}
}

func TestValidateDepositBalance_RoundTrip(t *testing.T) {
	for total := int64(1); total <= 200; total += 7 {
		for deposit := int64(1); deposit <= total; deposit += 3 {
			balance := total - deposit
			assert.True(t, ValidateDepositBalance(deposit, balance, total))
			assert.False(t, ValidateDepositBalance(deposit, balance+1, total))
			assert.False(t, ValidateDepositBalance(-deposit, balance, total-2*deposit))
		}
	}
}

func TestValidateChargeAmountNotExceedsBalance(t *testing.T) {
	assert.False(t, ValidateChargeAmountNotExceedsBalance(7500, 5000))
	assert.True(t, ValidateChargeAmountNotExceedsBalance(5000, 5000))
	assert.True(t, ValidateChargeAmountNotExceedsBalance(1, 5000))
}

func TestValidateDepositNotLargerThanTotal(t *testing.T) {
	assert.True(t, ValidateDepositNotLargerThanTotal(5000, 10000))
	assert.True(t, ValidateDepositNotLargerThanTotal(10000, 10000))
	assert.False(t, ValidateDepositNotLargerThanTotal(10001, 10000))
	assert.False(t, ValidateDepositNotLargerThanTotal(0, 10000))
	assert.False(t, ValidateDepositNotLargerThanTotal(-1, 10000))
}

func TestValidateDepositPaymentFields(t *testing.T) {
	tests := []struct {
		name   string
		fields models.PaymentFields
		want   []apperr.Code
	}{
		{
			name:   "valid",
			fields: models.PaymentFields{DepositAmount: i64(5000), BalanceRemaining: i64(5000), Total: i64(10000)},
		},
		{
			name:   "missing total",
			fields: models.PaymentFields{DepositAmount: i64(5000), BalanceRemaining: i64(5000)},
			want:   []apperr.Code{apperr.CodeMissingPaymentFields},
		},
		{
			name:   "mismatch",
			fields: models.PaymentFields{DepositAmount: i64(5000), BalanceRemaining: i64(4500), Total: i64(10000)},
			want:   []apperr.Code{apperr.CodeAmountMismatch},
		},
		{
			name:   "negative balance with oversize deposit",
			fields: models.PaymentFields{DepositAmount: i64(12000), BalanceRemaining: i64(-2000), Total: i64(10000)},
			want:   []apperr.Code{apperr.CodeNegativeBalance, apperr.CodeDepositExceedsTotal},
		},
		{
			name:   "sum wraps around",
			fields: models.PaymentFields{DepositAmount: i64(math.MaxInt64), BalanceRemaining: i64(1), Total: i64(math.MinInt64)},
			want:   []apperr.Code{apperr.CodeDepositExceedsTotal, apperr.CodeAmountMismatch},
		},
		{
			name:   "zero deposit",
			fields: models.PaymentFields{DepositAmount: i64(0), BalanceRemaining: i64(10000), Total: i64(10000)},
			want:   []apperr.Code{apperr.CodeDepositExceedsTotal},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDepositPaymentFields(tt.fields)
			assert.Equal(t, len(tt.want) == 0, got.Valid)
			assert.Equal(t, tt.want, got.Errors)
			if got.Valid {
				assert.NoError(t, got.Err())
			} else {
				assert.Error(t, got.Err())
			}
		})
	}
}

func TestValidateReadyForDeliveryPrerequisites(t *testing.T) {
	tests := []struct {
		name   string
		fields models.PaymentFields
		want   []apperr.Code
	}{
		{
			name: "ready",
			fields: models.PaymentFields{BalanceRemaining: i64(5000), Total: i64(10000),
				FinalPaymentStatus: models.FinalPaymentPending},
		},
		{
			name: "already paid",
			fields: models.PaymentFields{BalanceRemaining: i64(5000), Total: i64(10000), BalanceCollected: 5000,
				FinalPaymentStatus: models.FinalPaymentPaid},
			want: []apperr.Code{apperr.CodePaymentAlreadyProcessed, apperr.CodeNoBalanceRemaining},
		},
		{
			name: "paid flag alone blocks collection",
			fields: models.PaymentFields{BalanceRemaining: i64(5000), Total: i64(10000),
				FinalPaymentStatus: models.FinalPaymentPaid},
			want: []apperr.Code{apperr.CodePaymentAlreadyProcessed},
		},
		{
			name: "no balance",
			fields: models.PaymentFields{BalanceRemaining: i64(0), Total: i64(10000),
				FinalPaymentStatus: models.FinalPaymentPending},
			want: []apperr.Code{apperr.CodeNoBalanceRemaining},
		},
		{
			name: "balance exceeds total",
			fields: models.PaymentFields{BalanceRemaining: i64(12000), Total: i64(10000),
				FinalPaymentStatus: models.FinalPaymentPending},
			want: []apperr.Code{apperr.CodeBalanceExceedsTotal},
		},
		{
			name:   "missing",
			fields: models.PaymentFields{FinalPaymentStatus: models.FinalPaymentPending},
			want:   []apperr.Code{apperr.CodeMissingPaymentFields},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateReadyForDeliveryPrerequisites(tt.fields)
			assert.Equal(t, len(tt.want) == 0, got.Valid)
			assert.Equal(t, tt.want, got.Errors)
		})
	}
}
