package payments

import (
	"math"

	"needthisdone-payments/apperr"
	"needthisdone-payments/models"
)

// Result is the outcome of a composite payment-field check.
type Result struct {
	Valid  bool          `json:"valid"`
	Errors []apperr.Code `json:"errors,omitempty"`
}

// Err returns a *apperr.ValidationError for an invalid result and nil otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return apperr.Validation(r.Errors...)
}

func result(codes []apperr.Code) Result {
	return Result{Valid: len(codes) == 0, Errors: codes}
}

// ValidateDepositBalance reports whether deposit and balance reconcile to total
// with a positive deposit and a non-negative balance.
func ValidateDepositBalance(deposit, balance, total int64) bool {
	return deposit > 0 && balance >= 0 && sumsTo(deposit, balance, total)
}

// sumsTo reports a+b == total without wrapping around int64.
func sumsTo(a, b, total int64) bool {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return false
	}
	return a+b == total
}

func ValidateChargeAmountNotExceedsBalance(chargeAmount, balanceRemaining int64) bool {
	return chargeAmount <= balanceRemaining
}

func ValidateDepositNotLargerThanTotal(deposit, total int64) bool {
	return deposit > 0 && deposit <= total
}

// ValidateDepositPaymentFields checks the deposit split before an order write.
// Every violated rule is reported, not just the first.
func ValidateDepositPaymentFields(f models.PaymentFields) Result {
	if f.DepositAmount == nil || f.BalanceRemaining == nil || f.Total == nil {
		return result([]apperr.Code{apperr.CodeMissingPaymentFields})
	}
	deposit, balance, total := *f.DepositAmount, *f.BalanceRemaining, *f.Total

	var codes []apperr.Code
	if balance < 0 {
		codes = append(codes, apperr.CodeNegativeBalance)
	}
	if !ValidateDepositNotLargerThanTotal(deposit, total) {
		codes = append(codes, apperr.CodeDepositExceedsTotal)
	}
	if !sumsTo(deposit, balance, total) {
		codes = append(codes, apperr.CodeAmountMismatch)
	}
	return result(codes)
}

// ValidateReadyForDeliveryPrerequisites checks that the final balance can still
// be requested: it has not been collected, something is left to collect, and the
// balance is within the order total.
func ValidateReadyForDeliveryPrerequisites(f models.PaymentFields) Result {
	if f.BalanceRemaining == nil || f.Total == nil {
		return result([]apperr.Code{apperr.CodeMissingPaymentFields})
	}

	var codes []apperr.Code
	if f.FinalPaymentStatus == models.FinalPaymentPaid {
		codes = append(codes, apperr.CodePaymentAlreadyProcessed)
	}
	if *f.BalanceRemaining-f.BalanceCollected <= 0 {
		codes = append(codes, apperr.CodeNoBalanceRemaining)
	}
	if *f.BalanceRemaining > *f.Total {
		codes = append(codes, apperr.CodeBalanceExceedsTotal)
	}
	return result(codes)
}
