package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPassword(t *testing.T) {
	var u User
	require.NoError(t, u.SetPassword("correct horse"))
	assert.NotEqual(t, []byte("correct horse"), u.Password)
	assert.NoError(t, u.ComparePassword("correct horse"))
	assert.Error(t, u.ComparePassword("Correct horse"))
}

func TestOrderPaymentFields(t *testing.T) {
	o := Order{Total: 10000, DepositAmount: 3000, BalanceRemaining: 7000, BalanceCollected: 2500, FinalPaymentStatus: FinalPaymentPending}
	assert.Equal(t, int64(4500), o.Outstanding())

	f := o.PaymentFields()
	require.NotNil(t, f.DepositAmount)
	assert.Equal(t, int64(3000), *f.DepositAmount)
	assert.Equal(t, int64(2500), f.BalanceCollected)

	// the view is a copy
	*f.Total = 1
	assert.Equal(t, int64(10000), o.Total)
}

func TestAttemptStatusTerminal(t *testing.T) {
	assert.False(t, AttemptProcessing.Terminal())
	assert.True(t, AttemptSucceeded.Terminal())
	assert.True(t, AttemptFailed.Terminal())
}
