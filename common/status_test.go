package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalStatusesAcceptNoTransition(t *testing.T) {
	terminal := []string{TransactionStatusPaid, TransactionStatusExpired, TransactionStatusFailed}
	for _, from := range terminal {
		for _, to := range append(terminal, TransactionStatusUnpaid) {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestUnpaidTransitions(t *testing.T) {
	assert.True(t, CanTransition(TransactionStatusUnpaid, TransactionStatusPaid))
	assert.True(t, CanTransition(TransactionStatusUnpaid, TransactionStatusExpired))
	assert.True(t, CanTransition(TransactionStatusUnpaid, TransactionStatusFailed))
	assert.False(t, CanTransition(TransactionStatusUnpaid, TransactionStatusUnpaid))
	assert.False(t, CanTransition(TransactionStatusUnpaid, "REFUNDED"))
}

func TestPaymentStatusFromTransaction(t *testing.T) {
	assert.Equal(t, PaymentStatusAwaitingPayment, PaymentStatusFromTransaction(TransactionStatusUnpaid, ""))
	assert.Equal(t, PaymentStatusSettled, PaymentStatusFromTransaction(TransactionStatusPaid, ""))
	assert.Equal(t, PaymentStatusExpired, PaymentStatusFromTransaction(TransactionStatusExpired, ""))
	assert.Equal(t, PaymentStatusRejected, PaymentStatusFromTransaction(TransactionStatusFailed, FailureReasonRejected))
	assert.Equal(t, PaymentStatusRejected, PaymentStatusFromTransaction(TransactionStatusFailed, FailureReasonGatewayFailed))
	assert.Equal(t, PaymentStatusCancelled, PaymentStatusFromTransaction(TransactionStatusFailed, FailureReasonCancelled))
	assert.Equal(t, PaymentStatusUnknown, PaymentStatusFromTransaction("PENDING", ""))
}

func TestFormatStatus(t *testing.T) {
	d := FormatStatus(PaymentStatusSettled)
	assert.Equal(t, "SETTLED", d.Code)
	assert.Equal(t, ToneSuccess, d.Tone)
	assert.True(t, d.Final)

	assert.False(t, PaymentStatusError.IsFinal())
	assert.False(t, PaymentStatusAwaitingPayment.IsFinal())
	assert.Equal(t, "UNKNOWN", FormatStatus(PaymentStatus(42)).Code)
}
