package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTxn(expiresAt time.Time) *Transaction {
	return &Transaction{
		Status:      TransactionStatusPending,
		PaymentType: PaymentTypeInstantTransfer,
		ExpiresAt:   expiresAt,
	}
}

func TestTransaction_IsActiveAndStale(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	active := pendingTxn(now.Add(time.Minute))
	assert.True(t, active.IsActive(now))
	assert.False(t, active.IsStale(now))

	stale := pendingTxn(now)
	assert.False(t, stale.IsActive(now))
	assert.True(t, stale.IsStale(now))

	approved := pendingTxn(now.Add(time.Hour))
	approved.Status = TransactionStatusApproved
	assert.False(t, approved.IsActive(now))
	assert.False(t, approved.IsStale(now))
}

func TestTransaction_Expire(t *testing.T) {
	now := time.Now()
	txn := pendingTxn(now.Add(-time.Second))

	require.NoError(t, txn.Expire(now))
	assert.Equal(t, TransactionStatusExpired, txn.Status)

	err := txn.Expire(now)
	assert.True(t, errors.Is(err, ErrTxnInvalidState))
}

func TestTransaction_ApproveFromExpired(t *testing.T) {
	now := time.Now()
	txn := pendingTxn(now.Add(-time.Hour))
	require.NoError(t, txn.Expire(now))

	assert.True(t, txn.Approve(now))
	assert.Equal(t, TransactionStatusApproved, txn.Status)
	require.NotNil(t, txn.ApprovedAt)
	first := *txn.ApprovedAt

	assert.False(t, txn.Approve(now.Add(time.Minute)))
	assert.Equal(t, first, *txn.ApprovedAt)
}

func TestTransaction_RejectAndCancel(t *testing.T) {
	now := time.Now()

	rejected := pendingTxn(now.Add(time.Hour))
	require.NoError(t, rejected.Reject(now))
	assert.Equal(t, TransactionStatusRejected, rejected.Status)
	assert.True(t, rejected.IsFinal())

	cancelled := pendingTxn(now.Add(time.Hour))
	require.NoError(t, cancelled.MarkProcessing(now))
	require.NoError(t, cancelled.Cancel(now))
	assert.Equal(t, TransactionStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	assert.Error(t, cancelled.Reject(now))
	assert.Error(t, cancelled.MarkProcessing(now))
}

func TestTransaction_ExpiredIsNotFinal(t *testing.T) {
	txn := &Transaction{Status: TransactionStatusExpired}
	assert.False(t, txn.IsFinal())
}

func TestPaymentType_Valid(t *testing.T) {
	assert.True(t, PaymentTypeInstantTransfer.Valid())
	assert.True(t, PaymentTypeBankSlip.Valid())
	assert.True(t, PaymentTypeCard.Valid())
	assert.False(t, PaymentType("cash").Valid())
}
