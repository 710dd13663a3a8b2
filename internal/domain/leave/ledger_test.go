package leave

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/apperr"
)

func TestLedgerGetOrCreateIsIdempotent(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, &memTx{store: store})
	ctx := context.Background()

	first, err := ledger.GetOrCreate(ctx, "t1", "emp-1", "pto")
	require.NoError(t, err)
	assert.True(t, first.CurrentBalance.IsZero())

	second, err := ledger.GetOrCreate(ctx, "t1", "emp-1", "pto")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.balances, 1)
}

func TestLedgerDebit(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, &memTx{store: store})
	ctx := context.Background()
	store.setBalance("t1", "emp-1", "pto", 5)

	b, err := ledger.Debit(ctx, "t1", "emp-1", "pto", dec("1.25"), false)
	require.NoError(t, err)
	assert.True(t, b.CurrentBalance.Equal(dec("3.75")))

	_, err = ledger.Debit(ctx, "t1", "emp-1", "pto", dec("4"), false)
	assert.EqualError(t, err, "Insufficient balance. Available: 3.75, Requested: 4")

	b, err = ledger.Debit(ctx, "t1", "emp-1", "pto", dec("4"), true)
	require.NoError(t, err)
	assert.True(t, b.CurrentBalance.Equal(dec("-0.25")))

	_, err = ledger.Debit(ctx, "t1", "emp-1", "pto", dec("0"), true)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	current, found, err := store.GetBalance(ctx, "t1", "emp-1", "pto")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, current.CurrentBalance.Equal(dec("-0.25")))
}
