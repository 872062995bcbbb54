package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrement(t *testing.T) {
	m := &Medication{Code: "AMOX", Quantity: 10, LowStockThreshold: 5}

	require.NoError(t, m.Decrement(3))
	assert.Equal(t, 7, m.Quantity)
	assert.False(t, m.IsLowStock())

	require.NoError(t, m.Decrement(3))
	assert.True(t, m.IsLowStock())

	assert.ErrorIs(t, m.Decrement(5), ErrInsufficientStock)
	assert.Equal(t, 4, m.Quantity)

	assert.ErrorIs(t, m.Decrement(0), ErrInvalidQuantity)
	assert.ErrorIs(t, m.Decrement(-1), ErrInvalidQuantity)
}

func TestAdjust(t *testing.T) {
	m := &Medication{Code: "IBU", Quantity: 2}

	require.NoError(t, m.Adjust(8))
	assert.Equal(t, 10, m.Quantity)

	require.NoError(t, m.Adjust(-10))
	assert.Equal(t, 0, m.Quantity)

	assert.ErrorIs(t, m.Adjust(-1), ErrInsufficientStock)
	assert.ErrorIs(t, m.Adjust(0), ErrInvalidQuantity)
}

func TestReplenishment(t *testing.T) {
	m := &Medication{Code: "PARA", Quantity: 1}

	assert.ErrorIs(t, m.FulfillReplenishment(), ErrNoReplenishmentPending)

	require.NoError(t, m.RequestReplenishment(20))
	require.NoError(t, m.RequestReplenishment(5))
	assert.Equal(t, 25, m.PendingReplenishment)

	require.NoError(t, m.FulfillReplenishment())
	assert.Equal(t, 26, m.Quantity)
	assert.Zero(t, m.PendingReplenishment)
}
