package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bataryakit/notifier/internal/order"
)

func TestLine_Total(t *testing.T) {
	override := 90.0
	assert.Equal(t, 200.0, order.Line{Quantity: 2, UnitPrice: 100}.Total())
	assert.Equal(t, 90.0, order.Line{Quantity: 2, UnitPrice: 100, LineTotal: &override}.Total())
}

func TestMemoryStore_GetOrder(t *testing.T) {
	store := order.NewMemoryStore()
	store.Put(order.Order{
		ID:      "ORD-1",
		Billing: &order.Address{City: "Izmir"},
		Lines:   []order.Line{{SKU: "X1", Quantity: 1}},
	})

	got, err := store.GetOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.ID)

	// Mutating the returned copy must not leak into the store.
	got.Lines[0].SKU = "changed"
	got.Billing.City = "changed"
	again, err := store.GetOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "X1", again.Lines[0].SKU)
	assert.Equal(t, "Izmir", again.Billing.City)
}

func TestMemoryStore_NotFound(t *testing.T) {
	_, err := order.NewMemoryStore().GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, order.ErrNotFound)
}
