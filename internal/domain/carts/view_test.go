package carts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfUp(t *testing.T) {
	assert.Equal(t, 1.01, round2(1.005000001))
	assert.Equal(t, 1.0, round2(1.004))
	assert.Equal(t, 0.0, round2(0))
	assert.Equal(t, 100.01, round2(33.335*3))
}

func TestBuildViewTotals(t *testing.T) {
	cart := &Cart{
		ID:      1,
		OwnerID: 9,
		Items: []CartItem{
			{ID: 1, CartID: 1, ProductID: 10, Quantity: 3},
			{ID: 2, CartID: 1, ProductID: 11, Quantity: 2},
		},
	}
	snaps := map[int64]*ProductSnapshot{
		10: {ID: 10, Title: "Widget", Price: 10.00, Stock: 5, IsActive: true},
		11: {ID: 11, Title: "Gadget", Price: 19.99, Stock: 9, IsActive: true},
	}

	view := buildView(cart, snaps)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 5, view.TotalItems)
	assert.Equal(t, 30.00, view.Items[0].Subtotal)
	assert.Equal(t, 39.98, view.Items[1].Subtotal)
	assert.Equal(t, 69.98, view.TotalPrice)
}

// The final sum is rounded once, so it can differ from the sum of the
// per-line display subtotals.
func TestBuildViewRoundsFinalSumNotPerLine(t *testing.T) {
	cart := &Cart{
		ID:      1,
		OwnerID: 9,
		Items: []CartItem{
			{ID: 1, CartID: 1, ProductID: 10, Quantity: 1},
			{ID: 2, CartID: 1, ProductID: 11, Quantity: 1},
		},
	}
	snaps := map[int64]*ProductSnapshot{
		10: {ID: 10, Title: "A", Price: 10.004, Stock: 5, IsActive: true},
		11: {ID: 11, Title: "B", Price: 10.004, Stock: 5, IsActive: true},
	}

	view := buildView(cart, snaps)
	assert.Equal(t, 10.00, view.Items[0].Subtotal)
	assert.Equal(t, 10.00, view.Items[1].Subtotal)
	assert.Equal(t, 20.01, view.TotalPrice)
}

// A line whose product no longer exists in the catalog is dropped from the
// view instead of failing the read.
func TestBuildViewDropsVanishedProducts(t *testing.T) {
	cart := &Cart{
		ID:      1,
		OwnerID: 9,
		Items: []CartItem{
			{ID: 1, CartID: 1, ProductID: 10, Quantity: 1},
			{ID: 2, CartID: 1, ProductID: 77, Quantity: 4},
		},
	}
	snaps := map[int64]*ProductSnapshot{
		10: {ID: 10, Title: "Widget", Price: 2.00, Stock: 5, IsActive: true},
	}

	view := buildView(cart, snaps)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.TotalItems)
	assert.Equal(t, 2.00, view.TotalPrice)
}
