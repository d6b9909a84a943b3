package carts

import (
	"context"
	"errors"
	"math"
)

// round2 rounds half-up to two decimal places. Monetary values here are
// never negative, so floor(x*100 + 0.5) is exactly half-up.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// buildView assembles the read model from stored lines and live product
// snapshots. It is a pure function: totals are always derived, never read
// from storage. Lines whose product has vanished from the catalog are
// dropped; lines for products that went inactive stay (they are tolerated
// read-only and still priced).
//
// totalPrice is rounded half-up on the final sum, not per line.
func buildView(cart *Cart, snapshots map[int64]*ProductSnapshot) *CartView {
	view := &CartView{
		ID:      cart.ID,
		OwnerID: cart.OwnerID,
		Items:   []CartLine{},
	}

	var sum float64
	for _, item := range cart.Items {
		snap, ok := snapshots[item.ProductID]
		if !ok {
			continue
		}

		subtotal := snap.Price * float64(item.Quantity)
		view.Items = append(view.Items, CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   *snap,
			Subtotal:  round2(subtotal),
		})

		view.TotalItems += item.Quantity
		sum += subtotal
	}

	view.TotalPrice = round2(sum)
	return view
}

// emptyView is the zeroed read model returned after clearCart, built
// without re-querying item rows.
func emptyView(cart *Cart) *CartView {
	return &CartView{
		ID:      cart.ID,
		OwnerID: cart.OwnerID,
		Items:   []CartLine{},
	}
}

func (e *Engine) snapshots(ctx context.Context, cart *Cart) (map[int64]*ProductSnapshot, error) {
	snaps := make(map[int64]*ProductSnapshot, len(cart.Items))
	for _, item := range cart.Items {
		snap, err := e.catalog.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		snaps[item.ProductID] = snap
	}
	return snaps, nil
}
