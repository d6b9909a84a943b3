package carts

import (
	"context"
	"time"
)

type Cart struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	Items     []CartItem `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Item returns the cart's line for productID, or nil. One line per product
// is an engine invariant, so the first match is the only match.
func (c *Cart) Item(productID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

type CartItem struct {
	ID        int64 `json:"id"`
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// ProductSnapshot is the point-in-time product truth the engine validates
// against. Price and stock are never cached on the cart.
type ProductSnapshot struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Thumbnail *string `json:"thumbnail,omitempty"`
	Stock     int     `json:"stock"`
	IsActive  bool    `json:"is_active"`
}

// CartView is the read model returned by every engine operation: stored
// lines enriched with live product data plus derived totals.
type CartView struct {
	ID         int64      `json:"id"`
	OwnerID    int64      `json:"owner_id"`
	Items      []CartLine `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
}

type CartLine struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
	Subtotal  float64         `json:"subtotal"`
}

// Store persists carts and their lines. GetByOwner returns (nil, nil) when
// the owner has no cart yet.
//
// MergeItem and SetItemQuantity are atomic read-modify-writes: the
// implementation must apply the quantity change and the live stock check in
// a single step and report false when the guard loses, so two concurrent
// mutations can never overshoot stock between a read and a write.
type Store interface {
	GetByOwner(ctx context.Context, ownerID int64) (*Cart, error)
	Create(ctx context.Context, ownerID int64) (*Cart, error)

	// MergeItem inserts a line with qty or increments an existing line by
	// qty, only if the resulting quantity is covered by current stock.
	MergeItem(ctx context.Context, cartID, productID int64, qty int) (bool, error)

	// SetItemQuantity sets an existing line to an absolute qty, only if
	// current stock covers it.
	SetItemQuantity(ctx context.Context, cartID, productID int64, qty int) (bool, error)

	DeleteItem(ctx context.Context, itemID int64) error
	DeleteAllItems(ctx context.Context, cartID int64) error
}

// Catalog is the engine's read-only window into product truth.
type Catalog interface {
	GetByID(ctx context.Context, productID int64) (*ProductSnapshot, error)
}
