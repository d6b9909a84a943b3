package carts

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the Postgres implementation of both Store and Catalog.
// The catalog side reads the same products table the guards join against,
// so stock truth comes from a single place.
type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) GetByOwner(ctx context.Context, ownerID int64) (*Cart, error) {
	var c Cart
	err := r.db.QueryRow(ctx, `
SELECT id, user_id, created_at, updated_at
FROM carts
WHERE user_id = $1
`, ownerID).Scan(&c.ID, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart by owner: %w", err)
	}

	if err := r.loadItems(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts the owner's cart. carts.user_id is unique (one cart per
// owner); on a concurrent create this loses the insert and fetches the
// winning row instead.
func (r *Repository) Create(ctx context.Context, ownerID int64) (*Cart, error) {
	var c Cart
	err := r.db.QueryRow(ctx, `
INSERT INTO carts (user_id)
VALUES ($1)
RETURNING id, user_id, created_at, updated_at
`, ownerID).Scan(&c.ID, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			existing, gerr := r.GetByOwner(ctx, ownerID)
			if gerr != nil {
				return nil, gerr
			}
			if existing == nil {
				return nil, fmt.Errorf("create cart: conflict but no row visible")
			}
			return existing, nil
		}
		return nil, fmt.Errorf("create cart: %w", err)
	}

	c.Items = []CartItem{}
	return &c, nil
}

// MergeItem inserts or increments the (cart, product) line in one statement.
// The SELECT guards the fresh-insert path (product active with enough stock
// for qty); the ON CONFLICT update guards the merge path (product still
// active, existing quantity plus qty still within stock). Zero rows affected
// means a guard refused.
func (r *Repository) MergeItem(ctx context.Context, cartID, productID int64, qty int) (bool, error) {
	tag, err := r.db.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity)
SELECT $1, $2, $3
FROM products p
WHERE p.id = $2
  AND p.is_active = true
  AND p.stock >= $3
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity   = cart_items.quantity + EXCLUDED.quantity,
    updated_at = now()
WHERE cart_items.quantity + EXCLUDED.quantity <= (
    SELECT stock FROM products WHERE id = $2
)
  AND (SELECT is_active FROM products WHERE id = $2)
`, cartID, productID, qty)
	if err != nil {
		return false, fmt.Errorf("merge item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetItemQuantity applies an absolute quantity, guarded by live stock in the
// same statement. The active flag is deliberately not part of the guard so
// lines for deactivated products can still shrink; the engine rejects
// increases on inactive products before calling here.
func (r *Repository) SetItemQuantity(ctx context.Context, cartID, productID int64, qty int) (bool, error) {
	tag, err := r.db.Exec(ctx, `
UPDATE cart_items ci
SET quantity   = $3,
    updated_at = now()
FROM products p
WHERE ci.cart_id = $1
  AND ci.product_id = $2
  AND p.id = ci.product_id
  AND p.stock >= $3
`, cartID, productID, qty)
	if err != nil {
		return false, fmt.Errorf("set item quantity: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) DeleteItem(ctx context.Context, itemID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) DeleteAllItems(ctx context.Context, cartID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// GetByID implements Catalog against the products table.
func (r *Repository) GetByID(ctx context.Context, productID int64) (*ProductSnapshot, error) {
	var s ProductSnapshot
	err := r.db.QueryRow(ctx, `
SELECT id, title, price, thumbnail, stock, is_active
FROM products
WHERE id = $1
`, productID).Scan(&s.ID, &s.Title, &s.Price, &s.Thumbnail, &s.Stock, &s.IsActive)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product snapshot: %w", err)
	}
	return &s, nil
}

func (r *Repository) loadItems(ctx context.Context, c *Cart) error {
	rows, err := r.db.Query(ctx, `
SELECT id, cart_id, product_id, quantity
FROM cart_items
WHERE cart_id = $1
ORDER BY id ASC
`, c.ID)
	if err != nil {
		return fmt.Errorf("cart items: %w", err)
	}
	defer rows.Close()

	c.Items = []CartItem{}
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity); err != nil {
			return fmt.Errorf("scan cart item: %w", err)
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cart items rows: %w", err)
	}
	return nil
}
