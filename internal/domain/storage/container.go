package storage

import (
	"context"
	"fmt"

	"storefront/internal/domain/carts"
	"storefront/internal/domain/products"
	"storefront/internal/domain/reviews"
	"storefront/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool     *pgxpool.Pool
	Users    users.Store
	Products products.Store
	Reviews  reviews.Store
	Carts    *carts.Engine
}

func NewContainer(db *pgxpool.Pool) *Container {
	cartRepo := carts.NewRepository(db)
	return &Container{
		pool:     db,
		Users:    users.NewRepository(db),
		Products: products.NewRepository(db),
		Reviews:  reviews.NewRepository(db),
		// The repository is both the cart store and the product catalog;
		// stock truth lives in one table either way.
		Carts: carts.NewEngine(cartRepo, cartRepo),
	}
}

// WithCartTx runs one cart operation against a tx-scoped engine, giving the
// whole read-modify-write a single transactional boundary.
func (c *Container) WithCartTx(ctx context.Context, fn func(e *carts.Engine) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	repo := carts.NewRepository(tx)
	if err := fn(carts.NewEngine(repo, repo)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
