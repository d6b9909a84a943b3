package carts

import (
	"context"
	"errors"
	"fmt"
)

// Engine orchestrates all cart mutations. Every operation is scoped to the
// authenticated owner's cart: ownerID must come from the request identity,
// never from a client-supplied field.
//
// Stock checks are optimistic (no reservation): the engine validates against
// the snapshot it read, and the Store applies the quantity change and the
// live stock guard in one atomic step. When the guard loses to a concurrent
// mutation the engine re-reads and surfaces the same client-fixable error it
// would have produced up front.
type Engine struct {
	store   Store
	catalog Catalog
}

func NewEngine(store Store, catalog Catalog) *Engine {
	return &Engine{store: store, catalog: catalog}
}

// GetOrCreateCart returns the owner's cart view, creating an empty cart on
// first access.
func (e *Engine) GetOrCreateCart(ctx context.Context, ownerID int64) (*CartView, error) {
	cart, err := e.getOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return e.view(ctx, cart)
}

// AddItem puts qty units of a product into the owner's cart, merging into an
// existing line when there is one. The product must exist, be active, and
// have enough stock to cover the line's resulting quantity.
func (e *Engine) AddItem(ctx context.Context, ownerID, productID int64, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := e.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}
	if product.Stock == 0 {
		return nil, &StockError{ProductID: productID, Requested: qty, Available: 0}
	}

	cart, err := e.getOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if stockErr := checkAdd(cart, product, qty); stockErr != nil {
		return nil, stockErr
	}

	ok, err := e.store.MergeItem(ctx, cart.ID, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("merge cart item: %w", err)
	}
	if !ok {
		// A concurrent mutation won the guard. Re-read and report against
		// current truth.
		return nil, e.addConflict(ctx, ownerID, productID, qty)
	}

	return e.refresh(ctx, ownerID)
}

// UpdateItemQuantity sets an existing line to an absolute quantity.
// A quantity below 1 removes the line; it is a shortcut, not an error.
func (e *Engine) UpdateItemQuantity(ctx context.Context, ownerID, productID int64, qty int) (*CartView, error) {
	cart, err := e.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}

	item := cart.Item(productID)
	if item == nil {
		return nil, ErrItemNotFound
	}

	if qty < 1 {
		if err := e.store.DeleteItem(ctx, item.ID); err != nil {
			return nil, err
		}
		return e.refresh(ctx, ownerID)
	}

	product, err := e.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	// Lines referencing a product that went inactive are tolerated but may
	// only shrink.
	if !product.IsActive && qty > item.Quantity {
		return nil, ErrProductInactive
	}
	if qty > product.Stock {
		return nil, &StockError{ProductID: productID, Requested: qty, Available: product.Stock}
	}

	ok, err := e.store.SetItemQuantity(ctx, cart.ID, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("set cart item quantity: %w", err)
	}
	if !ok {
		return nil, e.setConflict(ctx, ownerID, productID, qty)
	}

	return e.refresh(ctx, ownerID)
}

// RemoveItem deletes a line unconditionally; removal needs no stock check.
func (e *Engine) RemoveItem(ctx context.Context, ownerID, productID int64) (*CartView, error) {
	cart, err := e.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}

	item := cart.Item(productID)
	if item == nil {
		return nil, ErrItemNotFound
	}

	if err := e.store.DeleteItem(ctx, item.ID); err != nil {
		return nil, err
	}

	return e.refresh(ctx, ownerID)
}

// ClearCart deletes every line and returns a zeroed view without
// re-querying.
func (e *Engine) ClearCart(ctx context.Context, ownerID int64) (*CartView, error) {
	cart, err := e.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}

	if err := e.store.DeleteAllItems(ctx, cart.ID); err != nil {
		return nil, err
	}

	return emptyView(cart), nil
}

// --- internal helpers ---

func (e *Engine) getOrCreate(ctx context.Context, ownerID int64) (*Cart, error) {
	cart, err := e.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}
	return e.store.Create(ctx, ownerID)
}

func (e *Engine) refresh(ctx context.Context, ownerID int64) (*CartView, error) {
	cart, err := e.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return e.view(ctx, cart)
}

func (e *Engine) view(ctx context.Context, cart *Cart) (*CartView, error) {
	snaps, err := e.snapshots(ctx, cart)
	if err != nil {
		return nil, err
	}
	return buildView(cart, snaps), nil
}

// checkAdd validates qty against the snapshot the engine just read. The
// no-line and existing-line cases produce different errors on purpose: the
// former reports absolute stock, the latter the remaining increment.
func checkAdd(cart *Cart, product *ProductSnapshot, qty int) *StockError {
	existing := cart.Item(product.ID)
	if existing == nil {
		if qty > product.Stock {
			return &StockError{ProductID: product.ID, Requested: qty, Available: product.Stock}
		}
		return nil
	}
	if existing.Quantity+qty > product.Stock {
		return &StockError{
			ProductID: product.ID,
			Requested: qty,
			Available: product.Stock - existing.Quantity,
			Merging:   true,
		}
	}
	return nil
}

// addConflict rebuilds the stock error after a guarded merge lost a race.
func (e *Engine) addConflict(ctx context.Context, ownerID, productID int64, qty int) error {
	product, err := e.catalog.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return ErrProductInactive
	}

	cart, err := e.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if cart == nil {
		return ErrCartNotFound
	}

	if stockErr := checkAdd(cart, product, qty); stockErr != nil {
		return stockErr
	}
	// The guard refused but the re-read looks fine; report against absolute
	// stock rather than pretending the write happened.
	return &StockError{ProductID: productID, Requested: qty, Available: product.Stock}
}

func (e *Engine) setConflict(ctx context.Context, ownerID, productID int64, qty int) error {
	cart, err := e.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if cart == nil {
		return ErrCartNotFound
	}
	if cart.Item(productID) == nil {
		return ErrItemNotFound
	}

	product, err := e.catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return &StockError{ProductID: productID, Requested: qty, Available: product.Stock}
}
