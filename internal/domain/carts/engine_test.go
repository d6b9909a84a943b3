package carts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// memCatalog and memStore are in-memory fakes honoring the same contract as
// the Postgres repository, including the atomic stock guard on MergeItem and
// SetItemQuantity. A single mutex shared through memStore keeps the
// merge-and-check step indivisible, which is what the concurrency test
// leans on.
type memCatalog struct {
	mu       sync.Mutex
	products map[int64]ProductSnapshot
}

func (c *memCatalog) GetByID(_ context.Context, productID int64) (*ProductSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	snap := p
	return &snap, nil
}

func (c *memCatalog) set(p ProductSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

type memStore struct {
	mu         sync.Mutex
	catalog    *memCatalog
	nextCartID int64
	nextItemID int64
	carts      map[int64]*Cart // keyed by owner
}

func (s *memStore) GetByOwner(_ context.Context, ownerID int64) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[ownerID]
	if !ok {
		return nil, nil
	}
	cp := *cart
	cp.Items = append([]CartItem(nil), cart.Items...)
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, ownerID int64) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart, ok := s.carts[ownerID]; ok {
		cp := *cart
		cp.Items = append([]CartItem(nil), cart.Items...)
		return &cp, nil
	}
	s.nextCartID++
	cart := &Cart{ID: s.nextCartID, OwnerID: ownerID, Items: []CartItem{}}
	s.carts[ownerID] = cart
	cp := *cart
	return &cp, nil
}

func (s *memStore) MergeItem(_ context.Context, cartID, productID int64, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog.mu.Lock()
	product, ok := s.catalog.products[productID]
	s.catalog.mu.Unlock()
	if !ok || !product.IsActive {
		return false, nil
	}

	cart := s.cartByID(cartID)
	if cart == nil {
		return false, nil
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			if cart.Items[i].Quantity+qty > product.Stock {
				return false, nil
			}
			cart.Items[i].Quantity += qty
			return true, nil
		}
	}

	if qty > product.Stock {
		return false, nil
	}
	s.nextItemID++
	cart.Items = append(cart.Items, CartItem{
		ID:        s.nextItemID,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
	})
	return true, nil
}

func (s *memStore) SetItemQuantity(_ context.Context, cartID, productID int64, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog.mu.Lock()
	product, ok := s.catalog.products[productID]
	s.catalog.mu.Unlock()
	if !ok || qty > product.Stock {
		return false, nil
	}

	cart := s.cartByID(cartID)
	if cart == nil {
		return false, nil
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = qty
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) DeleteItem(_ context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cart := range s.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
	}
	return ErrItemNotFound
}

func (s *memStore) DeleteAllItems(_ context.Context, cartID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart := s.cartByID(cartID); cart != nil {
		cart.Items = []CartItem{}
	}
	return nil
}

func (s *memStore) cartByID(cartID int64) *Cart {
	for _, cart := range s.carts {
		if cart.ID == cartID {
			return cart
		}
	}
	return nil
}

func newTestEngine() (*Engine, *memStore, *memCatalog) {
	catalog := &memCatalog{products: map[int64]ProductSnapshot{}}
	store := &memStore{catalog: catalog, carts: map[int64]*Cart{}}
	return NewEngine(store, catalog), store, catalog
}

const ownerID = int64(1)

func TestGetOrCreateCart(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	view, err := engine.GetOrCreateCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, ownerID, view.OwnerID)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.TotalItems)
	assert.Zero(t, view.TotalPrice)

	again, err := engine.GetOrCreateCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, again.ID, "second access must reuse the owner's cart")
}

func TestAddItemMergeAndStockBound(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 10.00, Stock: 5, IsActive: true})

	view, err := engine.AddItem(ctx, ownerID, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, view.TotalItems)
	assert.Equal(t, 30.00, view.TotalPrice)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 30.00, view.Items[0].Subtotal)

	// Second add of 3 would take the line to 6 of 5; the error reports the
	// remaining increment, not the absolute stock.
	_, err = engine.AddItem(ctx, ownerID, 10, 3)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Merging)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, "only 2 more available", stockErr.Error())

	view, err = engine.AddItem(ctx, ownerID, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, view.TotalItems)
	assert.Equal(t, 50.00, view.TotalPrice)
	assert.Len(t, view.Items, 1, "duplicate adds must merge into one line")
}

func TestAddItemFreshLineReportsAbsoluteStock(t *testing.T) {
	engine, _, catalog := newTestEngine()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 2.50, Stock: 5, IsActive: true})

	_, err := engine.AddItem(context.Background(), ownerID, 10, 8)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.False(t, stockErr.Merging)
	assert.Equal(t, "only 5 available", stockErr.Error())
}

func TestAddItemValidation(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 20, Title: "Retired", Price: 9.99, Stock: 4, IsActive: false})
	catalog.set(ProductSnapshot{ID: 30, Title: "Sold out", Price: 9.99, Stock: 0, IsActive: true})

	_, err := engine.AddItem(ctx, ownerID, 99, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = engine.AddItem(ctx, ownerID, 20, 1)
	assert.ErrorIs(t, err, ErrProductInactive)

	_, err = engine.AddItem(ctx, ownerID, 30, 1)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "product is out of stock", stockErr.Error())

	_, err = engine.AddItem(ctx, ownerID, 30, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// None of the rejected adds may have created cart lines.
	view, err := engine.GetOrCreateCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestUpdateItemQuantity(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 4.00, Stock: 10, IsActive: true})

	_, err := engine.UpdateItemQuantity(ctx, ownerID, 10, 2)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = engine.AddItem(ctx, ownerID, 10, 2)
	require.NoError(t, err)

	_, err = engine.UpdateItemQuantity(ctx, ownerID, 99, 2)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = engine.UpdateItemQuantity(ctx, ownerID, 10, 11)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 10, stockErr.Available)

	view, err := engine.UpdateItemQuantity(ctx, ownerID, 10, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, view.TotalItems)
	assert.Equal(t, 28.00, view.TotalPrice)
}

func TestUpdateItemQuantityZeroIsRemoval(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 4.00, Stock: 10, IsActive: true})

	_, err := engine.AddItem(ctx, ownerID, 10, 2)
	require.NoError(t, err)

	viaUpdate, err := engine.UpdateItemQuantity(ctx, ownerID, 10, 0)
	require.NoError(t, err)

	_, err = engine.AddItem(ctx, ownerID, 10, 2)
	require.NoError(t, err)
	viaRemove, err := engine.RemoveItem(ctx, ownerID, 10)
	require.NoError(t, err)

	assert.Equal(t, viaUpdate.Items, viaRemove.Items)
	assert.Equal(t, viaUpdate.TotalItems, viaRemove.TotalItems)
	assert.Equal(t, viaUpdate.TotalPrice, viaRemove.TotalPrice)
	assert.Empty(t, viaUpdate.Items)

	// Negative quantities take the same shortcut.
	_, err = engine.AddItem(ctx, ownerID, 10, 2)
	require.NoError(t, err)
	viaNegative, err := engine.UpdateItemQuantity(ctx, ownerID, 10, -3)
	require.NoError(t, err)
	assert.Empty(t, viaNegative.Items)
}

func TestRemoveItem(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 4.00, Stock: 10, IsActive: true})

	_, err := engine.RemoveItem(ctx, ownerID, 10)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = engine.AddItem(ctx, ownerID, 10, 2)
	require.NoError(t, err)

	_, err = engine.RemoveItem(ctx, ownerID, 99)
	assert.ErrorIs(t, err, ErrItemNotFound)

	view, err := engine.RemoveItem(ctx, ownerID, 10)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestClearCart(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 4.00, Stock: 10, IsActive: true})
	catalog.set(ProductSnapshot{ID: 11, Title: "Gadget", Price: 6.00, Stock: 10, IsActive: true})

	_, err := engine.ClearCart(ctx, ownerID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = engine.AddItem(ctx, ownerID, 10, 1)
	require.NoError(t, err)
	_, err = engine.AddItem(ctx, ownerID, 11, 1)
	require.NoError(t, err)

	view, err := engine.ClearCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.TotalItems)
	assert.Zero(t, view.TotalPrice)

	// The clear really hit storage, not just the returned view.
	view, err = engine.GetOrCreateCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestTotalsFollowCurrentPrice(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 10.00, Stock: 10, IsActive: true})

	_, err := engine.AddItem(ctx, ownerID, 10, 2)
	require.NoError(t, err)

	// Price changes between reads; totals must track the catalog, never a
	// value captured at add time.
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 12.50, Stock: 10, IsActive: true})

	view, err := engine.GetOrCreateCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 25.00, view.TotalPrice)
}

func TestInactiveLineToleratedButFrozen(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 10.00, Stock: 10, IsActive: true})

	_, err := engine.AddItem(ctx, ownerID, 10, 3)
	require.NoError(t, err)

	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 10.00, Stock: 10, IsActive: false})

	// Still readable and priced.
	view, err := engine.GetOrCreateCart(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 30.00, view.TotalPrice)

	// Cannot grow...
	_, err = engine.UpdateItemQuantity(ctx, ownerID, 10, 4)
	assert.ErrorIs(t, err, ErrProductInactive)
	_, err = engine.AddItem(ctx, ownerID, 10, 1)
	assert.ErrorIs(t, err, ErrProductInactive)

	// ...but may shrink.
	view, err = engine.UpdateItemQuantity(ctx, ownerID, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalItems)
}

// deactivateOnReadCatalog flips the product inactive right after the first
// read, landing the deactivation between the engine's pre-check and the
// guarded merge.
type deactivateOnReadCatalog struct {
	*memCatalog
	once sync.Once
}

func (c *deactivateOnReadCatalog) GetByID(ctx context.Context, productID int64) (*ProductSnapshot, error) {
	snap, err := c.memCatalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	c.once.Do(func() {
		cp := *snap
		cp.IsActive = false
		c.set(cp)
	})
	return snap, err
}

func TestAddItemLosesRaceToDeactivation(t *testing.T) {
	catalog := &memCatalog{products: map[int64]ProductSnapshot{}}
	store := &memStore{catalog: catalog, carts: map[int64]*Cart{}}
	ctx := context.Background()
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 10.00, Stock: 10, IsActive: true})

	cart, err := store.Create(ctx, ownerID)
	require.NoError(t, err)
	ok, err := store.MergeItem(ctx, cart.ID, 10, 1)
	require.NoError(t, err)
	require.True(t, ok)

	// The engine's pre-read sees an active product, but by the time the
	// merge runs the product has been deactivated. The guard must refuse
	// and the conflict re-read must surface the inactive error.
	engine := NewEngine(store, &deactivateOnReadCatalog{memCatalog: catalog})
	_, err = engine.AddItem(ctx, ownerID, 10, 1)
	assert.ErrorIs(t, err, ErrProductInactive)

	got, err := store.GetByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 1, got.Items[0].Quantity, "the line must not grow after deactivation")
}

func TestConcurrentAddsNeverExceedStock(t *testing.T) {
	engine, _, catalog := newTestEngine()
	ctx := context.Background()

	const stock = 100
	const attempts = 150
	catalog.set(ProductSnapshot{ID: 10, Title: "Widget", Price: 1.00, Stock: stock, IsActive: true})

	_, err := engine.GetOrCreateCart(ctx, ownerID)
	require.NoError(t, err)

	var mu sync.Mutex
	rejected := 0

	g := new(errgroup.Group)
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := engine.AddItem(ctx, ownerID, 10, 1)
			if err != nil {
				var stockErr *StockError
				if !errors.As(err, &stockErr) {
					return err
				}
				mu.Lock()
				rejected++
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	view, err := engine.GetOrCreateCart(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, stock, view.Items[0].Quantity, "quantity must land exactly on stock")
	assert.Equal(t, attempts-stock, rejected)
}
