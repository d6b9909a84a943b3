package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain/carts"

	"github.com/go-chi/chi/v5"
)

// Cart operations always act on the caller's own cart: the owner id comes
// from the authenticated user in the request context, never from the
// request body or URL.

// cartError maps engine errors onto the response taxonomy. Anything not in
// the expected set is an internal failure.
func (app *application) cartError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *carts.StockError
	switch {
	case errors.Is(err, carts.ErrCartNotFound),
		errors.Is(err, carts.ErrItemNotFound),
		errors.Is(err, carts.ErrProductNotFound):
		app.notFoundResponse(w, r, err)
	case errors.As(err, &stockErr),
		errors.Is(err, carts.ErrProductInactive),
		errors.Is(err, carts.ErrInvalidQuantity):
		app.badRequestResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}

// getCartHandler godoc
//
//	@Summary		Get the caller's cart
//	@Description	Returns the cart with live product data and derived totals, creating an empty cart on first access
//	@Tags			cart
//	@Produce		json
//	@Success		200	{object}	carts.CartView
//	@Failure		401	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	view, err := app.store.Carts.GetOrCreateCart(ctx, user.ID)
	if err != nil {
		app.cartError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

type AddCartItemPayload struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"omitempty,gte=1"`
}

// addCartItemHandler godoc
//
//	@Summary		Add a product to the cart
//	@Description	Inserts a new line or merges into an existing one; the resulting quantity must be covered by current stock
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AddCartItemPayload	true	"Product and quantity"
//	@Success		201		{object}	carts.CartView
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/cart/items [post]
func (app *application) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	var payload AddCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}

	var view *carts.CartView
	err := app.store.WithCartTx(ctx, func(e *carts.Engine) error {
		var txErr error
		view, txErr = e.AddItem(ctx, user.ID, payload.ProductID, payload.Quantity)
		return txErr
	})
	if err != nil {
		app.cartError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateCartItemPayload struct {
	Quantity int `json:"quantity"`
}

// updateCartItemHandler godoc
//
//	@Summary		Set a cart line to an absolute quantity
//	@Description	Any quantity below 1 removes the line
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int						true	"Product ID"
//	@Param			payload		body		UpdateCartItemPayload	true	"New quantity"
//	@Success		200			{object}	carts.CartView
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/cart/items/{productID} [patch]
func (app *application) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid productID"))
		return
	}

	var payload UpdateCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var view *carts.CartView
	err = app.store.WithCartTx(ctx, func(e *carts.Engine) error {
		var txErr error
		view, txErr = e.UpdateItemQuantity(ctx, user.ID, productID, payload.Quantity)
		return txErr
	})
	if err != nil {
		app.cartError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// removeCartItemHandler godoc
//
//	@Summary	Remove a product from the cart
//	@Tags		cart
//	@Produce	json
//	@Param		productID	path		int	true	"Product ID"
//	@Success	200			{object}	carts.CartView
//	@Failure	404			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/cart/items/{productID} [delete]
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid productID"))
		return
	}

	view, err := app.store.Carts.RemoveItem(ctx, user.ID, productID)
	if err != nil {
		app.cartError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// clearCartHandler godoc
//
//	@Summary	Remove every item from the cart
//	@Tags		cart
//	@Produce	json
//	@Success	200	{object}	carts.CartView
//	@Failure	404	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/cart [delete]
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	view, err := app.store.Carts.ClearCart(ctx, user.ID)
	if err != nil {
		app.cartError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}
