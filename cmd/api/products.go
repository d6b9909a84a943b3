package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain/products"

	"github.com/go-chi/chi/v5"
)

// publicCode derives the shareable opaque code for a product id.
func (app *application) publicCode(id int64) string {
	code, err := app.codes.EncodeInt64([]int64{id})
	if err != nil {
		return ""
	}
	return code
}

func (app *application) withPublicCode(p *products.Product) *products.Product {
	p.PublicCode = app.publicCode(p.ID)
	return p
}

func productIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid productID")
	}
	return id, nil
}

// listProductsHandler godoc
//
//	@Summary	List products
//	@Tags		products
//	@Produce	json
//	@Param		limit	query		int		false	"Page size"
//	@Param		offset	query		int		false	"Offset"
//	@Param		all		query		bool	false	"Include inactive products"
//	@Success	200		{object}	map[string]any
//	@Router		/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	includeAll, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	list, total, err := app.store.Products.List(ctx, !includeAll, limit, offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	for _, p := range list {
		app.withPublicCode(p)
	}

	resp := map[string]any{
		"products": list,
		"total":    total,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getProductHandler godoc
//
//	@Summary	Get one product
//	@Tags		products
//	@Produce	json
//	@Param		productID	path		int	true	"Product ID"
//	@Success	200			{object}	products.Product
//	@Failure	404			{object}	ErrorResponse
//	@Router		/products/{productID} [get]
func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	product, err := app.store.Products.GetByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, products.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, app.withPublicCode(product)); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateProductPayload struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	IsActive    *bool   `json:"is_active"`
}

// createProductHandler godoc
//
//	@Summary	Create a product
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		CreateProductPayload	true	"Product"
//	@Success	201		{object}	products.Product
//	@Failure	400		{object}	ErrorResponse
//	@Failure	403		{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products [post]
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var payload CreateProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	product := &products.Product{
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Stock:       payload.Stock,
		IsActive:    active,
	}

	if err := app.store.Products.Create(ctx, product); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, app.withPublicCode(product)); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateProductPayload struct {
	Title       *string  `json:"title" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	IsActive    *bool    `json:"is_active"`
}

// updateProductHandler godoc
//
//	@Summary	Partially update a product
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		productID	path		int						true	"Product ID"
//	@Param		payload		body		UpdateProductPayload	true	"Fields to update"
//	@Success	200			{object}	products.Product
//	@Failure	404			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{productID} [patch]
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload UpdateProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	fields := map[string]any{}
	if payload.Title != nil {
		fields["title"] = *payload.Title
	}
	if payload.Description != nil {
		fields["description"] = *payload.Description
	}
	if payload.Price != nil {
		fields["price"] = *payload.Price
	}
	if payload.Stock != nil {
		fields["stock"] = *payload.Stock
	}
	if payload.IsActive != nil {
		fields["is_active"] = *payload.IsActive
	}

	product, err := app.store.Products.Update(ctx, id, fields)
	if err != nil {
		switch {
		case errors.Is(err, products.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, app.withPublicCode(product)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductHandler godoc
//
//	@Summary	Delete a product
//	@Tags		products
//	@Param		productID	path		int	true	"Product ID"
//	@Success	204			{string}	string	"Deleted"
//	@Failure	404			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{productID} [delete]
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Products.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, products.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type AdjustStockPayload struct {
	Delta int `json:"delta" validate:"required"`
}

// adjustProductStockHandler godoc
//
//	@Summary		Adjust product stock
//	@Description	Applies a relative delta as one atomic counter update; stock never goes below zero
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int					true	"Product ID"
//	@Param			payload		body		AdjustStockPayload	true	"Delta"
//	@Success		200			{object}	products.Product
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/products/{productID}/stock [patch]
func (app *application) adjustProductStockHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload AdjustStockPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	product, err := app.store.Products.AdjustStock(ctx, id, payload.Delta)
	if err != nil {
		switch {
		case errors.Is(err, products.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, products.ErrStockNegative):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, app.withPublicCode(product)); err != nil {
		app.internalServerError(w, r, err)
	}
}
