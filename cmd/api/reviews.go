package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain/reviews"
	"storefront/internal/domain/users"

	"github.com/go-chi/chi/v5"
)

type CreateReviewPayload struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// createProductReviewHandler godoc
//
//	@Summary	Review a product
//	@Tags		reviews
//	@Accept		json
//	@Produce	json
//	@Param		productID	path		int					true	"Product ID"
//	@Param		payload		body		CreateReviewPayload	true	"Review"
//	@Success	201			{object}	reviews.Review
//	@Failure	400			{object}	ErrorResponse
//	@Failure	409			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{productID}/reviews [post]
func (app *application) createProductReviewHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	productID, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload CreateReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	review := &reviews.Review{
		ProductID: productID,
		UserID:    user.ID,
		Rating:    payload.Rating,
		Comment:   payload.Comment,
	}

	if err := app.store.Reviews.Create(ctx, review); err != nil {
		switch {
		case errors.Is(err, reviews.ErrDuplicate):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, review); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getProductReviewsHandler godoc
//
//	@Summary	List product reviews with stats
//	@Tags		reviews
//	@Produce	json
//	@Param		productID	path		int	true	"Product ID"
//	@Param		limit		query		int	false	"Page size"
//	@Param		offset		query		int	false	"Offset"
//	@Success	200			{object}	map[string]any
//	@Router		/products/{productID}/reviews [get]
func (app *application) getProductReviewsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	productID, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := app.store.Reviews.ListByProduct(ctx, productID, limit, offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	stats, err := app.store.Reviews.Stats(ctx, productID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := map[string]any{
		"reviews": list,
		"stats":   stats,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductReviewHandler godoc
//
//	@Summary	Delete a review
//	@Tags		reviews
//	@Param		productID	path		int	true	"Product ID"
//	@Param		reviewID	path		int	true	"Review ID"
//	@Success	204			{string}	string	"Deleted"
//	@Failure	403			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{productID}/reviews/{reviewID} [delete]
func (app *application) deleteProductReviewHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	productID, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil || reviewID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid reviewID"))
		return
	}

	review, err := app.store.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		app.notFoundResponse(w, r, err)
		return
	}

	// Only the author or an admin may delete.
	if review.UserID != user.ID && user.Role != users.RoleAdmin {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.store.Reviews.Delete(ctx, reviewID, productID); err != nil {
		switch {
		case errors.Is(err, reviews.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
