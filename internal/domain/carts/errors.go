package carts

import (
	"errors"
	"fmt"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is not available for purchase")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// StockError reports a rejected mutation against live stock.
//
// The message deliberately differs between the two cases: when merging into
// an existing line, Available is the remaining increment (stock minus what
// the cart already holds), not the absolute stock figure. Telling a user who
// already has 3 of 5 in their cart "only 2 more available" instead of
// "only 5 available" is load-bearing copy.
type StockError struct {
	ProductID int64
	Requested int
	Available int
	Merging   bool
}

func (e *StockError) Error() string {
	switch {
	case e.Merging:
		return fmt.Sprintf("only %d more available", e.Available)
	case e.Available == 0:
		return "product is out of stock"
	default:
		return fmt.Sprintf("only %d available", e.Available)
	}
}
