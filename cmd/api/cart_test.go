package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddCartItemPayloadValidation(t *testing.T) {
	assert.NoError(t, Validate.Struct(AddCartItemPayload{ProductID: 1, Quantity: 2}))

	// Quantity is optional; the handler defaults it to 1.
	assert.NoError(t, Validate.Struct(AddCartItemPayload{ProductID: 1}))

	assert.Error(t, Validate.Struct(AddCartItemPayload{Quantity: 2}), "product_id is required")
	assert.Error(t, Validate.Struct(AddCartItemPayload{ProductID: 1, Quantity: -1}))
}

// Any quantity, including zero and negatives, must pass validation: values
// below 1 are the removal shortcut, not a client error.
func TestUpdateCartItemPayloadAcceptsRemovalQuantities(t *testing.T) {
	assert.NoError(t, Validate.Struct(UpdateCartItemPayload{Quantity: 3}))
	assert.NoError(t, Validate.Struct(UpdateCartItemPayload{Quantity: 0}))
	assert.NoError(t, Validate.Struct(UpdateCartItemPayload{Quantity: -2}))
}
