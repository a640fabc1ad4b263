package service

import "errors"

// Error kinds. Specific errors below and in the other files wrap one of these
// so handlers can map them with errors.Is.
var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrEmptyCart  = errors.New("cart is empty")
	ErrCheckout   = errors.New("checkout failed")
)
