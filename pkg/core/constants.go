package core

import "errors"

// Errors
var (
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidSide      = errors.New("invalid side")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrDuplicateOrderID = errors.New("duplicate order id")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOverFill         = errors.New("fill exceeds remaining quantity")
)
