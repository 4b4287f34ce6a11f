package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side of the book
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// SideFromString parses a side name
func SideFromString(s string) (Side, error) {
	switch s {
	case "BUY", "buy":
		return Buy, nil
	case "SELL", "sell":
		return Sell, nil
	default:
		return 0, ErrInvalidSide
	}
}

// OrderType represents type of the order
type OrderType string

// Order types
const (
	TypeGTC OrderType = "GTC" // Good Till Canceled: rests in the book until filled or canceled
	TypeIOC OrderType = "IOC" // Immediate Or Cancel: unmatched remainder is discarded, never rests
)

// Order stores execution state for one order. The remaining quantity only
// changes through Fill; there is no other mutation path.
type Order struct {
	id          string
	orderType   OrderType
	side        Side
	price       fpdecimal.Decimal
	originalQty fpdecimal.Decimal
	remaining   fpdecimal.Decimal
}

// NewOrder creates a new Order. Quantity must be strictly positive.
func NewOrder(orderType OrderType, orderID string, side Side, price, quantity fpdecimal.Decimal) (*Order, error) {
	if quantity.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	return &Order{
		id:          orderID,
		orderType:   orderType,
		side:        side,
		price:       price,
		originalQty: quantity,
		remaining:   quantity,
	}, nil
}

// ID returns OrderID field copy
func (o *Order) ID() string {
	return o.id
}

// OrderType returns type of the Order
func (o *Order) OrderType() OrderType {
	return o.orderType
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Price returns Price field copy
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// Quantity returns the remaining (unfilled) quantity
func (o *Order) Quantity() fpdecimal.Decimal {
	return o.remaining
}

// OriginalQty returns the quantity the order was submitted with
func (o *Order) OriginalQty() fpdecimal.Decimal {
	return o.originalQty
}

// FilledQty returns the quantity executed so far
func (o *Order) FilledQty() fpdecimal.Decimal {
	return o.originalQty.Sub(o.remaining)
}

// Fill reduces the remaining quantity by the given amount. Filling more than
// the remaining quantity fails with ErrOverFill and leaves the order unchanged.
func (o *Order) Fill(quantity fpdecimal.Decimal) error {
	if quantity.GreaterThan(o.remaining) {
		return ErrOverFill
	}

	o.remaining = o.remaining.Sub(quantity)
	return nil
}

// IsFilled returns true once the remaining quantity reaches zero
func (o *Order) IsFilled() bool {
	return o.remaining.Equal(fpdecimal.Zero)
}

// IsIOC returns true if the Order is Immediate-Or-Cancel
func (o *Order) IsIOC() bool {
	return o.orderType == TypeIOC
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string    `json:"id"`
		OrderType   OrderType `json:"orderType"`
		Side        string    `json:"side"`
		Price       string    `json:"price"`
		OriginalQty string    `json:"originalQty"`
		Remaining   string    `json:"remaining"`
	}{
		ID:          o.id,
		OrderType:   o.orderType,
		Side:        o.side.String(),
		Price:       o.price.String(),
		OriginalQty: o.originalQty.String(),
		Remaining:   o.remaining.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string    `json:"id"`
		OrderType   OrderType `json:"orderType"`
		Side        string    `json:"side"`
		Price       string    `json:"price"`
		OriginalQty string    `json:"originalQty"`
		Remaining   string    `json:"remaining"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	side, err := SideFromString(raw.Side)
	if err != nil {
		return err
	}

	o.id = raw.ID
	o.orderType = raw.OrderType
	o.side = side

	if o.price, err = fpdecimal.FromString(raw.Price); err != nil {
		return err
	}
	if o.originalQty, err = fpdecimal.FromString(raw.OriginalQty); err != nil {
		return err
	}
	if o.remaining, err = fpdecimal.FromString(raw.Remaining); err != nil {
		return err
	}

	return nil
}

// String implements Stringer interface
func (o *Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
