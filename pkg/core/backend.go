package core

import "github.com/nikolaydubina/fpdecimal"

// OrderBookBackend defines the storage contract for the two side collections
// and the order id index. Every call that touches a price level queue must
// update the id index in the same call; the two structures never diverge.
type OrderBookBackend interface {
	// GetOrder returns the resting order with the given id, or nil
	GetOrder(orderID string) *Order

	// Insert appends the order to the FIFO queue at its price level on its
	// declared side, creating the level if absent, and registers the order in
	// the id index. Fails with ErrDuplicateOrderID, leaving the book unchanged.
	Insert(order *Order) error

	// UpdateOrder persists the current state of a partially filled order.
	// Fails with ErrOrderNotFound if the order is not resting.
	UpdateOrder(order *Order) error

	// Remove unlinks the order from its level queue in O(1) using the handle
	// stored at insert time, drops the level if it became empty, and deletes
	// the index entry. Fails with ErrOrderNotFound.
	Remove(orderID string) (*Order, error)

	// BestBid returns the highest bid price, if any level exists
	BestBid() (fpdecimal.Decimal, bool)

	// BestAsk returns the lowest ask price, if any level exists
	BestAsk() (fpdecimal.Decimal, bool)

	// FrontOrder returns the oldest order at the best level of the given side,
	// or nil when the side is empty
	FrontOrder(side Side) *Order

	// Size returns the number of resting orders
	Size() int

	// LevelInfos returns the per-level aggregate remaining quantity for the
	// given side, in the side's priority order
	LevelInfos(side Side) []LevelInfo
}
