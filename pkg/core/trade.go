package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// TradeInfo records one side of a matched fill: the order that was filled,
// the price it executed at (its own resting price) and the matched quantity.
type TradeInfo struct {
	OrderID  string
	Price    fpdecimal.Decimal
	Quantity fpdecimal.Decimal
}

// MarshalJSON implements Marshaler interface
func (t TradeInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OrderID  string `json:"orderID"`
		Price    string `json:"price"`
		Quantity string `json:"quantity"`
	}{
		OrderID:  t.OrderID,
		Price:    t.Price.String(),
		Quantity: t.Quantity.String(),
	})
}

// Trade pairs the buy-side and sell-side fills of a single match event.
// Both fills carry the same quantity. Trades are immutable and never stored
// by the engine; they exist only in the return value of AddOrder/ModifyOrder.
type Trade struct {
	Bid TradeInfo `json:"bid"`
	Ask TradeInfo `json:"ask"`
}

// Quantity returns the matched quantity (equal on both sides)
func (t Trade) Quantity() fpdecimal.Decimal {
	return t.Bid.Quantity
}

// LevelInfo is one row of a book snapshot: a price level and the sum of the
// remaining quantities of all orders queued at it.
type LevelInfo struct {
	Price    fpdecimal.Decimal
	Quantity fpdecimal.Decimal
}

// MarshalJSON implements Marshaler interface
func (l LevelInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Price    string `json:"price"`
		Quantity string `json:"quantity"`
	}{
		Price:    l.Price.String(),
		Quantity: l.Quantity.String(),
	})
}

// OrderBookLevelInfos is a read-only projection of the book: non-empty levels
// per side in priority order (bids descending, asks ascending).
type OrderBookLevelInfos struct {
	Bids []LevelInfo `json:"bids"`
	Asks []LevelInfo `json:"asks"`
}
