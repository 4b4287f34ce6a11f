package marketmaker

import (
	"context"
)

// OrderRequest describes a single limit order to submit to the matching engine.
type OrderRequest struct {
	Book     string
	OrderID  string
	Side     string // "BUY" or "SELL"
	Type     string // "GTC" or "IOC"
	Price    string
	Quantity string
}

// PriceFetcher defines the interface for fetching current market prices
type PriceFetcher interface {
	// FetchPrice returns the current market price for the configured symbol
	FetchPrice(ctx context.Context) (float64, error)
	// Close releases any resources held by the price fetcher
	Close() error
}

// OrderPlacer defines the interface for placing and canceling orders
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req *OrderRequest) error
	CancelOrder(ctx context.Context, book, orderID string) error
	Close() error
}

// MarketMakerStrategy defines the interface for market making strategies
type MarketMakerStrategy interface {
	// CalculateOrders calculates the orders to be placed based on the current price
	CalculateOrders(ctx context.Context, currentPrice float64) ([]*OrderRequest, error)
}
