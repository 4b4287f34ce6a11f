package marketmaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MarketMaker represents the market making service
type MarketMaker struct {
	cfg          *Config
	logger       *slog.Logger
	orderPlacer  OrderPlacer
	priceFetcher PriceFetcher
	strategy     MarketMakerStrategy
	activeOrders sync.Map // map[string]bool - tracks active order IDs
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// NewMarketMaker creates a new market maker service
func NewMarketMaker(cfg *Config, logger *slog.Logger, orderPlacer OrderPlacer, priceFetcher PriceFetcher, strategy MarketMakerStrategy) (*MarketMaker, error) {
	return &MarketMaker{
		cfg:          cfg,
		logger:       logger.With("component", "MarketMaker"),
		orderPlacer:  orderPlacer,
		priceFetcher: priceFetcher,
		strategy:     strategy,
		stopCh:       make(chan struct{}),
	}, nil
}

// Start begins the market making process
func (m *MarketMaker) Start(ctx context.Context) error {
	m.logger.Info("Starting market maker service",
		"market_symbol", m.cfg.MarketSymbol,
		"update_interval", m.cfg.UpdateInterval)

	// Start the main loop in a goroutine
	m.wg.Add(1)
	go m.run(ctx)

	return nil
}

// Stop gracefully shuts down the market maker
func (m *MarketMaker) Stop(ctx context.Context) error {
	m.logger.Info("Stopping market maker service")

	// Signal the main loop to stop
	close(m.stopCh)

	// Wait for the main loop to finish with timeout
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Market maker stopped successfully")
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for market maker to stop: %w", ctx.Err())
	}

	// Cancel all active orders
	if err := m.cancelAllOrders(ctx); err != nil {
		m.logger.Error("Failed to cancel all orders during shutdown", "error", err)
		return fmt.Errorf("failed to cancel orders during shutdown: %w", err)
	}

	return nil
}

// run is the main market making loop
func (m *MarketMaker) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Context cancelled, stopping market maker loop")
			return
		case <-m.stopCh:
			m.logger.Info("Stop signal received, stopping market maker loop")
			return
		case <-ticker.C:
			if err := m.updateOrders(ctx); err != nil {
				m.logger.Error("Failed to update orders", "error", err)
				// Continue running despite errors
			}
		}
	}
}

// updateOrders performs a single iteration of the market making process
func (m *MarketMaker) updateOrders(ctx context.Context) error {
	// Fetch current price
	price, err := m.priceFetcher.FetchPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
	}

	// Calculate new orders
	orders, err := m.strategy.CalculateOrders(ctx, price)
	if err != nil {
		return fmt.Errorf("failed to calculate orders: %w", err)
	}

	// Cancel existing orders
	if err := m.cancelAllOrders(ctx); err != nil {
		return fmt.Errorf("failed to cancel existing orders: %w", err)
	}

	// Place new orders
	for _, order := range orders {
		if err := m.orderPlacer.PlaceOrder(ctx, order); err != nil {
			m.logger.Error("Failed to place order",
				"order_id", order.OrderID,
				"side", order.Side,
				"price", order.Price,
				"error", err)
			continue
		}

		// Track the new order
		m.activeOrders.Store(order.OrderID, true)

		m.logger.Debug("Successfully placed order",
			"order_id", order.OrderID,
			"side", order.Side,
			"price", order.Price)
	}

	return nil
}

// cancelAllOrders cancels all tracked active orders
func (m *MarketMaker) cancelAllOrders(ctx context.Context) error {
	var lastErr error
	m.activeOrders.Range(func(key, _ interface{}) bool {
		orderID := key.(string)

		if err := m.orderPlacer.CancelOrder(ctx, m.cfg.MarketSymbol, orderID); err != nil {
			m.logger.Error("Failed to cancel order",
				"order_id", orderID,
				"error", err)
			lastErr = err
			// Continue canceling other orders even if one fails
			return true
		}

		m.activeOrders.Delete(orderID)
		m.logger.Debug("Successfully cancelled order", "order_id", orderID)
		return true
	})

	return lastErr
}
