package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// orderBookMetrics holds the singleton instance
	orderBookMetrics *OrderBookMetrics
	// meter is the global meter for order book metrics
	meter = otel.GetMeterProvider().Meter(instrumentationName)
)

// OrderBookMetrics holds metrics for order book operations
type OrderBookMetrics struct {
	ordersAddedTotal    metric.Int64Counter
	ordersCanceledTotal metric.Int64Counter
	ordersModifiedTotal metric.Int64Counter
	tradesMatchedTotal  metric.Int64Counter
}

// GetOrderBookMetrics returns the OrderBookMetrics singleton
func GetOrderBookMetrics() *OrderBookMetrics {
	if orderBookMetrics == nil {
		ordersAdded, err := meter.Int64Counter(
			"orderbook.orders_added.total",
			metric.WithDescription("Total number of orders accepted into the book"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}
		ordersCanceled, err := meter.Int64Counter(
			"orderbook.orders_canceled.total",
			metric.WithDescription("Total number of orders canceled"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}
		ordersModified, err := meter.Int64Counter(
			"orderbook.orders_modified.total",
			metric.WithDescription("Total number of orders modified"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}
		tradesMatched, err := meter.Int64Counter(
			"orderbook.trades_matched.total",
			metric.WithDescription("Total number of trades produced by matching"),
			metric.WithUnit("{trade}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}

		orderBookMetrics = &OrderBookMetrics{
			ordersAddedTotal:    ordersAdded,
			ordersCanceledTotal: ordersCanceled,
			ordersModifiedTotal: ordersModified,
			tradesMatchedTotal:  tradesMatched,
		}
	}

	return orderBookMetrics
}

// RecordOrderAdded increments the accepted orders counter
func (m *OrderBookMetrics) RecordOrderAdded(ctx context.Context, orderType string) {
	if m.ordersAddedTotal == nil {
		return
	}
	m.ordersAddedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("order.type", orderType),
	))
}

// RecordOrderCanceled increments the canceled orders counter
func (m *OrderBookMetrics) RecordOrderCanceled(ctx context.Context) {
	if m.ordersCanceledTotal == nil {
		return
	}
	m.ordersCanceledTotal.Add(ctx, 1)
}

// RecordOrderModified increments the modified orders counter
func (m *OrderBookMetrics) RecordOrderModified(ctx context.Context) {
	if m.ordersModifiedTotal == nil {
		return
	}
	m.ordersModifiedTotal.Add(ctx, 1)
}

// RecordTradesMatched adds to the matched trades counter
func (m *OrderBookMetrics) RecordTradesMatched(ctx context.Context, orderType string, count int64) {
	if m.tradesMatchedTotal == nil {
		return
	}
	m.tradesMatchedTotal.Add(ctx, count, metric.WithAttributes(
		attribute.String("order.type", orderType),
	))
}
