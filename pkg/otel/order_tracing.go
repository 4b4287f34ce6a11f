package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Span names
	SpanSubmitOrder   = "submit_order"
	SpanAddOrder      = "add_order"
	SpanCancelOrder   = "cancel_order"
	SpanModifyOrder   = "modify_order"
	SpanMatchOrders   = "match_orders"
	SpanPublishTrades = "publish_trades"

	// Attribute keys
	AttributeOrderID           = "order.id"
	AttributeOrderSide         = "order.side"
	AttributeOrderType         = "order.type"
	AttributeOrderQuantity     = "order.quantity"
	AttributeOrderPrice        = "order.price"
	AttributeExecutedQuantity  = "order.executed_quantity"
	AttributeRemainingQuantity = "order.remaining_quantity"
	AttributeTradeCount        = "trade.count"
)

// StartOrderSpan starts a span for an order book operation, picking the
// tracer by span name. Returns a nil span when tracing is disabled.
func StartOrderSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	var tracer trace.Tracer

	switch name {
	case SpanSubmitOrder:
		tracer = GetAPITracer()
	case SpanAddOrder, SpanCancelOrder, SpanModifyOrder, SpanMatchOrders, SpanPublishTrades:
		tracer = GetMatchingEngineTracer()
	default:
		tracer = GetAPITracer()
	}

	if tracer == nil {
		return ctx, nil
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to a span
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}

// EndSpan ends a span if one was started
func EndSpan(span trace.Span) {
	if span == nil {
		return
	}
	span.End()
}
