package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nikolaydubina/fpdecimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tidechain/matchbook/pkg/db/queue"
	"github.com/tidechain/matchbook/pkg/messaging"
	"github.com/tidechain/matchbook/pkg/otel"
)

// OrderBook implements price-time priority matching over a backend. A single
// RWMutex serializes every mutating operation; Add, Cancel and Modify are
// observed by all callers in one total order, and readers never see the level
// queues and the id index out of step.
type OrderBook struct {
	mu             sync.RWMutex
	backend        OrderBookBackend
	lastTradePrice fpdecimal.Decimal
}

// NewOrderBook creates an OrderBook over the given backend
func NewOrderBook(backend OrderBookBackend) *OrderBook {
	return &OrderBook{
		backend: backend,
	}
}

// GetOrder returns the resting Order with the given id, or nil
func (ob *OrderBook) GetOrder(orderID string) *Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.backend.GetOrder(orderID)
}

// CanMatch reports whether an order on the given side at the given price
// would cross the book. An empty opposite side never matches.
func (ob *OrderBook) CanMatch(side Side, price fpdecimal.Decimal) bool {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.canMatch(side, price)
}

func (ob *OrderBook) canMatch(side Side, price fpdecimal.Decimal) bool {
	switch side {
	case Buy:
		bestAsk, ok := ob.backend.BestAsk()
		return ok && price.GreaterThanOrEqual(bestAsk)
	case Sell:
		bestBid, ok := ob.backend.BestBid()
		return ok && price.LessThanOrEqual(bestBid)
	default:
		return false
	}
}

// AddOrder submits an order to the book and runs the matching loop, returning
// the trades it produced. A GTC remainder rests in the book; an IOC order that
// cannot cross at submission time is rejected without touching the book, and
// an IOC remainder left after matching is discarded.
func (ob *OrderBook) AddOrder(ctx context.Context, order *Order) ([]Trade, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanAddOrder,
		attribute.String(otel.AttributeOrderID, order.ID()),
		attribute.String(otel.AttributeOrderSide, order.Side().String()),
		attribute.String(otel.AttributeOrderType, string(order.OrderType())),
		attribute.String(otel.AttributeOrderQuantity, order.Quantity().String()),
		attribute.String(otel.AttributeOrderPrice, order.Price().String()),
	)
	defer otel.EndSpan(span)

	ob.mu.Lock()
	trades, err := ob.addOrder(ctx, order)
	ob.mu.Unlock()

	if err != nil {
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	executed := executedQuantity(order.ID(), trades)
	otel.AddAttributes(span,
		attribute.String(otel.AttributeExecutedQuantity, executed.String()),
		attribute.String(otel.AttributeRemainingQuantity, order.OriginalQty().Sub(executed).String()),
		attribute.Int(otel.AttributeTradeCount, len(trades)),
	)
	if span != nil {
		span.SetStatus(codes.Ok, "order processed")
	}

	otel.GetOrderBookMetrics().RecordOrderAdded(ctx, string(order.OrderType()))
	ob.publishTrades(ctx, order, trades)

	return trades, nil
}

// addOrder is the lock-held submission path shared by AddOrder and ModifyOrder.
func (ob *OrderBook) addOrder(ctx context.Context, order *Order) ([]Trade, error) {
	if existing := ob.backend.GetOrder(order.ID()); existing != nil {
		return nil, ErrDuplicateOrderID
	}

	if order.IsIOC() && !ob.canMatch(order.Side(), order.Price()) {
		return []Trade{}, nil
	}

	if err := ob.backend.Insert(order); err != nil {
		return nil, err
	}

	trades, err := ob.matchOrders(ctx)
	if err != nil {
		return nil, err
	}

	// The match loop removes drained orders through the backend, so the
	// caller's object cannot be trusted here: backends that store
	// serialized copies never mutate it. Anything still resting under this
	// id is the unfilled remainder, which never rests for an IOC order.
	if order.IsIOC() && ob.backend.GetOrder(order.ID()) != nil {
		if _, err := ob.backend.Remove(order.ID()); err != nil {
			return nil, err
		}
	}

	return trades, nil
}

// executedQuantity sums the fills the order with the given id received in
// trades. Submitted orders start unfilled, so this is also their total filled
// quantity regardless of whether the backend shares order pointers.
func executedQuantity(orderID string, trades []Trade) fpdecimal.Decimal {
	total := fpdecimal.Zero
	for _, t := range trades {
		switch orderID {
		case t.Bid.OrderID:
			total = total.Add(t.Bid.Quantity)
		case t.Ask.OrderID:
			total = total.Add(t.Ask.Quantity)
		}
	}
	return total
}

// CancelOrder removes the order with the given id from the book. The level
// queue and the id index are updated in the same backend call.
func (ob *OrderBook) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanCancelOrder,
		attribute.String(otel.AttributeOrderID, orderID),
	)
	defer otel.EndSpan(span)

	ob.mu.Lock()
	order, err := ob.backend.Remove(orderID)
	ob.mu.Unlock()

	if err != nil {
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	if span != nil {
		span.SetStatus(codes.Ok, "order canceled")
	}
	otel.GetOrderBookMetrics().RecordOrderCanceled(ctx)

	return order, nil
}

// ModifyOrder replaces the order with the given id by a new order carrying
// the same id and kind but the requested side, price and quantity, then
// matches. The replacement is validated before the original is removed, so a
// failed modification leaves the book unchanged.
func (ob *OrderBook) ModifyOrder(ctx context.Context, orderID string, side Side, price, quantity fpdecimal.Decimal) ([]Trade, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanModifyOrder,
		attribute.String(otel.AttributeOrderID, orderID),
		attribute.String(otel.AttributeOrderSide, side.String()),
		attribute.String(otel.AttributeOrderQuantity, quantity.String()),
		attribute.String(otel.AttributeOrderPrice, price.String()),
	)
	defer otel.EndSpan(span)

	ob.mu.Lock()
	trades, replacement, err := ob.modifyOrder(ctx, orderID, side, price, quantity)
	ob.mu.Unlock()

	if err != nil {
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	if span != nil {
		span.SetStatus(codes.Ok, "order modified")
	}
	otel.GetOrderBookMetrics().RecordOrderModified(ctx)
	ob.publishTrades(ctx, replacement, trades)

	return trades, nil
}

func (ob *OrderBook) modifyOrder(ctx context.Context, orderID string, side Side, price, quantity fpdecimal.Decimal) ([]Trade, *Order, error) {
	existing := ob.backend.GetOrder(orderID)
	if existing == nil {
		return nil, nil, ErrOrderNotFound
	}

	// The modify request does not carry the order kind; recover it from the
	// resting order before that order is removed.
	replacement, err := NewOrder(existing.OrderType(), orderID, side, price, quantity)
	if err != nil {
		return nil, nil, err
	}

	if _, err := ob.backend.Remove(orderID); err != nil {
		return nil, nil, err
	}

	trades, err := ob.addOrder(ctx, replacement)
	if err != nil {
		return nil, nil, err
	}

	return trades, replacement, nil
}

// matchOrders crosses the book while the best bid meets or exceeds the best
// ask, always filling the front of each best level. Every iteration either
// fully drains at least one order or ends the loop.
func (ob *OrderBook) matchOrders(ctx context.Context) ([]Trade, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanMatchOrders)
	defer otel.EndSpan(span)

	var trades []Trade

	for {
		bestBid, ok := ob.backend.BestBid()
		if !ok {
			break
		}
		bestAsk, ok := ob.backend.BestAsk()
		if !ok {
			break
		}
		if bestBid.LessThan(bestAsk) {
			break
		}

		bidOrder := ob.backend.FrontOrder(Buy)
		askOrder := ob.backend.FrontOrder(Sell)

		matchQty := bidOrder.Quantity()
		if askOrder.Quantity().LessThan(matchQty) {
			matchQty = askOrder.Quantity()
		}

		if err := bidOrder.Fill(matchQty); err != nil {
			return nil, err
		}
		if err := askOrder.Fill(matchQty); err != nil {
			return nil, err
		}

		// Each side trades at its own resting price.
		trades = append(trades, Trade{
			Bid: TradeInfo{OrderID: bidOrder.ID(), Price: bidOrder.Price(), Quantity: matchQty},
			Ask: TradeInfo{OrderID: askOrder.ID(), Price: askOrder.Price(), Quantity: matchQty},
		})
		ob.lastTradePrice = askOrder.Price()

		for _, order := range []*Order{bidOrder, askOrder} {
			if order.IsFilled() {
				if _, err := ob.backend.Remove(order.ID()); err != nil {
					return nil, err
				}
			} else if err := ob.backend.UpdateOrder(order); err != nil {
				return nil, err
			}
		}
	}

	otel.AddAttributes(span, attribute.Int(otel.AttributeTradeCount, len(trades)))
	otel.GetOrderBookMetrics().RecordTradesMatched(ctx, "limit", int64(len(trades)))

	return trades, nil
}

// GetOrderInfos returns a snapshot of per-level aggregate quantities, bids in
// descending and asks in ascending price order.
func (ob *OrderBook) GetOrderInfos() OrderBookLevelInfos {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return OrderBookLevelInfos{
		Bids: ob.backend.LevelInfos(Buy),
		Asks: ob.backend.LevelInfos(Sell),
	}
}

// Size returns the number of currently resting orders
func (ob *OrderBook) Size() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.backend.Size()
}

// LastTradePrice returns the price of the most recent match
func (ob *OrderBook) LastTradePrice() fpdecimal.Decimal {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.lastTradePrice
}

// publishTrades sends the outcome of a matched submission to the message
// queue. Publish failures are recorded on the span and otherwise tolerated;
// matching results are already committed to the book.
func (ob *OrderBook) publishTrades(ctx context.Context, order *Order, trades []Trade) {
	if len(trades) == 0 {
		return
	}

	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPublishTrades,
		attribute.String(otel.AttributeOrderID, order.ID()),
		attribute.Int(otel.AttributeTradeCount, len(trades)),
	)
	defer otel.EndSpan(span)

	executed := executedQuantity(order.ID(), trades)
	msg := &messaging.TradeMessage{
		OrderID:      order.ID(),
		ExecutedQty:  executed.String(),
		RemainingQty: order.OriginalQty().Sub(executed).String(),
		Trades:       make([]messaging.Trade, 0, len(trades)),
	}
	for _, t := range trades {
		msg.Trades = append(msg.Trades, messaging.Trade{
			BidOrderID: t.Bid.OrderID,
			AskOrderID: t.Ask.OrderID,
			BidPrice:   t.Bid.Price.String(),
			AskPrice:   t.Ask.Price.String(),
			Quantity:   t.Bid.Quantity.String(),
		})
	}

	if err := queue.SendMessage(ctx, msg); err != nil {
		if span != nil {
			span.SetStatus(codes.Error, fmt.Sprintf("failed to send trade message: %v", err))
		}
		return
	}

	if span != nil {
		span.SetStatus(codes.Ok, "trade message sent")
	}
}

// String renders both sides of the book, best prices first
func (ob *OrderBook) String() string {
	infos := ob.GetOrderInfos()

	var sb strings.Builder
	sb.WriteString("Asks:\n")
	for i := len(infos.Asks) - 1; i >= 0; i-- {
		sb.WriteString(fmt.Sprintf("  %s x %s\n", infos.Asks[i].Price.String(), infos.Asks[i].Quantity.String()))
	}
	sb.WriteString("Bids:\n")
	for _, l := range infos.Bids {
		sb.WriteString(fmt.Sprintf("  %s x %s\n", l.Price.String(), l.Quantity.String()))
	}
	return sb.String()
}
