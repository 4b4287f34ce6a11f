package memory

import (
	"container/list"
	"fmt"
	"strings"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/tidechain/matchbook/pkg/core"
)

// OrderQueue represents a price level: a strict FIFO of resting orders at one
// price. The list elements carry *core.Order values and the id index holds
// the element handles, so removal anywhere in the queue is O(1).
type OrderQueue struct {
	orders    *list.List
	priceStr  string
	priceDecm fpdecimal.Decimal
	next      *OrderQueue
	prev      *OrderQueue
}

// NewOrderQueue creates a new OrderQueue with the given price
func NewOrderQueue(price fpdecimal.Decimal) *OrderQueue {
	return &OrderQueue{
		orders:    list.New(),
		priceStr:  price.String(),
		priceDecm: price,
	}
}

// Front returns the earliest-arrived order in the level, or nil
func (q *OrderQueue) Front() *core.Order {
	front := q.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*core.Order)
}

// Len returns the number of orders queued at this level
func (q *OrderQueue) Len() int {
	return q.orders.Len()
}

// TotalQuantity sums the remaining quantity of every queued order
func (q *OrderQueue) TotalQuantity() fpdecimal.Decimal {
	total := fpdecimal.Zero
	for e := q.orders.Front(); e != nil; e = e.Next() {
		total = total.Add(e.Value.(*core.Order).Quantity())
	}
	return total
}

// OrderSide holds one side's price levels as a doubly linked list sorted by
// price priority (bids descending, asks ascending) with a price index for
// O(1) level lookup.
type OrderSide struct {
	head     *OrderQueue
	tail     *OrderQueue
	levels   map[string]*OrderQueue
	side     core.Side
	bestWins func(candidate, incumbent fpdecimal.Decimal) bool
}

// NewOrderSide creates the level collection for the given side
func NewOrderSide(side core.Side) *OrderSide {
	os := &OrderSide{
		levels: make(map[string]*OrderQueue),
		side:   side,
	}
	if side == core.Buy {
		os.bestWins = func(candidate, incumbent fpdecimal.Decimal) bool {
			return candidate.GreaterThan(incumbent)
		}
	} else {
		os.bestWins = func(candidate, incumbent fpdecimal.Decimal) bool {
			return candidate.LessThan(incumbent)
		}
	}
	return os
}

// getOrCreateQueue returns the level at price, splicing a new one into its
// sorted position when absent.
func (os *OrderSide) getOrCreateQueue(price fpdecimal.Decimal) *OrderQueue {
	priceStr := price.String()
	if queue, ok := os.levels[priceStr]; ok {
		return queue
	}

	queue := NewOrderQueue(price)
	os.levels[priceStr] = queue

	if os.head == nil {
		os.head = queue
		os.tail = queue
		return queue
	}

	current := os.head
	for current != nil && !os.bestWins(price, current.priceDecm) {
		current = current.next
	}

	switch {
	case current == os.head:
		queue.next = os.head
		os.head.prev = queue
		os.head = queue
	case current == nil:
		queue.prev = os.tail
		os.tail.next = queue
		os.tail = queue
	default:
		queue.prev = current.prev
		queue.next = current
		current.prev.next = queue
		current.prev = queue
	}

	return queue
}

// dropIfEmpty unlinks the level when its queue has drained
func (os *OrderSide) dropIfEmpty(queue *OrderQueue) {
	if queue.Len() > 0 {
		return
	}

	delete(os.levels, queue.priceStr)

	if queue.prev != nil {
		queue.prev.next = queue.next
	} else {
		os.head = queue.next
	}
	if queue.next != nil {
		queue.next.prev = queue.prev
	} else {
		os.tail = queue.prev
	}
	queue.prev = nil
	queue.next = nil
}

// Best returns the side's best price, false when the side is empty
func (os *OrderSide) Best() (fpdecimal.Decimal, bool) {
	if os.head == nil {
		return fpdecimal.Zero, false
	}
	return os.head.priceDecm, true
}

// FrontOrder returns the first-arrived order at the best level, or nil
func (os *OrderSide) FrontOrder() *core.Order {
	if os.head == nil {
		return nil
	}
	return os.head.Front()
}

// LevelInfos walks the levels in priority order and aggregates quantities
func (os *OrderSide) LevelInfos() []core.LevelInfo {
	infos := make([]core.LevelInfo, 0, len(os.levels))
	for current := os.head; current != nil; current = current.next {
		infos = append(infos, core.LevelInfo{
			Price:    current.priceDecm,
			Quantity: current.TotalQuantity(),
		})
	}
	return infos
}

// String implements fmt.Stringer interface
func (os *OrderSide) String() string {
	sb := strings.Builder{}
	for current := os.head; current != nil; current = current.next {
		sb.WriteString(fmt.Sprintf("\n%s -> orders: %d", current.priceStr, current.Len()))
	}
	return sb.String()
}

// orderEntry ties an order to its queue position so that the level queue and
// the id index are always updated through the same backend call.
type orderEntry struct {
	order *core.Order
	elem  *list.Element
	queue *OrderQueue
}

// MemoryBackend keeps the whole book in process memory. It does no locking
// of its own; the OrderBook serializes access.
type MemoryBackend struct {
	bids   *OrderSide
	asks   *OrderSide
	orders map[string]*orderEntry
}

// NewMemoryBackend creates an empty in-memory book
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		bids:   NewOrderSide(core.Buy),
		asks:   NewOrderSide(core.Sell),
		orders: make(map[string]*orderEntry),
	}
}

var _ core.OrderBookBackend = (*MemoryBackend)(nil)

func (b *MemoryBackend) sideOf(side core.Side) *OrderSide {
	if side == core.Buy {
		return b.bids
	}
	return b.asks
}

// GetOrder returns the resting order with the given id, or nil
func (b *MemoryBackend) GetOrder(orderID string) *core.Order {
	entry, ok := b.orders[orderID]
	if !ok {
		return nil
	}
	return entry.order
}

// Insert appends the order to its price level, creating the level when
// absent, and registers it in the id index.
func (b *MemoryBackend) Insert(order *core.Order) error {
	if _, ok := b.orders[order.ID()]; ok {
		return core.ErrDuplicateOrderID
	}

	queue := b.sideOf(order.Side()).getOrCreateQueue(order.Price())
	elem := queue.orders.PushBack(order)
	b.orders[order.ID()] = &orderEntry{order: order, elem: elem, queue: queue}

	return nil
}

// UpdateOrder is a no-op here since orders are held by pointer; it still
// validates that the order is resting.
func (b *MemoryBackend) UpdateOrder(order *core.Order) error {
	if _, ok := b.orders[order.ID()]; !ok {
		return core.ErrOrderNotFound
	}
	return nil
}

// Remove unlinks the order from its level queue via the stored handle and
// deletes its index entry, dropping the level if it drained.
func (b *MemoryBackend) Remove(orderID string) (*core.Order, error) {
	entry, ok := b.orders[orderID]
	if !ok {
		return nil, core.ErrOrderNotFound
	}

	entry.queue.orders.Remove(entry.elem)
	delete(b.orders, orderID)
	b.sideOf(entry.order.Side()).dropIfEmpty(entry.queue)

	return entry.order, nil
}

// BestBid returns the highest bid price, false when there are no bids
func (b *MemoryBackend) BestBid() (fpdecimal.Decimal, bool) {
	return b.bids.Best()
}

// BestAsk returns the lowest ask price, false when there are no asks
func (b *MemoryBackend) BestAsk() (fpdecimal.Decimal, bool) {
	return b.asks.Best()
}

// FrontOrder returns the first order in line at the side's best level
func (b *MemoryBackend) FrontOrder(side core.Side) *core.Order {
	return b.sideOf(side).FrontOrder()
}

// Size returns the number of resting orders
func (b *MemoryBackend) Size() int {
	return len(b.orders)
}

// LevelInfos returns (price, aggregate quantity) per non-empty level in the
// side's priority order.
func (b *MemoryBackend) LevelInfos(side core.Side) []core.LevelInfo {
	return b.sideOf(side).LevelInfos()
}

// String implements fmt.Stringer interface
func (b *MemoryBackend) String() string {
	return fmt.Sprintf("Bids:%s\nAsks:%s", b.bids, b.asks)
}
