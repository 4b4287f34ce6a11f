package messaging

import "context"

// MessageSender defines an interface for sending messages. This decouples the
// core package from the concrete Kafka implementations in pkg/db/queue and
// pkg/messaging/kafka.
type MessageSender interface {
	SendTradeMessage(ctx context.Context, msg *TradeMessage) error
	Close() error
}

// TradeMessage carries the execution result of one order submission outward.
type TradeMessage struct {
	OrderID      string  `json:"orderID"`
	ExecutedQty  string  `json:"executedQty"`
	RemainingQty string  `json:"remainingQty"`
	Trades       []Trade `json:"trades"`
}

// Trade represents a single matched fill as published outward. Each side
// carries its own execution price: the price of the order as it rested in
// the book.
type Trade struct {
	BidOrderID string `json:"bidOrderID"`
	AskOrderID string `json:"askOrderID"`
	BidPrice   string `json:"bidPrice"`
	AskPrice   string `json:"askPrice"`
	Quantity   string `json:"quantity"`
}
