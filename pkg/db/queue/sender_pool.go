package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidechain/matchbook/pkg/messaging"
)

var (
	poolMu        sync.Mutex
	senderPool    chan messaging.MessageSender
	senderFactory = NewQueueMessageSender
	maxPoolSize   = 32
)

// SetSenderFactory replaces the sender constructor used to fill the pool and
// drops any senders created with the previous factory. Tests use this to
// install messaging.NewMockMessageSender.
func SetSenderFactory(factory func() (messaging.MessageSender, error)) {
	poolMu.Lock()
	defer poolMu.Unlock()

	if senderPool != nil {
		close(senderPool)
		for sender := range senderPool {
			_ = sender.Close()
		}
		senderPool = nil
	}
	senderFactory = factory
}

// initSenderPool populates the pool on first use
func initSenderPool() {
	if senderPool != nil {
		return
	}

	senderPool = make(chan messaging.MessageSender, maxPoolSize)
	for i := 0; i < maxPoolSize; i++ {
		sender, err := senderFactory()
		if err != nil {
			// Broker unreachable; leave the pool short and let SendMessage
			// report the condition.
			break
		}
		senderPool <- sender
	}
}

// GetSender gets a sender from the pool
func GetSender() messaging.MessageSender {
	poolMu.Lock()
	initSenderPool()
	pool := senderPool
	poolMu.Unlock()

	select {
	case sender := <-pool:
		return sender
	default:
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender messaging.MessageSender) {
	if sender == nil {
		return
	}

	poolMu.Lock()
	pool := senderPool
	poolMu.Unlock()

	select {
	case pool <- sender:
	default:
		_ = sender.Close()
	}
}

// SendMessage sends a message using a pooled sender
func SendMessage(ctx context.Context, msg *messaging.TradeMessage) error {
	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get message sender from pool")
	}

	if err := sender.SendTradeMessage(ctx, msg); err != nil {
		// Connection may be broken; do not return this sender to the pool.
		_ = sender.Close()
		return err
	}

	ReturnSender(sender)
	return nil
}
