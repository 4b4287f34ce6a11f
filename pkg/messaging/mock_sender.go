package messaging

import (
	"context"
	"sync"
)

// MockMessageSender records sent messages in memory. For testing.
type MockMessageSender struct {
	mu   sync.Mutex
	sent []*TradeMessage
}

// NewMockMessageSender creates a new MockMessageSender.
func NewMockMessageSender() *MockMessageSender {
	return &MockMessageSender{}
}

// SendTradeMessage records the message.
func (m *MockMessageSender) SendTradeMessage(ctx context.Context, msg *TradeMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MockMessageSender) Sent() []*TradeMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*TradeMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Reset drops the recorded messages.
func (m *MockMessageSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

// Close does nothing.
func (m *MockMessageSender) Close() error {
	return nil
}

// Ensure MockMessageSender implements MessageSender
var _ MessageSender = (*MockMessageSender)(nil)
