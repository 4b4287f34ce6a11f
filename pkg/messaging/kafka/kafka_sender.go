package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tidechain/matchbook/pkg/db/queue"
	"github.com/tidechain/matchbook/pkg/messaging"
)

// KafkaMessageSender implements MessageSender using kafka-go
type KafkaMessageSender struct {
	writer *kafka.Writer
	topic  string
}

var _ messaging.MessageSender = (*KafkaMessageSender)(nil)

// NewKafkaMessageSender creates a new Kafka message sender
func NewKafkaMessageSender(brokerAddr, topic string) (*KafkaMessageSender, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaMessageSender{
		writer: writer,
		topic:  topic,
	}, nil
}

// ConfigureSender points the queue sender pool at writer-based senders for
// the given broker and topic, replacing the default sarama producer path.
func ConfigureSender(brokerAddr, topic string) {
	queue.SetSenderFactory(func() (messaging.MessageSender, error) {
		return NewKafkaMessageSender(brokerAddr, topic)
	})
}

// SendTradeMessage sends a trade message to Kafka
func (k *KafkaMessageSender) SendTradeMessage(ctx context.Context, trade *messaging.TradeMessage) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(trade.OrderID),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (k *KafkaMessageSender) Close() error {
	return k.writer.Close()
}
