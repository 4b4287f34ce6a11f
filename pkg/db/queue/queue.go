package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/tidechain/matchbook/pkg/messaging"
)

var (
	configMu   sync.RWMutex
	brokerList = "localhost:9092"
	topic      = "matchbook-trades"
)

// SetBrokerList overrides the Kafka broker address used by new senders
func SetBrokerList(brokers string) {
	configMu.Lock()
	defer configMu.Unlock()
	brokerList = brokers
}

// SetTopic overrides the Kafka topic trade messages are published to
func SetTopic(t string) {
	configMu.Lock()
	defer configMu.Unlock()
	topic = t
}

func currentConfig() (string, string) {
	configMu.RLock()
	defer configMu.RUnlock()
	return brokerList, topic
}

// newSyncProducer is swapped out in tests
var newSyncProducer = sarama.NewSyncProducer

// QueueMessageSender implements the MessageSender interface for publishing
// trade messages to Kafka through a sarama sync producer.
type QueueMessageSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueMessageSender creates a sender connected to the configured broker
func NewQueueMessageSender() (messaging.MessageSender, error) {
	brokers, t := currentConfig()

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5

	producer, err := newSyncProducer([]string{brokers}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueMessageSender{producer: producer, topic: t}, nil
}

// SendTradeMessage publishes the TradeMessage to the Kafka queue
func (q *QueueMessageSender) SendTradeMessage(ctx context.Context, msg *messaging.TradeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal trade message: %w", err)
	}

	_, _, err = q.producer.SendMessage(&sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(msg.OrderID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close shuts down the underlying producer
func (q *QueueMessageSender) Close() error {
	return q.producer.Close()
}
