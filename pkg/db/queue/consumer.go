package queue

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/tidechain/matchbook/pkg/messaging"
)

// QueueMessageConsumer reads trade messages back off the Kafka topic. It is a
// developer convenience for tailing the queue; the engine itself never
// consumes its own output.
type QueueMessageConsumer struct {
	consumer  sarama.Consumer
	partition sarama.PartitionConsumer
	topic     string
	done      chan struct{}
}

// NewQueueMessageConsumer connects to the configured broker and starts
// consuming the trade topic from the newest offset.
func NewQueueMessageConsumer() (*QueueMessageConsumer, error) {
	brokers, t := currentConfig()

	consumer, err := sarama.NewConsumer([]string{brokers}, sarama.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	partition, err := consumer.ConsumePartition(t, 0, sarama.OffsetNewest)
	if err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("failed to consume partition: %w", err)
	}

	return &QueueMessageConsumer{
		consumer:  consumer,
		partition: partition,
		topic:     t,
		done:      make(chan struct{}),
	}, nil
}

// ConsumeTradeMessages decodes messages and passes them to handler until the
// consumer is closed. Malformed payloads are skipped.
func (c *QueueMessageConsumer) ConsumeTradeMessages(handler func(msg *messaging.TradeMessage) error) error {
	for {
		select {
		case <-c.done:
			return nil
		case err := <-c.partition.Errors():
			return err
		case raw, ok := <-c.partition.Messages():
			if !ok {
				return nil
			}

			var msg messaging.TradeMessage
			if err := json.Unmarshal(raw.Value, &msg); err != nil {
				continue
			}
			if err := handler(&msg); err != nil {
				return err
			}
		}
	}
}

// Close stops the consumer
func (c *QueueMessageConsumer) Close() error {
	close(c.done)
	if err := c.partition.Close(); err != nil {
		_ = c.consumer.Close()
		return err
	}
	return c.consumer.Close()
}
