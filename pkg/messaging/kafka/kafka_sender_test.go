package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidechain/matchbook/pkg/db/queue"
)

func TestNewKafkaMessageSender(t *testing.T) {
	sender, err := NewKafkaMessageSender("localhost:9092", "trades")
	require.NoError(t, err)

	assert.Equal(t, "trades", sender.topic)
	assert.Equal(t, "trades", sender.writer.Topic)
	require.NoError(t, sender.Close())
}

func TestConfigureSenderFillsPoolWithWriters(t *testing.T) {
	ConfigureSender("localhost:9092", "trades")
	defer queue.SetSenderFactory(queue.NewQueueMessageSender)

	sender := queue.GetSender()
	require.NotNil(t, sender)
	defer queue.ReturnSender(sender)

	_, ok := sender.(*KafkaMessageSender)
	assert.True(t, ok, "pool should hand out writer-based senders")
}
