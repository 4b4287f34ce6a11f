package redis

import (
	"context"
	"os"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tidechain/matchbook/pkg/core"
	"github.com/tidechain/matchbook/pkg/db/queue"
	"github.com/tidechain/matchbook/pkg/messaging"
)

func TestMain(m *testing.M) {
	queue.SetSenderFactory(func() (messaging.MessageSender, error) {
		return messaging.NewMockMessageSender(), nil
	})
	os.Exit(m.Run())
}

// setupTestRedis initializes a Redis client for testing.
// It assumes Redis is running on localhost:6379.
// Flushes the DB before returning the client.
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		t.Skipf("Skipping Redis tests: Cannot connect to Redis (%v)", err)
	}
	err = client.FlushDB(context.Background()).Err()
	if err != nil {
		t.Fatalf("Failed to flush Redis DB: %v", err)
	}
	return client
}

func setupBackend(t *testing.T, prefix string) *RedisBackend {
	client := setupTestRedis(t)
	return NewRedisBackend(client, prefix, zap.NewNop())
}

func makeOrder(t *testing.T, id string, side core.Side, price, qty float64) *core.Order {
	t.Helper()
	order, err := core.NewOrder(core.TypeGTC, id, side, fpdecimal.FromFloat(price), fpdecimal.FromFloat(qty))
	require.NoError(t, err)
	return order
}

func TestRedisBackend_InsertGetRemove(t *testing.T) {
	backend := setupBackend(t, "test:crud")

	order := makeOrder(t, "o1", core.Buy, 100.0, 10.0)
	require.NoError(t, backend.Insert(order))

	stored := backend.GetOrder("o1")
	require.NotNil(t, stored)
	assert.Equal(t, "o1", stored.ID())
	assert.Equal(t, core.Buy, stored.Side())
	assert.True(t, stored.Quantity().Equal(order.Quantity()))
	assert.Equal(t, 1, backend.Size())

	assert.ErrorIs(t, backend.Insert(makeOrder(t, "o1", core.Buy, 100.0, 1.0)), core.ErrDuplicateOrderID)

	removed, err := backend.Remove("o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", removed.ID())
	assert.Equal(t, 0, backend.Size())

	_, err = backend.Remove("o1")
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestRedisBackend_BestPricesAndFront(t *testing.T) {
	backend := setupBackend(t, "test:best")

	require.NoError(t, backend.Insert(makeOrder(t, "b1", core.Buy, 99.0, 1.0)))
	require.NoError(t, backend.Insert(makeOrder(t, "b2", core.Buy, 101.0, 1.0)))
	require.NoError(t, backend.Insert(makeOrder(t, "a1", core.Sell, 103.0, 1.0)))
	require.NoError(t, backend.Insert(makeOrder(t, "a2", core.Sell, 102.0, 1.0)))

	bestBid, ok := backend.BestBid()
	require.True(t, ok)
	assert.True(t, bestBid.Equal(fpdecimal.FromFloat(101.0)))

	bestAsk, ok := backend.BestAsk()
	require.True(t, ok)
	assert.True(t, bestAsk.Equal(fpdecimal.FromFloat(102.0)))

	front := backend.FrontOrder(core.Sell)
	require.NotNil(t, front)
	assert.Equal(t, "a2", front.ID())
}

func TestRedisBackend_FIFOWithinLevel(t *testing.T) {
	backend := setupBackend(t, "test:fifo")

	require.NoError(t, backend.Insert(makeOrder(t, "first", core.Sell, 100.0, 1.0)))
	require.NoError(t, backend.Insert(makeOrder(t, "second", core.Sell, 100.0, 1.0)))
	require.NoError(t, backend.Insert(makeOrder(t, "third", core.Sell, 100.0, 1.0)))

	front := backend.FrontOrder(core.Sell)
	require.NotNil(t, front)
	assert.Equal(t, "first", front.ID())

	_, err := backend.Remove("second")
	require.NoError(t, err)
	front = backend.FrontOrder(core.Sell)
	require.NotNil(t, front)
	assert.Equal(t, "first", front.ID())

	_, err = backend.Remove("first")
	require.NoError(t, err)
	front = backend.FrontOrder(core.Sell)
	require.NotNil(t, front)
	assert.Equal(t, "third", front.ID())
}

func TestRedisBackend_LevelInfos(t *testing.T) {
	backend := setupBackend(t, "test:levels")

	require.NoError(t, backend.Insert(makeOrder(t, "o1", core.Buy, 100.0, 10.0)))
	require.NoError(t, backend.Insert(makeOrder(t, "o2", core.Buy, 100.0, 2.5)))
	require.NoError(t, backend.Insert(makeOrder(t, "o3", core.Buy, 99.0, 4.0)))

	infos := backend.LevelInfos(core.Buy)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].Price.Equal(fpdecimal.FromFloat(100.0)))
	assert.True(t, infos[0].Quantity.Equal(fpdecimal.FromFloat(12.5)))
	assert.True(t, infos[1].Price.Equal(fpdecimal.FromFloat(99.0)))
	assert.True(t, infos[1].Quantity.Equal(fpdecimal.FromFloat(4.0)))
}

func TestRedisBackend_UpdateOrder(t *testing.T) {
	backend := setupBackend(t, "test:update")

	order := makeOrder(t, "o1", core.Buy, 100.0, 10.0)
	require.NoError(t, backend.Insert(order))

	require.NoError(t, order.Fill(fpdecimal.FromFloat(4.0)))
	require.NoError(t, backend.UpdateOrder(order))

	stored := backend.GetOrder("o1")
	require.NotNil(t, stored)
	assert.True(t, stored.Quantity().Equal(fpdecimal.FromFloat(6.0)))

	assert.ErrorIs(t, backend.UpdateOrder(makeOrder(t, "ghost", core.Buy, 1.0, 1.0)), core.ErrOrderNotFound)
}

func TestRedisBackend_WithOrderBook(t *testing.T) {
	backend := setupBackend(t, "test:book")
	book := core.NewOrderBook(backend)

	ctx := context.Background()
	_, err := book.AddOrder(ctx, makeOrder(t, "bid", core.Buy, 100.0, 10.0))
	require.NoError(t, err)

	trades, err := book.AddOrder(ctx, makeOrder(t, "ask", core.Sell, 100.0, 4.0))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "bid", trades[0].Bid.OrderID)
	assert.Equal(t, "ask", trades[0].Ask.OrderID)
	assert.True(t, trades[0].Bid.Quantity.Equal(fpdecimal.FromFloat(4.0)))

	infos := book.GetOrderInfos()
	require.Len(t, infos.Bids, 1)
	assert.True(t, infos.Bids[0].Quantity.Equal(fpdecimal.FromFloat(6.0)))
	assert.Empty(t, infos.Asks)

	// An IOC ask that drains the rest of the bid: the engine only sees the
	// unmarshaled copies this backend hands out, and must still report the
	// trade instead of stumbling over the already-removed taker.
	taker, err := core.NewOrder(core.TypeIOC, "taker", core.Sell,
		fpdecimal.FromFloat(100.0), fpdecimal.FromFloat(6.0))
	require.NoError(t, err)
	trades, err = book.AddOrder(ctx, taker)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Bid.Quantity.Equal(fpdecimal.FromFloat(6.0)))
	assert.Nil(t, book.GetOrder("taker"))
	assert.Equal(t, 0, book.Size())
}
