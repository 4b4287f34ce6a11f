package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tidechain/matchbook/pkg/core"
)

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// RedisBackend keeps the book in Redis so it survives process restarts.
// Orders live in one hash keyed by id, each side's prices in a ZSET, and
// each level's arrival order in a LIST of order ids. Like the in-memory
// backend it does no locking of its own; the OrderBook serializes access.
// Removal from inside a level uses LREM, which walks the list server-side.
type RedisBackend struct {
	client    *redis.Client
	ctx       context.Context
	prefix    string
	ordersKey string
	bidsKey   string
	asksKey   string
	logger    *zap.Logger
}

// NewRedisBackend creates a new instance of RedisBackend
func NewRedisBackend(client *redis.Client, prefix string, logger *zap.Logger) *RedisBackend {
	return &RedisBackend{
		client:    client,
		ctx:       context.Background(),
		prefix:    prefix,
		ordersKey: fmt.Sprintf("%s:orders", prefix),
		bidsKey:   fmt.Sprintf("%s:bids", prefix),
		asksKey:   fmt.Sprintf("%s:asks", prefix),
		logger:    logger,
	}
}

var _ core.OrderBookBackend = (*RedisBackend)(nil)

func (b *RedisBackend) sideKey(side core.Side) string {
	if side == core.Buy {
		return b.bidsKey
	}
	return b.asksKey
}

func (b *RedisBackend) levelKey(side core.Side, priceStr string) string {
	return fmt.Sprintf("%s:level:%s:%s", b.prefix, side.String(), priceStr)
}

func priceScore(price fpdecimal.Decimal) float64 {
	score, err := strconv.ParseFloat(price.String(), 64)
	if err != nil {
		return 0
	}
	return score
}

// GetOrder retrieves an order from the orders hash by its id
func (b *RedisBackend) GetOrder(orderID string) *core.Order {
	data, err := b.client.HGet(b.ctx, b.ordersKey, orderID).Bytes()
	if err != nil {
		if err != redis.Nil {
			b.logger.Error("failed to get order",
				zap.String("orderID", orderID),
				zap.Error(err))
		}
		return nil
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		b.logger.Error("failed to unmarshal order",
			zap.String("orderID", orderID),
			zap.Error(err))
		return nil
	}

	return &order
}

// Insert stores the order, appends its id to the level list and registers
// the level price in the side's ZSET, all in one pipeline.
func (b *RedisBackend) Insert(order *core.Order) error {
	exists, err := b.client.HExists(b.ctx, b.ordersKey, order.ID()).Result()
	if err != nil {
		return fmt.Errorf("failed to check order existence: %w", err)
	}
	if exists {
		return core.ErrDuplicateOrderID
	}

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	priceStr := order.Price().String()
	pipe := b.client.TxPipeline()
	pipe.HSet(b.ctx, b.ordersKey, order.ID(), data)
	pipe.RPush(b.ctx, b.levelKey(order.Side(), priceStr), order.ID())
	pipe.ZAdd(b.ctx, b.sideKey(order.Side()), redis.Z{
		Score:  priceScore(order.Price()),
		Member: priceStr,
	})
	if _, err := pipe.Exec(b.ctx); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// UpdateOrder rewrites the stored order after a partial fill
func (b *RedisBackend) UpdateOrder(order *core.Order) error {
	exists, err := b.client.HExists(b.ctx, b.ordersKey, order.ID()).Result()
	if err != nil {
		return fmt.Errorf("failed to check order existence: %w", err)
	}
	if !exists {
		return core.ErrOrderNotFound
	}

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := b.client.HSet(b.ctx, b.ordersKey, order.ID(), data).Err(); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	return nil
}

// Remove deletes the order from the hash and its level list, dropping the
// level from the side's ZSET when the list drains.
func (b *RedisBackend) Remove(orderID string) (*core.Order, error) {
	order := b.GetOrder(orderID)
	if order == nil {
		return nil, core.ErrOrderNotFound
	}

	priceStr := order.Price().String()
	levelKey := b.levelKey(order.Side(), priceStr)

	pipe := b.client.TxPipeline()
	pipe.HDel(b.ctx, b.ordersKey, orderID)
	pipe.LRem(b.ctx, levelKey, 1, orderID)
	llen := pipe.LLen(b.ctx, levelKey)
	if _, err := pipe.Exec(b.ctx); err != nil {
		return nil, fmt.Errorf("failed to remove order: %w", err)
	}

	if llen.Val() == 0 {
		pipe := b.client.TxPipeline()
		pipe.Del(b.ctx, levelKey)
		pipe.ZRem(b.ctx, b.sideKey(order.Side()), priceStr)
		if _, err := pipe.Exec(b.ctx); err != nil {
			return nil, fmt.Errorf("failed to drop empty level: %w", err)
		}
	}

	return order, nil
}

func (b *RedisBackend) bestPrice(side core.Side) (fpdecimal.Decimal, bool) {
	var members []string
	var err error
	if side == core.Buy {
		members, err = b.client.ZRevRange(b.ctx, b.bidsKey, 0, 0).Result()
	} else {
		members, err = b.client.ZRange(b.ctx, b.asksKey, 0, 0).Result()
	}
	if err != nil {
		b.logger.Error("failed to read best price",
			zap.String("side", side.String()),
			zap.Error(err))
		return fpdecimal.Zero, false
	}
	if len(members) == 0 {
		return fpdecimal.Zero, false
	}

	price, err := fpdecimal.FromString(members[0])
	if err != nil {
		b.logger.Error("failed to parse level price",
			zap.String("price", members[0]),
			zap.Error(err))
		return fpdecimal.Zero, false
	}
	return price, true
}

// BestBid returns the highest bid price, false when there are no bids
func (b *RedisBackend) BestBid() (fpdecimal.Decimal, bool) {
	return b.bestPrice(core.Buy)
}

// BestAsk returns the lowest ask price, false when there are no asks
func (b *RedisBackend) BestAsk() (fpdecimal.Decimal, bool) {
	return b.bestPrice(core.Sell)
}

// FrontOrder returns the first order in line at the side's best level
func (b *RedisBackend) FrontOrder(side core.Side) *core.Order {
	price, ok := b.bestPrice(side)
	if !ok {
		return nil
	}

	orderID, err := b.client.LIndex(b.ctx, b.levelKey(side, price.String()), 0).Result()
	if err != nil {
		if err != redis.Nil {
			b.logger.Error("failed to read level front",
				zap.String("side", side.String()),
				zap.Error(err))
		}
		return nil
	}

	return b.GetOrder(orderID)
}

// Size returns the number of resting orders
func (b *RedisBackend) Size() int {
	count, err := b.client.HLen(b.ctx, b.ordersKey).Result()
	if err != nil {
		b.logger.Error("failed to read order count", zap.Error(err))
		return 0
	}
	return int(count)
}

// LevelInfos returns (price, aggregate quantity) per non-empty level in the
// side's priority order.
func (b *RedisBackend) LevelInfos(side core.Side) []core.LevelInfo {
	var members []string
	var err error
	if side == core.Buy {
		members, err = b.client.ZRevRange(b.ctx, b.bidsKey, 0, -1).Result()
	} else {
		members, err = b.client.ZRange(b.ctx, b.asksKey, 0, -1).Result()
	}
	if err != nil {
		b.logger.Error("failed to list levels",
			zap.String("side", side.String()),
			zap.Error(err))
		return nil
	}

	infos := make([]core.LevelInfo, 0, len(members))
	for _, priceStr := range members {
		price, err := fpdecimal.FromString(priceStr)
		if err != nil {
			b.logger.Error("failed to parse level price",
				zap.String("price", priceStr),
				zap.Error(err))
			continue
		}

		orderIDs, err := b.client.LRange(b.ctx, b.levelKey(side, priceStr), 0, -1).Result()
		if err != nil {
			b.logger.Error("failed to list level orders",
				zap.String("price", priceStr),
				zap.Error(err))
			continue
		}

		total := fpdecimal.Zero
		for _, id := range orderIDs {
			if order := b.GetOrder(id); order != nil {
				total = total.Add(order.Quantity())
			}
		}

		infos = append(infos, core.LevelInfo{Price: price, Quantity: total})
	}

	return infos
}

// Flush deletes every key belonging to this book. Test helper.
func (b *RedisBackend) Flush() error {
	iter := b.client.Scan(b.ctx, 0, b.prefix+":*", 0).Iterator()
	for iter.Next(b.ctx) {
		if err := b.client.Del(b.ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
