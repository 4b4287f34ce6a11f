package server

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	redisClient "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tidechain/matchbook/pkg/backend/memory"
	"github.com/tidechain/matchbook/pkg/backend/redis"
	"github.com/tidechain/matchbook/pkg/core"
	"github.com/tidechain/matchbook/pkg/logging"
)

var (
	// ErrOrderBookExists is returned when trying to create an order book that already exists
	ErrOrderBookExists = errors.New("order book with this name already exists")

	// ErrOrderBookNotFound is returned when trying to access a non-existent order book
	ErrOrderBookNotFound = errors.New("order book not found")
)

// OrderBookInfo contains metadata about an order book
type OrderBookInfo struct {
	Name      string    `json:"name"`
	Backend   string    `json:"backend"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderBookManager manages multiple order books, one instrument per book
type OrderBookManager struct {
	mu         sync.RWMutex
	orderBooks map[string]*core.OrderBook
	info       map[string]*OrderBookInfo
	redisPool  map[string]*redisClient.Client
}

// NewOrderBookManager creates a new OrderBookManager
func NewOrderBookManager() *OrderBookManager {
	return &OrderBookManager{
		orderBooks: make(map[string]*core.OrderBook),
		info:       make(map[string]*OrderBookInfo),
		redisPool:  make(map[string]*redisClient.Client),
	}
}

// CreateMemoryOrderBook creates a new order book with in-memory backend
func (m *OrderBookManager) CreateMemoryOrderBook(ctx context.Context, name string) (*OrderBookInfo, error) {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orderBooks[name]; exists {
		logger.Error().Msg("Order book already exists")
		return nil, ErrOrderBookExists
	}

	m.orderBooks[name] = core.NewOrderBook(memory.NewMemoryBackend())
	info := &OrderBookInfo{
		Name:      name,
		Backend:   "memory",
		CreatedAt: time.Now(),
	}
	m.info[name] = info

	logger.Info().Str("backend", "memory").Msg("Created new memory order book")
	return info, nil
}

// CreateRedisOrderBook creates a new order book with Redis backend. Options:
// addr, password, db, prefix. Clients are pooled per addr/db pair.
func (m *OrderBookManager) CreateRedisOrderBook(ctx context.Context, name string, options map[string]string) (*OrderBookInfo, error) {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orderBooks[name]; exists {
		logger.Error().Msg("Order book already exists")
		return nil, ErrOrderBookExists
	}

	addr := "localhost:6379"
	password := ""
	dbStr := "0"
	prefix := name

	if val, ok := options["addr"]; ok && val != "" {
		addr = val
	}
	if val, ok := options["password"]; ok {
		password = val
	}
	if val, ok := options["db"]; ok && val != "" {
		dbStr = val
	}
	if val, ok := options["prefix"]; ok && val != "" {
		prefix = val
	}

	redisKey := addr + ":" + dbStr

	client, exists := m.redisPool[redisKey]
	if !exists {
		db, _ := strconv.Atoi(dbStr)
		client = redisClient.NewClient(&redisClient.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})

		if _, err := client.Ping(ctx).Result(); err != nil {
			logger.Error().Err(err).Msg("Failed to connect to Redis")
			return nil, err
		}
		m.redisPool[redisKey] = client
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger = zap.NewNop()
	}

	m.orderBooks[name] = core.NewOrderBook(redis.NewRedisBackend(client, prefix, zapLogger))
	info := &OrderBookInfo{
		Name:      name,
		Backend:   "redis",
		CreatedAt: time.Now(),
	}
	m.info[name] = info

	logger.Info().
		Str("backend", "redis").
		Str("addr", addr).
		Str("db", dbStr).
		Str("prefix", prefix).
		Msg("Created new Redis order book")
	return info, nil
}

// GetOrderBook retrieves an order book by name
func (m *OrderBookManager) GetOrderBook(ctx context.Context, name string) (*core.OrderBook, *OrderBookInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orderBook, exists := m.orderBooks[name]
	if !exists {
		return nil, nil, ErrOrderBookNotFound
	}
	return orderBook, m.info[name], nil
}

// DeleteOrderBook removes an order book
func (m *OrderBookManager) DeleteOrderBook(ctx context.Context, name string) error {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orderBooks[name]; !exists {
		return ErrOrderBookNotFound
	}

	delete(m.orderBooks, name)
	delete(m.info, name)

	logger.Info().Msg("Deleted order book")
	return nil
}

// ListOrderBooks returns information about all order books
func (m *OrderBookManager) ListOrderBooks(ctx context.Context) []*OrderBookInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*OrderBookInfo, 0, len(m.info))
	for _, info := range m.info {
		result = append(result, info)
	}
	return result
}

// Close closes all resources used by the manager
func (m *OrderBookManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.redisPool {
		client.Close()
	}

	m.orderBooks = make(map[string]*core.OrderBook)
	m.info = make(map[string]*OrderBookInfo)
	m.redisPool = make(map[string]*redisClient.Client)
}
