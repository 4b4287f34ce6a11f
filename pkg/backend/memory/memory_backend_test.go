package memory

import (
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidechain/matchbook/pkg/core"
)

func dec(t *testing.T, s string) fpdecimal.Decimal {
	t.Helper()
	d, err := fpdecimal.FromString(s)
	require.NoError(t, err)
	return d
}

func newTestOrder(t *testing.T, id string, side core.Side, price, qty string) *core.Order {
	t.Helper()
	order, err := core.NewOrder(core.TypeGTC, id, side, dec(t, price), dec(t, qty))
	require.NoError(t, err)
	return order
}

func TestInsertAndGetOrder(t *testing.T) {
	b := NewMemoryBackend()

	order := newTestOrder(t, "o1", core.Buy, "100.0", "10.0")
	require.NoError(t, b.Insert(order))

	assert.Same(t, order, b.GetOrder("o1"))
	assert.Nil(t, b.GetOrder("missing"))
	assert.Equal(t, 1, b.Size())
}

func TestInsertDuplicateID(t *testing.T) {
	b := NewMemoryBackend()

	require.NoError(t, b.Insert(newTestOrder(t, "o1", core.Buy, "100.0", "10.0")))
	err := b.Insert(newTestOrder(t, "o1", core.Sell, "101.0", "5.0"))
	assert.ErrorIs(t, err, core.ErrDuplicateOrderID)
	assert.Equal(t, 1, b.Size())
}

func TestRemoveUnknownOrder(t *testing.T) {
	b := NewMemoryBackend()

	_, err := b.Remove("nope")
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestRemoveDropsEmptyLevel(t *testing.T) {
	b := NewMemoryBackend()

	require.NoError(t, b.Insert(newTestOrder(t, "o1", core.Buy, "100.0", "10.0")))
	require.NoError(t, b.Insert(newTestOrder(t, "o2", core.Buy, "99.0", "5.0")))

	removed, err := b.Remove("o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", removed.ID())

	best, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, dec(t, "99.0"), best)

	infos := b.LevelInfos(core.Buy)
	require.Len(t, infos, 1)
	assert.Equal(t, dec(t, "99.0"), infos[0].Price)
}

func TestBestPricesEmptyBook(t *testing.T) {
	b := NewMemoryBackend()

	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
	assert.Nil(t, b.FrontOrder(core.Buy))
	assert.Nil(t, b.FrontOrder(core.Sell))
}

func TestLevelOrdering(t *testing.T) {
	b := NewMemoryBackend()

	for _, tc := range []struct {
		id    string
		side  core.Side
		price string
	}{
		{"b1", core.Buy, "99.0"},
		{"b2", core.Buy, "101.0"},
		{"b3", core.Buy, "100.0"},
		{"a1", core.Sell, "103.0"},
		{"a2", core.Sell, "102.0"},
		{"a3", core.Sell, "104.0"},
	} {
		require.NoError(t, b.Insert(newTestOrder(t, tc.id, tc.side, tc.price, "1.0")))
	}

	bids := b.LevelInfos(core.Buy)
	require.Len(t, bids, 3)
	assert.Equal(t, dec(t, "101.0"), bids[0].Price)
	assert.Equal(t, dec(t, "100.0"), bids[1].Price)
	assert.Equal(t, dec(t, "99.0"), bids[2].Price)

	asks := b.LevelInfos(core.Sell)
	require.Len(t, asks, 3)
	assert.Equal(t, dec(t, "102.0"), asks[0].Price)
	assert.Equal(t, dec(t, "103.0"), asks[1].Price)
	assert.Equal(t, dec(t, "104.0"), asks[2].Price)

	bestBid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, dec(t, "101.0"), bestBid)
	bestAsk, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, dec(t, "102.0"), bestAsk)
}

func TestFIFOWithinLevel(t *testing.T) {
	b := NewMemoryBackend()

	first := newTestOrder(t, "first", core.Sell, "100.0", "1.0")
	second := newTestOrder(t, "second", core.Sell, "100.0", "1.0")
	third := newTestOrder(t, "third", core.Sell, "100.0", "1.0")
	require.NoError(t, b.Insert(first))
	require.NoError(t, b.Insert(second))
	require.NoError(t, b.Insert(third))

	assert.Same(t, first, b.FrontOrder(core.Sell))

	// Removing from the middle must not disturb arrival order.
	_, err := b.Remove("second")
	require.NoError(t, err)
	assert.Same(t, first, b.FrontOrder(core.Sell))

	_, err = b.Remove("first")
	require.NoError(t, err)
	assert.Same(t, third, b.FrontOrder(core.Sell))
}

func TestLevelAggregation(t *testing.T) {
	b := NewMemoryBackend()

	require.NoError(t, b.Insert(newTestOrder(t, "o1", core.Buy, "100.0", "10.0")))
	require.NoError(t, b.Insert(newTestOrder(t, "o2", core.Buy, "100.0", "2.5")))

	infos := b.LevelInfos(core.Buy)
	require.Len(t, infos, 1)
	assert.Equal(t, dec(t, "12.5"), infos[0].Quantity)
}

func TestUpdateOrder(t *testing.T) {
	b := NewMemoryBackend()

	order := newTestOrder(t, "o1", core.Buy, "100.0", "10.0")
	require.NoError(t, b.Insert(order))
	assert.NoError(t, b.UpdateOrder(order))

	ghost := newTestOrder(t, "ghost", core.Buy, "100.0", "10.0")
	assert.ErrorIs(t, b.UpdateOrder(ghost), core.ErrOrderNotFound)
}
