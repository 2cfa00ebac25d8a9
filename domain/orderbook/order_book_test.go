package orderbook

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func newOrder(id string, side Side, price, qty int64, seq uint64) *Order {
	return &Order{
		ID:       id,
		ClientID: "c1",
		Symbol:   "TEST",
		Side:     side,
		Price:    price,
		Quantity: qty,
		Status:   Pending,
		Seq:      seq,
	}
}

func TestInsertAndProjections(t *testing.T) {
	b := New("TEST")

	b.Insert(newOrder("O1", Buy, 9900, 10, 1))
	b.Insert(newOrder("O2", Sell, 10100, 20, 2))

	top := b.Snapshot()
	require.Equal(t, int64(9900), top.BestBid)
	require.Equal(t, int64(10100), top.BestAsk)
	require.Equal(t, int64(10), top.BidSize)
	require.Equal(t, int64(20), top.AskSize)
	require.Equal(t, 2, b.RestingCount())
}

func TestInsertDuplicateIDPanics(t *testing.T) {
	b := New("TEST")
	b.Insert(newOrder("O1", Buy, 100, 1, 1))
	require.Panics(t, func() {
		b.Insert(newOrder("O1", Buy, 100, 1, 2))
	})
}

func TestRemoveUnlinksAndDeletesEmptyLevel(t *testing.T) {
	b := New("TEST")
	b.Insert(newOrder("O1", Buy, 100, 5, 1))
	b.Insert(newOrder("O2", Buy, 100, 7, 2))

	o, ok := b.Remove("O1")
	require.True(t, ok)
	require.Equal(t, "O1", o.ID)
	require.Equal(t, 1, b.RestingCount())
	require.Equal(t, int64(7), b.Snapshot().BidSize)

	_, ok = b.Remove("O1")
	require.False(t, ok)

	_, ok = b.Remove("O2")
	require.True(t, ok)
	require.Nil(t, b.Bids.FindLevel(100))
	require.Equal(t, TopOfBook{}, b.Snapshot())
}

func TestLevelFIFOOrder(t *testing.T) {
	b := New("TEST")
	b.Insert(newOrder("O1", Sell, 100, 1, 1))
	b.Insert(newOrder("O2", Sell, 100, 1, 2))
	b.Insert(newOrder("O3", Sell, 100, 1, 3))

	lvl := b.Best(Sell)
	var ids []string
	for o := lvl.Head(); o != nil; o = o.Next() {
		ids = append(ids, o.ID)
	}
	require.Equal(t, []string{"O1", "O2", "O3"}, ids)
}

func TestEnqueueOutOfOrderSeqPanics(t *testing.T) {
	b := New("TEST")
	b.Insert(newOrder("O1", Sell, 100, 1, 5))
	require.Panics(t, func() {
		b.Insert(newOrder("O2", Sell, 100, 1, 4))
	})
}

func TestBestPerSide(t *testing.T) {
	b := New("TEST")
	b.Insert(newOrder("O1", Buy, 9800, 1, 1))
	b.Insert(newOrder("O2", Buy, 9900, 1, 2))
	b.Insert(newOrder("O3", Sell, 10200, 1, 3))
	b.Insert(newOrder("O4", Sell, 10100, 1, 4))

	require.Equal(t, int64(9900), b.Best(Buy).Price)
	require.Equal(t, int64(10100), b.Best(Sell).Price)
}

func TestPopFrontIfFilled(t *testing.T) {
	b := New("TEST")
	o := newOrder("O1", Sell, 100, 5, 1)
	b.Insert(o)
	b.Insert(newOrder("O2", Sell, 100, 3, 2))

	// Head not filled: no-op.
	b.PopFrontIfFilled(Sell)
	require.Equal(t, 2, b.RestingCount())

	b.Fill(o, 5)
	require.Equal(t, Filled, o.Status)

	b.PopFrontIfFilled(Sell)
	require.Equal(t, 1, b.RestingCount())
	require.Equal(t, "O2", b.Best(Sell).Head().ID)
	require.Equal(t, int64(3), b.Snapshot().AskSize)
}

func TestDepth(t *testing.T) {
	b := New("TEST")
	for i := 0; i < 8; i++ {
		price := int64(10000 + i*10)
		b.Insert(newOrder(fmt.Sprintf("O%d", i), Sell, price, int64(i+1), uint64(i+1)))
	}

	depth := b.Depth(Sell, 3)
	require.Len(t, depth, 3)
	require.Equal(t, Level{Price: 10000, Qty: 1}, depth[0])
	require.Equal(t, Level{Price: 10010, Qty: 2}, depth[1])
	require.Equal(t, Level{Price: 10020, Qty: 3}, depth[2])

	require.Empty(t, b.Depth(Buy, 5))
	require.Len(t, b.Depth(Sell, 100), 8)
}

// Projections must agree with a fresh scan of the ladders after any mix of
// inserts, fills and removals.
func TestProjectionsMatchFreshScan(t *testing.T) {
	b := New("TEST")

	check := func() {
		t.Helper()
		top := b.Snapshot()

		var bestBid, bidSize int64
		if lvl := b.Bids.MaxLevel(); lvl != nil {
			bestBid = lvl.Price
			for o := lvl.Head(); o != nil; o = o.Next() {
				bidSize += o.Remaining()
			}
		}
		var bestAsk, askSize int64
		if lvl := b.Asks.MinLevel(); lvl != nil {
			bestAsk = lvl.Price
			for o := lvl.Head(); o != nil; o = o.Next() {
				askSize += o.Remaining()
			}
		}
		require.Equal(t, TopOfBook{BestBid: bestBid, BestAsk: bestAsk, BidSize: bidSize, AskSize: askSize}, top)
	}

	o1 := newOrder("O1", Buy, 9900, 10, 1)
	b.Insert(o1)
	check()
	b.Insert(newOrder("O2", Buy, 9900, 4, 2))
	check()
	b.Insert(newOrder("O3", Sell, 10000, 6, 3))
	check()
	b.Fill(o1, 3)
	check()
	_, _ = b.Remove("O2")
	check()
	_, _ = b.Remove("O1")
	check()
	_, _ = b.Remove("O3")
	check()
}

func TestAggregateQtyTracksFills(t *testing.T) {
	b := New("TEST")
	o1 := newOrder("O1", Sell, 100, 10, 1)
	o2 := newOrder("O2", Sell, 100, 10, 2)
	b.Insert(o1)
	b.Insert(o2)

	lvl := b.Best(Sell)
	require.Equal(t, int64(20), lvl.TotalQty)

	b.Fill(o1, 4)
	require.Equal(t, int64(16), lvl.TotalQty)

	sum := int64(0)
	for o := lvl.Head(); o != nil; o = o.Next() {
		sum += o.Remaining()
	}
	require.Equal(t, sum, lvl.TotalQty)
}
