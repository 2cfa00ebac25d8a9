package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"hermes/domain/orderbook"
)

// slowBook is the reference oracle: sorted-nothing, linear scans everywhere.
// It implements the same price-time priority matching over plain slices.
type slowBook struct {
	resting []*slowOrder
}

type slowOrder struct {
	id        string
	side      orderbook.Side
	price     int64
	remaining int64
	seq       uint64
}

func (s *slowBook) bestOpposite(side orderbook.Side) *slowOrder {
	var best *slowOrder
	for _, o := range s.resting {
		if o.side != side.Opposite() {
			continue
		}
		if best == nil {
			best = o
			continue
		}
		better := false
		if side == orderbook.Buy { // opposite is Sell: lowest price wins
			better = o.price < best.price || (o.price == best.price && o.seq < best.seq)
		} else { // opposite is Buy: highest price wins
			better = o.price > best.price || (o.price == best.price && o.seq < best.seq)
		}
		if better {
			best = o
		}
	}
	return best
}

func (s *slowBook) submit(id string, side orderbook.Side, price, qty int64, seq uint64) {
	remaining := qty
	for remaining > 0 {
		maker := s.bestOpposite(side)
		if maker == nil || !crosses(side, price, maker.price) {
			break
		}
		q := remaining
		if maker.remaining < q {
			q = maker.remaining
		}
		remaining -= q
		maker.remaining -= q
		if maker.remaining == 0 {
			s.remove(maker.id)
		}
	}
	if remaining > 0 {
		s.resting = append(s.resting, &slowOrder{id: id, side: side, price: price, remaining: remaining, seq: seq})
	}
}

func (s *slowBook) remove(id string) bool {
	for i, o := range s.resting {
		if o.id == id {
			s.resting = append(s.resting[:i], s.resting[i+1:]...)
			return true
		}
	}
	return false
}

func (s *slowBook) find(id string) *slowOrder {
	for _, o := range s.resting {
		if o.id == id {
			return o
		}
	}
	return nil
}

// checkInvariants walks the real book and asserts every universal
// invariant from the data model.
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	book := e.Book()

	top := book.Snapshot()
	if top.BestBid != 0 && top.BestAsk != 0 {
		require.Less(t, top.BestBid, top.BestAsk, "crossed book")
	}

	count := 0
	walkSide := func(tree *orderbook.RBTree) {
		tree.ForEachAscending(func(lvl *orderbook.PriceLevel) bool {
			require.False(t, lvl.Empty(), "empty level left in ladder")
			var sum int64
			var lastSeq uint64
			n := 0
			for o := lvl.Head(); o != nil; o = o.Next() {
				require.Positive(t, o.Remaining(), "resting order with nothing remaining")
				require.True(t, o.Resting(), "terminal order still resting")
				require.Greater(t, o.Seq, lastSeq, "level not in arrival order")
				lastSeq = o.Seq
				sum += o.Remaining()
				n++
				count++
				require.Same(t, o, book.Lookup(o.ID), "index out of sync")
			}
			require.Equal(t, sum, lvl.TotalQty, "aggregate qty mismatch")
			require.Equal(t, n, lvl.OrderCount)
			return true
		})
	}
	walkSide(book.Bids)
	walkSide(book.Asks)

	require.Equal(t, count, book.RestingCount(), "index cardinality mismatch")
}

func compareWithOracle(t *testing.T, e *Engine, oracle *slowBook) {
	t.Helper()
	book := e.Book()

	require.Equal(t, len(oracle.resting), book.RestingCount())
	for _, want := range oracle.resting {
		got := book.Lookup(want.id)
		require.NotNil(t, got, "order %s missing from book", want.id)
		require.Equal(t, want.price, got.Price)
		require.Equal(t, want.remaining, got.Remaining(), "order %s remaining", want.id)
		require.Equal(t, want.seq, got.Seq)
	}
}

// Randomized streams of submit/cancel/modify must preserve every invariant
// and agree with the slow oracle after each operation.
func TestRandomizedAgainstOracle(t *testing.T) {
	for _, seed := range []int64{1, 42, 20260805} {
		rng := rand.New(rand.NewSource(seed))
		e, _ := newTestEngine(t)
		oracle := &slowBook{}

		var known []string // every id ever issued

		for op := 0; op < 3000; op++ {
			switch r := rng.Intn(10); {
			case r < 6: // submit
				side := orderbook.Side(rng.Intn(2))
				price := int64(9990 + rng.Intn(21)) // tight band forces crossing
				qty := int64(1 + rng.Intn(50))
				id, err := e.Submit(side, price, qty, "fuzz")
				require.NoError(t, err)
				v, ok := e.Order(id)
				require.True(t, ok)
				oracle.submit(id, side, price, qty, v.Seq)
				known = append(known, id)

			case r < 8: // cancel
				if len(known) == 0 {
					continue
				}
				id := known[rng.Intn(len(known))]
				err := e.Cancel(id)
				if oracle.find(id) != nil {
					require.NoError(t, err)
					oracle.remove(id)
				} else {
					require.ErrorIs(t, err, ErrAlreadyTerminal)
				}

			default: // modify
				if len(known) == 0 {
					continue
				}
				id := known[rng.Intn(len(known))]
				price := int64(9990 + rng.Intn(21))
				qty := int64(1 + rng.Intn(50))
				live := oracle.find(id)
				err := e.Modify(id, price, qty)
				if live != nil {
					require.NoError(t, err)
					side := live.side
					oracle.remove(id)
					v, ok := e.Order(id)
					require.True(t, ok)
					oracle.submit(id, side, price, qty, v.Seq)
				} else {
					require.ErrorIs(t, err, ErrAlreadyTerminal)
				}
			}

			checkInvariants(t, e)
			compareWithOracle(t, e, oracle)
		}
	}
}
