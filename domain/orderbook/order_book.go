package orderbook

// Level is one rung of a depth view.
type Level struct {
	Price int64
	Qty   int64
}

// TopOfBook is the derived projection published after every mutation that
// touches the front of either side. Zero values mean "no liquidity".
type TopOfBook struct {
	BestBid int64
	BestAsk int64
	BidSize int64
	AskSize int64
}

// OrderBook owns both price ladders and the cancel index for one symbol.
// It is single-writer: the session layer serializes every mutation.
//
// The byID index maps order id to the live *Order, whose level back-pointer
// locates it inside its FIFO queue, so removal is O(1) plus the ladder
// delete when a level empties.
type OrderBook struct {
	Symbol string

	Bids *RBTree
	Asks *RBTree

	byID map[string]*Order

	top TopOfBook
}

func New(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		Bids:   NewRBTree(),
		Asks:   NewRBTree(),
		byID:   make(map[string]*Order, 1024),
	}
}

// Insert appends o to the tail of its price level, creating the level if
// absent, and records it in the cancel index.
//
// An already-indexed id is an engine invariant breach, not a client error;
// it aborts the session.
func (b *OrderBook) Insert(o *Order) {
	if o.Remaining() <= 0 || !o.Resting() {
		panic("orderbook: insert of non-restable order")
	}
	if _, dup := b.byID[o.ID]; dup {
		panic("orderbook: DUPLICATE_ID " + o.ID)
	}

	b.side(o.Side).UpsertLevel(o.Price).enqueue(o)
	b.byID[o.ID] = o
	b.refreshTop()
}

// Remove unlinks the order by id and returns it with its pre-removal state.
// The second result is false for an id not in the index.
func (b *OrderBook) Remove(id string) (*Order, bool) {
	o := b.byID[id]
	if o == nil {
		return nil, false
	}
	b.unlink(o)
	return o, true
}

// Best returns the top level for the given side, nil when the side is empty.
func (b *OrderBook) Best(side Side) *PriceLevel {
	if side == Buy {
		return b.Bids.MaxLevel()
	}
	return b.Asks.MinLevel()
}

// Fill applies an execution to a resting order, keeping the level's cached
// aggregate in sync. Aggressors that never rested are filled directly via
// Order.Fill by the engine.
func (b *OrderBook) Fill(o *Order, qty int64) {
	if o.level == nil {
		panic("orderbook: fill of order not in book")
	}
	o.level.TotalQty -= qty
	o.Fill(qty)
	b.refreshTop()
}

// PopFrontIfFilled unlinks the head of the best level on side if it has no
// remaining quantity, deleting the level if it empties.
func (b *OrderBook) PopFrontIfFilled(side Side) {
	lvl := b.Best(side)
	if lvl == nil {
		return
	}
	head := lvl.Head()
	if head == nil || head.Remaining() > 0 {
		return
	}
	b.unlink(head)
}

// Depth returns up to n levels in priority order: bids descending, asks
// ascending.
func (b *OrderBook) Depth(side Side, n int) []Level {
	if n <= 0 {
		return nil
	}
	out := make([]Level, 0, n)
	visit := func(lvl *PriceLevel) bool {
		out = append(out, Level{Price: lvl.Price, Qty: lvl.TotalQty})
		return len(out) < n
	}
	if side == Buy {
		b.Bids.ForEachDescending(visit)
	} else {
		b.Asks.ForEachAscending(visit)
	}
	return out
}

// Snapshot returns the derived top-of-book projections.
func (b *OrderBook) Snapshot() TopOfBook {
	return b.top
}

// Lookup returns the resting order for id, nil when absent.
func (b *OrderBook) Lookup(id string) *Order {
	return b.byID[id]
}

// RestingCount is the cancel-index cardinality.
func (b *OrderBook) RestingCount() int {
	return len(b.byID)
}

// WalkBids visits resting orders best price first, FIFO within a level.
func (b *OrderBook) WalkBids(visit func(*Order) bool) {
	b.Bids.ForEachDescending(func(lvl *PriceLevel) bool {
		return walkLevel(lvl, visit)
	})
}

// WalkAsks visits resting orders best price first, FIFO within a level.
func (b *OrderBook) WalkAsks(visit func(*Order) bool) {
	b.Asks.ForEachAscending(func(lvl *PriceLevel) bool {
		return walkLevel(lvl, visit)
	})
}

func walkLevel(lvl *PriceLevel, visit func(*Order) bool) bool {
	for o := lvl.Head(); o != nil; o = o.Next() {
		if !visit(o) {
			return false
		}
	}
	return true
}

// ---- internals ----

func (b *OrderBook) side(s Side) *RBTree {
	if s == Buy {
		return b.Bids
	}
	return b.Asks
}

func (b *OrderBook) unlink(o *Order) {
	lvl := o.level
	lvl.unlink(o)
	delete(b.byID, o.ID)
	if lvl.Empty() {
		b.side(o.Side).DeleteLevel(lvl.Price)
	}
	b.refreshTop()
}

// refreshTop recomputes the projections from the ladder tops. O(log n) per
// mutation, and by construction always agrees with a fresh scan.
func (b *OrderBook) refreshTop() {
	b.top = TopOfBook{}
	if lvl := b.Bids.MaxLevel(); lvl != nil {
		b.top.BestBid = lvl.Price
		b.top.BidSize = lvl.TotalQty
	}
	if lvl := b.Asks.MinLevel(); lvl != nil {
		b.top.BestAsk = lvl.Price
		b.top.AskSize = lvl.TotalQty
	}
}
