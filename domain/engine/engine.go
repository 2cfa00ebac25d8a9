package engine

import (
	"strconv"
	"strings"
	"time"

	"hermes/domain/orderbook"
	"hermes/infra/memory"
	"hermes/infra/sequence"
)

// Engine runs price-time priority continuous matching over one book. It is
// not safe for concurrent use; the session layer holds the symbol's lock
// across every call, which also serializes the shared counters with commit
// order.
type Engine struct {
	book *orderbook.OrderBook
	sink EventSink
	seqs *sequence.Counters
	pool *memory.Pool[orderbook.Order]
	ring *memory.RetireRing

	// closed remembers terminal orders so a late cancel can be told apart
	// from a cancel for an id that never existed.
	closed map[string]OrderView

	total uint64
}

// OrderView is a read-only copy of an order's state. Returned to callers so
// pooled Order structs never escape the engine.
type OrderView struct {
	ID        string
	ClientID  string
	Symbol    string
	Side      orderbook.Side
	Price     int64
	Quantity  int64
	Filled    int64
	Remaining int64
	Status    orderbook.Status
	Seq       uint64
}

// SubmitReq is one order of a batch admission.
type SubmitReq struct {
	Side     orderbook.Side
	Price    int64
	Quantity int64
	ClientID string
}

// SubmitResult pairs a batch entry with its outcome.
type SubmitResult struct {
	OrderID string
	Err     error
}

func New(book *orderbook.OrderBook, seqs *sequence.Counters, pool *memory.Pool[orderbook.Order], ring *memory.RetireRing) *Engine {
	return &Engine{
		book:   book,
		sink:   NopSink{},
		seqs:   seqs,
		pool:   pool,
		ring:   ring,
		closed: make(map[string]OrderView, 1024),
	}
}

// SetSink swaps the event sink. Done once after replay, before traffic.
func (e *Engine) SetSink(s EventSink) {
	if s == nil {
		s = NopSink{}
	}
	e.sink = s
}

// ---- commands ----

// Submit admits a new limit order: assigns its id and arrival sequence,
// crosses it against the opposite side while prices allow, and rests any
// residual. Returns the assigned order id.
func (e *Engine) Submit(side orderbook.Side, price, qty int64, clientID string) (string, error) {
	if price <= 0 {
		return "", ErrInvalidPrice
	}
	if qty <= 0 {
		return "", ErrInvalidQuantity
	}
	id := "O" + strconv.FormatUint(e.seqs.Order.Next(), 10)
	e.admit(id, clientID, side, price, qty, e.seqs.Arrival.Next())
	return id, nil
}

// Cancel removes a resting order. Fully-filled or previously-cancelled ids
// report ErrAlreadyTerminal, ids never seen report ErrUnknownID.
func (e *Engine) Cancel(id string) error {
	before := e.top()
	o, ok := e.book.Remove(id)
	if !ok {
		if _, terminal := e.closed[id]; terminal {
			return ErrAlreadyTerminal
		}
		return ErrUnknownID
	}

	o.Status = orderbook.Cancelled
	remaining := o.Remaining()
	e.close(o)
	e.sink.OnOrderStatus(OrderUpdate{OrderID: id, Status: orderbook.Cancelled, Remaining: remaining})
	e.emitDeltaIfChanged(before)
	return nil
}

// Modify reissues an order at a new price and quantity. The order keeps its
// id but receives a fresh arrival sequence: modification always forfeits
// time priority at the old position. If the cancel leg fails the book is
// untouched.
func (e *Engine) Modify(id string, newPrice, newQty int64) error {
	if newPrice <= 0 {
		return ErrInvalidPrice
	}
	if newQty <= 0 {
		return ErrInvalidQuantity
	}
	o := e.book.Lookup(id)
	if o == nil {
		if _, terminal := e.closed[id]; terminal {
			return ErrAlreadyTerminal
		}
		return ErrUnknownID
	}
	side, client := o.Side, o.ClientID

	if err := e.Cancel(id); err != nil {
		return err
	}
	delete(e.closed, id) // the id is live again
	e.admit(id, client, side, newPrice, newQty, e.seqs.Arrival.Next())
	return nil
}

// Batch admits orders in list order with per-submit semantics.
func (e *Engine) Batch(reqs []SubmitReq) []SubmitResult {
	out := make([]SubmitResult, len(reqs))
	for i, r := range reqs {
		id, err := e.Submit(r.Side, r.Price, r.Quantity, r.ClientID)
		out[i] = SubmitResult{OrderID: id, Err: err}
	}
	return out
}

// ---- queries ----

// Order returns the current state of a resting or terminal order.
func (e *Engine) Order(id string) (OrderView, bool) {
	if o := e.book.Lookup(id); o != nil {
		return viewOf(o), true
	}
	v, ok := e.closed[id]
	return v, ok
}

// TotalOrders is the number of orders admitted this session.
func (e *Engine) TotalOrders() uint64 {
	return e.total
}

// ActiveOrders is the number of orders resting in the book.
func (e *Engine) ActiveOrders() int {
	return e.book.RestingCount()
}

func (e *Engine) Top() orderbook.TopOfBook {
	return e.book.Snapshot()
}

func (e *Engine) Depth(side orderbook.Side, levels int) []orderbook.Level {
	return e.book.Depth(side, levels)
}

func (e *Engine) Book() *orderbook.OrderBook {
	return e.book
}

// ---- replay / restore ----

// ReplaySubmit re-admits a logged order with its original id and arrival
// sequence. Matching re-runs deterministically; the caller replays commands
// in their logged order with a no-op sink installed.
func (e *Engine) ReplaySubmit(id string, seq uint64, clientID string, side orderbook.Side, price, qty int64) {
	e.bumpFor(id, seq)
	e.admit(id, clientID, side, price, qty, seq)
}

// ReplayCancel re-applies a logged cancel. Lookup errors are ignored: the
// order may have been consumed by a replayed match exactly as it was live.
func (e *Engine) ReplayCancel(id string) {
	_ = e.Cancel(id)
}

// ReplayModify re-applies a logged modify with its logged new sequence.
func (e *Engine) ReplayModify(id string, seq uint64, price, qty int64) {
	o := e.book.Lookup(id)
	if o == nil {
		return
	}
	side, client := o.Side, o.ClientID
	if e.Cancel(id) != nil {
		return
	}
	delete(e.closed, id)
	e.seqs.Arrival.Bump(seq)
	e.admit(id, client, side, price, qty, seq)
}

// RestoreResting places a snapshotted order directly into the book without
// matching. Snapshots record remaining quantity only; the restored order
// starts Pending with that quantity. Counters are bumped past the restored
// identifiers.
func (e *Engine) RestoreResting(id, clientID string, side orderbook.Side, price, remaining int64, seq uint64) {
	e.bumpFor(id, seq)
	o := e.pool.Get()
	*o = orderbook.Order{
		ID:       id,
		ClientID: clientID,
		Symbol:   e.book.Symbol,
		Side:     side,
		Price:    price,
		Quantity: remaining,
		Status:   orderbook.Pending,
		Seq:      seq,
	}
	e.total++
	e.book.Insert(o)
}

// ---- matching ----

func (e *Engine) admit(id, clientID string, side orderbook.Side, price, qty int64, seq uint64) {
	o := e.pool.Get()
	*o = orderbook.Order{
		ID:       id,
		ClientID: clientID,
		Symbol:   e.book.Symbol,
		Side:     side,
		Price:    price,
		Quantity: qty,
		Status:   orderbook.Pending,
		Seq:      seq,
	}
	e.total++

	before := e.top()
	e.match(o)

	if o.Remaining() > 0 {
		e.book.Insert(o)
		e.sink.OnOrderStatus(OrderUpdate{OrderID: o.ID, Status: o.Status, Remaining: o.Remaining()})
	} else {
		// Fully crossed on arrival; never rested.
		e.sink.OnOrderStatus(OrderUpdate{OrderID: o.ID, Status: o.Status, Remaining: 0})
		e.close(o)
	}
	e.emitDeltaIfChanged(before)
}

// match crosses the aggressor against the opposite side until it is
// exhausted or the book no longer crosses. Trades execute at the resting
// order's price.
func (e *Engine) match(taker *orderbook.Order) {
	opp := taker.Side.Opposite()

	for taker.Remaining() > 0 {
		lvl := e.book.Best(opp)
		if lvl == nil {
			break
		}
		if !crosses(taker.Side, taker.Price, lvl.Price) {
			break
		}

		maker := lvl.Head()
		q := taker.Remaining()
		if maker.Remaining() < q {
			q = maker.Remaining()
		}

		e.book.Fill(maker, q)
		taker.Fill(q)

		trade := Trade{
			ID:          "T" + strconv.FormatUint(e.seqs.Trade.Next(), 10),
			Symbol:      e.book.Symbol,
			Price:       maker.Price,
			Quantity:    q,
			MakerSeq:    maker.Seq,
			TakerSeq:    taker.Seq,
			TimestampMs: time.Now().UnixMilli(),
		}
		if taker.Side == orderbook.Buy {
			trade.BuyOrderID, trade.SellOrderID = taker.ID, maker.ID
		} else {
			trade.BuyOrderID, trade.SellOrderID = maker.ID, taker.ID
		}

		e.sink.OnTrade(trade)
		e.sink.OnOrderStatus(OrderUpdate{OrderID: maker.ID, Status: maker.Status, Remaining: maker.Remaining()})

		if maker.Remaining() == 0 {
			e.book.PopFrontIfFilled(opp)
			e.close(maker)
		}
	}
}

func crosses(takerSide orderbook.Side, takerPrice, makerPrice int64) bool {
	if takerSide == orderbook.Buy {
		return takerPrice >= makerPrice
	}
	return takerPrice <= makerPrice
}

// ---- internals ----

// close records the terminal state and retires the order object. A full
// retire ring hands the object to the garbage collector instead of the pool.
func (e *Engine) close(o *orderbook.Order) {
	e.closed[o.ID] = viewOf(o)
	_ = e.ring.Enqueue(o)
}

func (e *Engine) top() orderbook.TopOfBook {
	return e.book.Snapshot()
}

func (e *Engine) emitDeltaIfChanged(before orderbook.TopOfBook) {
	after := e.top()
	if after == before {
		return
	}
	e.sink.OnBookDelta(BookDelta{
		Symbol:  e.book.Symbol,
		BestBid: after.BestBid,
		BestAsk: after.BestAsk,
		BidSize: after.BidSize,
		AskSize: after.AskSize,
	})
}

// bumpFor keeps the id and arrival counters ahead of identifiers carried in
// replayed or restored commands.
func (e *Engine) bumpFor(id string, seq uint64) {
	e.seqs.Arrival.Bump(seq)
	if n, err := strconv.ParseUint(strings.TrimPrefix(id, "O"), 10, 64); err == nil {
		e.seqs.Order.Bump(n)
	}
}

func viewOf(o *orderbook.Order) OrderView {
	return OrderView{
		ID:        o.ID,
		ClientID:  o.ClientID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		Price:     o.Price,
		Quantity:  o.Quantity,
		Filled:    o.Filled,
		Remaining: o.Remaining(),
		Status:    o.Status,
		Seq:       o.Seq,
	}
}
