package service

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hermes/domain/engine"
	"hermes/domain/orderbook"
	"hermes/infra/memory"
	"hermes/infra/sequence"
	entrywal "hermes/infra/wal/entry"
	"hermes/metrics"
	"hermes/snapshot"
)

/*
OrderService is the only write entry point into the system.

It validates requests before they reach an engine, serializes every
mutation of a symbol behind that symbol's lock (the single-writer
discipline), logs accepted commands to the entry WAL, and returns exactly
one terminal response per request. The shared identifier counters advance
only while a symbol lock is held, so per-symbol sequence order matches
commit order.
*/
type OrderService struct {
	log  *zap.Logger
	seqs *sequence.Counters

	shards map[string]*shard

	// route maps order id to its symbol for cancel/modify addressing.
	route sync.Map

	wal   *entrywal.WAL
	walMu sync.Mutex

	reader *snapshot.Reader
}

// shard owns everything for one symbol. Cross-symbol operations are
// independent and run in parallel.
type shard struct {
	mu   sync.RWMutex
	eng  *engine.Engine
	book *orderbook.OrderBook
	tick decimal.Decimal
	pool *memory.Pool[orderbook.Order]
	ring *memory.RetireRing
}

// Symbol declares one instrument served by the engine.
type Symbol struct {
	Name string
	Tick decimal.Decimal
}

func New(log *zap.Logger, symbols []Symbol, wal *entrywal.WAL) *OrderService {
	s := &OrderService{
		log:    log,
		seqs:   sequence.NewCounters(),
		shards: make(map[string]*shard, len(symbols)),
		wal:    wal,
		reader: snapshot.NewReader(),
	}
	for _, sym := range symbols {
		book := orderbook.New(sym.Name)
		pool := memory.NewPool(func() *orderbook.Order { return &orderbook.Order{} }, 1024)
		ring := memory.NewRetireRing(1 << 14)
		s.shards[sym.Name] = &shard{
			eng:  engine.New(book, s.seqs, pool, ring),
			book: book,
			tick: sym.Tick,
			pool: pool,
			ring: ring,
		}
	}
	return s
}

// AttachSink installs the live event sink on every engine. Called once,
// after Restore and before traffic is accepted.
func (s *OrderService) AttachSink(sink engine.EventSink) {
	for _, sh := range s.shards {
		sh.eng.SetSink(sink)
	}
}

// TickFor exposes symbol tick sizes to the encoders.
func (s *OrderService) TickFor(symbol string) decimal.Decimal {
	if sh, ok := s.shards[symbol]; ok {
		return sh.tick
	}
	return decimal.New(1, -2)
}

// Symbols returns the served instruments, sorted.
func (s *OrderService) Symbols() []string {
	out := make([]string, 0, len(s.shards))
	for name := range s.shards {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ---- commands ----

// SubmitRequest is an admission-layer order. Price is a client decimal; it
// must land exactly on the symbol's tick.
type SubmitRequest struct {
	Symbol   string
	ClientID string
	Side     string
	Price    decimal.Decimal
	Quantity int64
}

// Submit validates, admits and logs one order. The returned id is the
// engine-assigned "O"-prefixed identifier.
func (s *OrderService) Submit(req SubmitRequest) (string, error) {
	if !wellFormed(req.ClientID) || !wellFormed(req.Symbol) {
		return "", reject(engine.ErrMalformed)
	}
	sh, ok := s.shards[req.Symbol]
	if !ok {
		return "", reject(engine.ErrUnknownSymbol)
	}
	side, err := parseSide(req.Side)
	if err != nil {
		return "", reject(err)
	}
	if req.Quantity <= 0 {
		return "", reject(engine.ErrInvalidQuantity)
	}
	ticks, err := orderbook.ToTicks(req.Price, sh.tick)
	if err != nil {
		return "", reject(engine.ErrInvalidPrice)
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	id, err := sh.eng.Submit(side, ticks, req.Quantity, req.ClientID)
	if err != nil {
		return "", reject(err)
	}
	s.route.Store(id, req.Symbol)

	v, _ := sh.eng.Order(id)
	s.appendWAL(entrywal.RecordSubmit,
		encodeSubmit(id, v.Seq, req.Symbol, req.ClientID, side, ticks, req.Quantity))

	metrics.OrdersSubmitted.WithLabelValues(req.Symbol).Inc()
	metrics.RestingOrders.WithLabelValues(req.Symbol).Set(float64(sh.eng.ActiveOrders()))
	return id, nil
}

// Cancel removes a resting order by id.
func (s *OrderService) Cancel(orderID string) error {
	sh, ok := s.shardFor(orderID)
	if !ok {
		return engine.ErrUnknownID
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if err := sh.eng.Cancel(orderID); err != nil {
		return err
	}
	s.appendWAL(entrywal.RecordCancel, encodeCancel(orderID))

	metrics.OrdersCancelled.WithLabelValues(sh.book.Symbol).Inc()
	metrics.RestingOrders.WithLabelValues(sh.book.Symbol).Set(float64(sh.eng.ActiveOrders()))
	return nil
}

// Modify reissues an order at a new price and quantity, keeping its id but
// forfeiting time priority.
func (s *OrderService) Modify(orderID string, newPrice decimal.Decimal, newQty int64) error {
	sh, ok := s.shardFor(orderID)
	if !ok {
		return engine.ErrUnknownID
	}
	if newQty <= 0 {
		return engine.ErrInvalidQuantity
	}
	ticks, err := orderbook.ToTicks(newPrice, sh.tick)
	if err != nil {
		return engine.ErrInvalidPrice
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if err := sh.eng.Modify(orderID, ticks, newQty); err != nil {
		return err
	}
	v, _ := sh.eng.Order(orderID)
	s.appendWAL(entrywal.RecordModify, encodeModify(orderID, v.Seq, ticks, newQty))

	metrics.RestingOrders.WithLabelValues(sh.book.Symbol).Set(float64(sh.eng.ActiveOrders()))
	return nil
}

// Batch admits orders in list order with per-submit semantics.
func (s *OrderService) Batch(reqs []SubmitRequest) []engine.SubmitResult {
	out := make([]engine.SubmitResult, len(reqs))
	for i, r := range reqs {
		id, err := s.Submit(r)
		out[i] = engine.SubmitResult{OrderID: id, Err: err}
	}
	return out
}

// ---- queries ----

// BookView is the client-facing top of book.
type BookView struct {
	Symbol  string
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
	BidSize int64
	AskSize int64
	Spread  decimal.Decimal
}

// DepthView carries up to n levels per side in priority order.
type DepthView struct {
	Symbol string
	Bids   []DepthLevel
	Asks   []DepthLevel
}

type DepthLevel struct {
	Price decimal.Decimal
	Qty   int64
}

func (s *OrderService) Book(symbol string) (BookView, error) {
	sh, ok := s.shards[symbol]
	if !ok {
		return BookView{}, engine.ErrUnknownSymbol
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	top := sh.eng.Top()
	spread := int64(0)
	if top.BestBid != 0 && top.BestAsk != 0 {
		spread = top.BestAsk - top.BestBid
	}
	return BookView{
		Symbol:  symbol,
		BestBid: orderbook.FromTicks(top.BestBid, sh.tick),
		BestAsk: orderbook.FromTicks(top.BestAsk, sh.tick),
		BidSize: top.BidSize,
		AskSize: top.AskSize,
		Spread:  orderbook.FromTicks(spread, sh.tick),
	}, nil
}

func (s *OrderService) Depth(symbol string, levels int) (DepthView, error) {
	sh, ok := s.shards[symbol]
	if !ok {
		return DepthView{}, engine.ErrUnknownSymbol
	}

	s.reader.Begin()
	defer s.reader.End()
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	view := DepthView{Symbol: symbol}
	for _, lvl := range sh.eng.Depth(orderbook.Buy, levels) {
		view.Bids = append(view.Bids, DepthLevel{Price: orderbook.FromTicks(lvl.Price, sh.tick), Qty: lvl.Qty})
	}
	for _, lvl := range sh.eng.Depth(orderbook.Sell, levels) {
		view.Asks = append(view.Asks, DepthLevel{Price: orderbook.FromTicks(lvl.Price, sh.tick), Qty: lvl.Qty})
	}
	return view, nil
}

// Order returns the state of any order the session has seen.
func (s *OrderService) Order(orderID string) (engine.OrderView, error) {
	sh, ok := s.shardFor(orderID)
	if !ok {
		return engine.OrderView{}, engine.ErrUnknownID
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	v, ok := sh.eng.Order(orderID)
	if !ok {
		return engine.OrderView{}, engine.ErrUnknownID
	}
	return v, nil
}

// Stats reports session totals for one symbol.
type Stats struct {
	Symbol       string
	TotalOrders  uint64
	ActiveOrders int
}

func (s *OrderService) StatsFor(symbol string) (Stats, error) {
	sh, ok := s.shards[symbol]
	if !ok {
		return Stats{}, engine.ErrUnknownSymbol
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return Stats{
		Symbol:       symbol,
		TotalOrders:  sh.eng.TotalOrders(),
		ActiveOrders: sh.eng.ActiveOrders(),
	}, nil
}

// Render returns the text view of one book.
func (s *OrderService) Render(symbol string, levels int) (string, error) {
	sh, ok := s.shards[symbol]
	if !ok {
		return "", engine.ErrUnknownSymbol
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return sh.book.Render(sh.tick, levels), nil
}

// ---- internals ----

func (s *OrderService) shardFor(orderID string) (*shard, bool) {
	sym, ok := s.route.Load(orderID)
	if !ok {
		return nil, false
	}
	sh, ok := s.shards[sym.(string)]
	return sh, ok
}

func (s *OrderService) appendWAL(t entrywal.RecordType, payload []byte) {
	if s.wal == nil {
		return
	}
	s.walMu.Lock()
	defer s.walMu.Unlock()

	rec := entrywal.NewRecord(t, s.seqs.WAL.Next(), payload)
	if err := s.wal.Append(rec); err != nil {
		s.log.Error("wal append failed", zap.Uint64("seq", rec.Seq), zap.Error(err))
	}
}

func reject(err error) error {
	metrics.OrdersRejected.WithLabelValues(engine.Code(err)).Inc()
	return err
}

func parseSide(s string) (orderbook.Side, error) {
	switch strings.ToUpper(s) {
	case "BUY", "BID", "B":
		return orderbook.Buy, nil
	case "SELL", "ASK", "S":
		return orderbook.Sell, nil
	default:
		return 0, engine.ErrInvalidSide
	}
}

// wellFormed bounds the opaque identifier fields: non-empty, printable,
// and free of the WAL payload separator.
func wellFormed(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < 0x21 || c > 0x7e || c == '|' {
			return false
		}
	}
	return true
}
