package snapshot

import "time"

// Snapshot is the persisted book state. Per side, levels appear in priority
// order and orders within a level in arrival order, so loading reproduces
// insertion order exactly. Counters let the session continue its id spaces
// without reuse.
type Snapshot struct {
	WALSeq     uint64 // last command-log seq covered by this snapshot
	OutboxSeq  uint64 // last outbox seq at capture, for exit WAL GC
	ArrivalSeq uint64
	OrderSeq   uint64
	TradeSeq   uint64
	Created    time.Time
	Books      []BookSnapshot
}

type BookSnapshot struct {
	Symbol string
	Bids   []LevelEntry
	Asks   []LevelEntry
}

type LevelEntry struct {
	Price  int64
	Orders []OrderEntry
}

type OrderEntry struct {
	ID        string
	ClientID  string
	Remaining int64
	Seq       uint64
}
