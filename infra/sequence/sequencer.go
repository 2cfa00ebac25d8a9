package sequence

import "sync/atomic"

// Sequencer generates strictly monotonic identifiers. It is replay-safe:
// after WAL replay or snapshot load it is Reset to the last value seen so
// the session continues without gaps or reuse.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next is start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next value.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued value.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer. Only used after replay or snapshot load.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}

// Bump raises the sequencer to at least v. Replay applies commands carrying
// their original sequence numbers; Bump keeps the counter ahead of them.
func (s *Sequencer) Bump(v uint64) {
	for {
		cur := s.next.Load()
		if cur >= v {
			return
		}
		if s.next.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Counters bundles the session-scoped id spaces. They are owned by the
// engine and advanced only while the owning symbol's lock is held, so the
// numbers match commit order per symbol.
type Counters struct {
	Arrival *Sequencer // arrival_seq, time-priority tiebreaker
	Order   *Sequencer // "O" + decimal
	Trade   *Sequencer // "T" + decimal
	WAL     *Sequencer // command log framing
}

func NewCounters() *Counters {
	return &Counters{
		Arrival: New(0),
		Order:   New(0),
		Trade:   New(0),
		WAL:     New(0),
	}
}
