package exit

import (
	"sync"

	"go.uber.org/zap"

	"hermes/api/wire"
	"hermes/domain/engine"
)

// Sink is the durable leg of the event fan-out. Every event is assigned the
// next outbox sequence and appended to the exit WAL; the broadcaster drains
// from there. The hand-off queue is unbounded so no event is ever lost and
// the engine never blocks on pebble I/O.
type Sink struct {
	wal *ExitWAL
	enc *wire.Encoder
	log *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []entry
	nextSeq uint64
	closed  bool
	done    chan struct{}
}

type entry struct {
	seq     uint64
	payload []byte
}

// NewSink starts the writer goroutine. startSeq is the highest seq already
// present in the exit WAL, so sequences never repeat across restarts.
func NewSink(wal *ExitWAL, enc *wire.Encoder, log *zap.Logger, startSeq uint64) *Sink {
	s := &Sink{
		wal:     wal,
		enc:     enc,
		log:     log,
		nextSeq: startSeq,
		done:    make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

func (s *Sink) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, e := range batch {
			if err := s.wal.Append(e.seq, e.payload); err != nil {
				s.log.Error("outbox append failed", zap.Uint64("seq", e.seq), zap.Error(err))
			}
		}
	}
}

// Close drains the queue and stops the writer.
func (s *Sink) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
	<-s.done
}

// LastSeq returns the highest outbox sequence assigned so far.
func (s *Sink) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}

func (s *Sink) offer(payload []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.nextSeq++
	s.queue = append(s.queue, entry{seq: s.nextSeq, payload: payload})
	s.cond.Signal()
	s.mu.Unlock()
}

// ---- engine.EventSink ----

func (s *Sink) OnTrade(t engine.Trade) {
	s.offer(s.enc.Trade(t))
}

func (s *Sink) OnOrderStatus(u engine.OrderUpdate) {
	s.offer(s.enc.OrderStatus(u))
}

func (s *Sink) OnBookDelta(d engine.BookDelta) {
	s.offer(s.enc.BookDelta(d))
}
