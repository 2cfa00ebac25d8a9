package kafka

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"hermes/api/wire"
	"hermes/domain/engine"
)

// Sink publishes trades, order status updates and book updates to the live
// Kafka stream. The
// engine hands events to a buffered channel and never waits on the broker;
// when the buffer is full the event is dropped here and the drop counted —
// the outbox path still delivers it.
type Sink struct {
	producer *Producer
	enc      *wire.Encoder
	log      *zap.Logger

	ch      chan payload
	cancel  context.CancelFunc
	done    chan struct{}
	dropped uint64
}

type payload struct {
	key   []byte
	value []byte
}

func NewSink(producer *Producer, enc *wire.Encoder, log *zap.Logger, buf int) *Sink {
	if buf <= 0 {
		buf = 1 << 14
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		producer: producer,
		enc:      enc,
		log:      log,
		ch:       make(chan payload, buf),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Sink) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-s.ch:
			if err := s.producer.Send(ctx, p.key, p.value); err != nil {
				s.log.Warn("kafka publish failed", zap.Error(err))
			}
		}
	}
}

func (s *Sink) Close() {
	s.cancel()
	<-s.done
}

func (s *Sink) offer(key, value []byte) {
	select {
	case s.ch <- payload{key: key, value: value}:
	default:
		atomic.AddUint64(&s.dropped, 1)
		s.log.Warn("kafka sink buffer full, dropping event")
	}
}

// Dropped reports events discarded because the buffer was full.
func (s *Sink) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// ---- engine.EventSink ----

func (s *Sink) OnTrade(t engine.Trade) {
	s.offer([]byte(t.Symbol), s.enc.Trade(t))
}

func (s *Sink) OnOrderStatus(u engine.OrderUpdate) {
	s.offer([]byte(u.OrderID), s.enc.OrderStatus(u))
}

func (s *Sink) OnBookDelta(d engine.BookDelta) {
	s.offer([]byte(d.Symbol), s.enc.BookDelta(d))
}
