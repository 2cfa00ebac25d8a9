package ws

import (
	"hermes/api/wire"
	"hermes/domain/engine"
)

// Sink broadcasts engine events to every websocket client. Encoding happens
// once per event; delivery is the hub's non-blocking fan-out, so the engine
// never waits on a socket.
type Sink struct {
	hub *Hub
	enc *wire.Encoder
}

func NewSink(hub *Hub, enc *wire.Encoder) *Sink {
	return &Sink{hub: hub, enc: enc}
}

func (s *Sink) OnTrade(t engine.Trade) {
	s.hub.Broadcast(s.enc.Trade(t))
}

func (s *Sink) OnOrderStatus(u engine.OrderUpdate) {
	s.hub.Broadcast(s.enc.OrderStatus(u))
}

func (s *Sink) OnBookDelta(d engine.BookDelta) {
	s.hub.Broadcast(s.enc.BookDelta(d))
}
