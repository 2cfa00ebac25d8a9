package ws

import (
	"sync"

	"hermes/metrics"
)

// Hub tracks live connections and fans event payloads out to all of them.
// Broadcast never blocks: per-connection delivery is a non-blocking Offer.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*Conn]struct{}, 64)}
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	metrics.WSConns.Set(float64(n))
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	metrics.WSConns.Set(float64(n))
}

// Broadcast delivers payload to every connection, dropping per slow client.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		_ = c.Offer(payload)
	}
}

func (h *Hub) Conns() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
