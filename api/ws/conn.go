package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hermes/metrics"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
	outBufSize = 256
)

// Conn wraps one websocket client. All writes go through a buffered channel
// drained by a single writer goroutine; a slow client drops messages rather
// than stalling the broadcast path.
type Conn struct {
	SessionID string

	ws  *websocket.Conn
	out chan []byte
	log *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(sessionID string, ws *websocket.Conn, log *zap.Logger) *Conn {
	return &Conn{
		SessionID: sessionID,
		ws:        ws,
		out:       make(chan []byte, outBufSize),
		log:       log,
		closed:    make(chan struct{}),
	}
}

// Offer enqueues a payload without blocking. Returns false on drop.
func (c *Conn) Offer(payload []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.out <- payload:
		return true
	default:
		metrics.WSDroppedTotal.WithLabelValues("slow_client").Inc()
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("ws write failed", zap.String("session", c.SessionID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
