package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hermes/api/wire"
	"hermes/domain/engine"
	"hermes/service"
)

// Server is the websocket client endpoint: submit, cancel, modify and ping
// inbound; acks plus the broadcast event stream outbound. Every inbound
// frame gets exactly one response.
type Server struct {
	svc *service.OrderService
	hub *Hub
	log *zap.Logger

	upgrader websocket.Upgrader
}

func NewServer(svc *service.OrderService, hub *Hub, log *zap.Logger) *Server {
	return &Server{
		svc: svc,
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}

	c := newConn(uuid.NewString(), wsConn, s.log)
	s.hub.add(c)
	go c.writeLoop()

	welcome, _ := json.Marshal(wire.Welcome{
		Type:      "welcome",
		Message:   "connected to hermes limit order book",
		SessionID: c.SessionID,
		Timestamp: time.Now().Unix(),
	})
	c.Offer(welcome)

	go s.readLoop(c)
}

func (s *Server) readLoop(c *Conn) {
	defer func() {
		s.hub.remove(c)
		c.close()
	}()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		s.dispatch(c, data)
	}
}

// dispatch handles one inbound frame. Malformed input never reaches the
// engine and still produces a response.
func (s *Server) dispatch(c *Conn, data []byte) {
	var req wire.Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError(c, "MALFORMED_REQUEST", "invalid JSON: "+err.Error())
		return
	}

	switch req.Type {
	case wire.TypeSubmit:
		clientID := req.ClientID
		if clientID == "" {
			clientID = c.SessionID
		}
		id, err := s.svc.Submit(service.SubmitRequest{
			Symbol:   req.Symbol,
			ClientID: clientID,
			Side:     req.Side,
			Price:    req.Price,
			Quantity: req.Quantity,
		})
		if err != nil {
			s.send(c, wire.SubmitAck{Type: "order_submitted", Status: "rejected", Reason: engine.Code(err)})
			return
		}
		s.send(c, wire.SubmitAck{Type: "order_submitted", OrderID: id, Status: "success"})

	case wire.TypeCancel:
		if err := s.svc.Cancel(req.OrderID); err != nil {
			s.send(c, wire.CancelAck{Type: "order_cancelled", OrderID: req.OrderID, Status: "failed", Reason: engine.Code(err)})
			return
		}
		s.send(c, wire.CancelAck{Type: "order_cancelled", OrderID: req.OrderID, Status: "success"})

	case wire.TypeModify:
		if err := s.svc.Modify(req.OrderID, req.NewPrice, req.NewQty); err != nil {
			s.send(c, wire.SubmitAck{Type: "order_submitted", OrderID: req.OrderID, Status: "rejected", Reason: engine.Code(err)})
			return
		}
		// The reissued order keeps its id; the ack mirrors a submit.
		s.send(c, wire.SubmitAck{Type: "order_submitted", OrderID: req.OrderID, Status: "success"})

	case wire.TypePing:
		s.send(c, wire.Pong{Type: "pong", Timestamp: time.Now().Unix()})

	default:
		s.sendError(c, "MALFORMED_REQUEST", "unknown message type: "+req.Type)
	}
}

func (s *Server) send(c *Conn, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error("ws encode failed", zap.Error(err))
		return
	}
	c.Offer(payload)
}

func (s *Server) sendError(c *Conn, code, msg string) {
	s.send(c, wire.ErrorMsg{Type: "error", Code: code, Message: msg})
}

// Handler mounts the endpoint on /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	return mux
}
