// Package httpapi is the REST admission surface: order entry, cancel and
// modify plus book, depth and stats queries. It speaks the same taxonomy
// codes as the websocket endpoint.
package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hermes/domain/engine"
	"hermes/service"
)

type Handler struct {
	svc         *service.OrderService
	log         *zap.Logger
	depthLevels int
}

func New(svc *service.OrderService, log *zap.Logger, depthLevels int) *Handler {
	if depthLevels <= 0 {
		depthLevels = 5
	}
	return &Handler{svc: svc, log: log, depthLevels: depthLevels}
}

// Register mounts all routes on app.
func (h *Handler) Register(app *fiber.App) {
	app.Post("/orders", h.submitOrder)
	app.Post("/orders/batch", h.submitBatch)
	app.Delete("/orders/:id", h.cancelOrder)
	app.Put("/orders/:id", h.modifyOrder)
	app.Get("/orders/:id", h.getOrder)
	app.Get("/book/:symbol", h.getBook)
	app.Get("/depth/:symbol", h.getDepth)
	app.Get("/stats/:symbol", h.getStats)
	app.Get("/symbols", h.getSymbols)
}

// ---- request/response bodies ----

type submitBody struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	ClientID string          `json:"client_id"`
}

type modifyBody struct {
	NewPrice decimal.Decimal `json:"new_price"`
	NewQty   int64           `json:"new_quantity"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ---- handlers ----

func (h *Handler) submitOrder(c *fiber.Ctx) error {
	var body submitBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, engine.ErrMalformed)
	}

	id, err := h.svc.Submit(service.SubmitRequest{
		Symbol:   body.Symbol,
		ClientID: body.ClientID,
		Side:     body.Side,
		Price:    body.Price,
		Quantity: body.Quantity,
	})
	if err != nil {
		return fail(c, statusFor(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id": id,
		"status":   "success",
	})
}

func (h *Handler) submitBatch(c *fiber.Ctx) error {
	var bodies []submitBody
	if err := c.BodyParser(&bodies); err != nil {
		return fail(c, fiber.StatusBadRequest, engine.ErrMalformed)
	}

	reqs := make([]service.SubmitRequest, len(bodies))
	for i, b := range bodies {
		reqs[i] = service.SubmitRequest{
			Symbol:   b.Symbol,
			ClientID: b.ClientID,
			Side:     b.Side,
			Price:    b.Price,
			Quantity: b.Quantity,
		}
	}

	results := h.svc.Batch(reqs)
	out := make([]fiber.Map, len(results))
	for i, r := range results {
		if r.Err != nil {
			out[i] = fiber.Map{"status": "rejected", "reason": engine.Code(r.Err)}
		} else {
			out[i] = fiber.Map{"status": "success", "order_id": r.OrderID}
		}
	}
	return c.JSON(out)
}

func (h *Handler) cancelOrder(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.svc.Cancel(id); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{"order_id": id, "status": "success"})
}

func (h *Handler) modifyOrder(c *fiber.Ctx) error {
	id := c.Params("id")
	var body modifyBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, engine.ErrMalformed)
	}
	if err := h.svc.Modify(id, body.NewPrice, body.NewQty); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{"order_id": id, "status": "success"})
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	v, err := h.svc.Order(c.Params("id"))
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{
		"order_id":  v.ID,
		"client_id": v.ClientID,
		"symbol":    v.Symbol,
		"side":      v.Side.String(),
		"quantity":  v.Quantity,
		"filled":    v.Filled,
		"remaining": v.Remaining,
		"status":    v.Status.String(),
	})
}

func (h *Handler) getBook(c *fiber.Ctx) error {
	view, err := h.svc.Book(c.Params("symbol"))
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{
		"symbol":   view.Symbol,
		"best_bid": view.BestBid,
		"best_ask": view.BestAsk,
		"bid_size": view.BidSize,
		"ask_size": view.AskSize,
		"spread":   view.Spread,
	})
}

func (h *Handler) getDepth(c *fiber.Ctx) error {
	levels := c.QueryInt("levels", h.depthLevels)
	view, err := h.svc.Depth(c.Params("symbol"), levels)
	if err != nil {
		return fail(c, statusFor(err), err)
	}

	toMaps := func(side []service.DepthLevel) []fiber.Map {
		out := make([]fiber.Map, len(side))
		for i, lvl := range side {
			out[i] = fiber.Map{"price": lvl.Price, "qty": lvl.Qty}
		}
		return out
	}
	return c.JSON(fiber.Map{
		"symbol": view.Symbol,
		"bids":   toMaps(view.Bids),
		"asks":   toMaps(view.Asks),
	})
}

func (h *Handler) getStats(c *fiber.Ctx) error {
	stats, err := h.svc.StatsFor(c.Params("symbol"))
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{
		"symbol":        stats.Symbol,
		"total_orders":  stats.TotalOrders,
		"active_orders": stats.ActiveOrders,
	})
}

func (h *Handler) getSymbols(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"symbols": h.svc.Symbols()})
}

// ---- helpers ----

func fail(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(errorBody{
		Code:    engine.Code(err),
		Message: err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownID):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrUnknownSymbol):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyTerminal):
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}
