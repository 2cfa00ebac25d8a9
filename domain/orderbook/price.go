package orderbook

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Prices cross the process boundary as decimals and live inside the book as
// tick counts. Comparisons on the hot path are integer only; a price that is
// not an exact multiple of the symbol's tick never reaches the engine.

var ErrOffTick = errors.New("price not on tick")

// ToTicks converts a decimal price into ticks. It rejects non-positive
// prices and prices that are not whole multiples of tick.
func ToTicks(price, tick decimal.Decimal) (int64, error) {
	if price.Sign() <= 0 {
		return 0, ErrOffTick
	}
	q := price.Div(tick)
	if !q.IsInteger() {
		return 0, ErrOffTick
	}
	return q.IntPart(), nil
}

// FromTicks converts a tick count back to the decimal a client sees.
func FromTicks(ticks int64, tick decimal.Decimal) decimal.Decimal {
	return tick.Mul(decimal.NewFromInt(ticks))
}
