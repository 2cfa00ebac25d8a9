package orderbook

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Render returns a fixed-width text view of the top levels of both ladders,
// asks above bids. Used by startup logging.
func (b *OrderBook) Render(tick decimal.Decimal, levels int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== ORDER BOOK %s ===\n", b.Symbol)
	fmt.Fprintf(&sb, "%12s %12s\n", "PRICE", "QTY")

	asks := b.Depth(Sell, levels)
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%12s %12d  ASK\n",
			FromTicks(asks[i].Price, tick).String(), asks[i].Qty)
	}
	sb.WriteString(strings.Repeat("-", 30) + "\n")
	for _, lvl := range b.Depth(Buy, levels) {
		fmt.Fprintf(&sb, "%12s %12d  BID\n",
			FromTicks(lvl.Price, tick).String(), lvl.Qty)
	}

	top := b.Snapshot()
	spread := int64(0)
	if top.BestBid != 0 && top.BestAsk != 0 {
		spread = top.BestAsk - top.BestBid
	}
	fmt.Fprintf(&sb, "spread: %s\n", FromTicks(spread, tick).String())
	return sb.String()
}
