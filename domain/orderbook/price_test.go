package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestToTicks(t *testing.T) {
	tick := dec("0.01")

	cases := []struct {
		price string
		want  int64
		ok    bool
	}{
		{"100.00", 10000, true},
		{"100.50", 10050, true},
		{"0.01", 1, true},
		{"99.999", 0, false}, // off tick
		{"0", 0, false},
		{"-1.00", 0, false},
	}

	for _, c := range cases {
		got, err := ToTicks(dec(c.price), tick)
		if c.ok {
			require.NoError(t, err, c.price)
			require.Equal(t, c.want, got, c.price)
		} else {
			require.ErrorIs(t, err, ErrOffTick, c.price)
		}
	}
}

func TestFromTicksRoundTrip(t *testing.T) {
	tick := dec("0.25")
	for _, p := range []string{"0.25", "101.75", "5000.00"} {
		ticks, err := ToTicks(dec(p), tick)
		require.NoError(t, err)
		require.True(t, dec(p).Equal(FromTicks(ticks, tick)))
	}
}
