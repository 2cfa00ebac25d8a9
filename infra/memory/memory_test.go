package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type thing struct {
	n int
}

func TestPoolRoundTrip(t *testing.T) {
	p := NewPool(func() *thing { return &thing{} }, 4)

	v := p.Get()
	v.n = 42
	p.Put(v)

	// Put zeroes the object before recycling.
	w := p.Get()
	require.Zero(t, w.n)
}

func TestPoolPutAnyWrongTypePanics(t *testing.T) {
	p := NewPool(func() *thing { return &thing{} }, 0)
	require.Panics(t, func() {
		p.PutAny("not a thing")
	})
}

func TestRetireRingFIFO(t *testing.T) {
	r := NewRetireRing(4)

	require.True(t, r.Enqueue(1))
	require.True(t, r.Enqueue(2))
	require.True(t, r.Enqueue(3))
	require.True(t, r.Enqueue(4))
	require.False(t, r.Enqueue(5), "ring full")

	require.Equal(t, 1, r.Dequeue())
	require.Equal(t, 2, r.Dequeue())
	require.True(t, r.Enqueue(5))
	require.Equal(t, 3, r.Dequeue())
	require.Equal(t, 4, r.Dequeue())
	require.Equal(t, 5, r.Dequeue())
	require.Nil(t, r.Dequeue())
}

func TestRetireRingSizeMustBePowerOfTwo(t *testing.T) {
	require.Panics(t, func() { NewRetireRing(3) })
	require.Panics(t, func() { NewRetireRing(0) })
}

func TestReclaimWithIdleReaders(t *testing.T) {
	p := NewPool(func() *thing { return &thing{} }, 0)
	r := NewRetireRing(8)
	reader := NewReaderEpoch()

	r.Enqueue(&thing{n: 1})
	r.Enqueue(&thing{n: 2})

	// No reader inside a section: everything reclaims.
	AdvanceEpochAndReclaim(r, p, reader)
	require.Zero(t, r.Len())
}

func TestReclaimBlockedByActiveReader(t *testing.T) {
	p := NewPool(func() *thing { return &thing{} }, 0)
	r := NewRetireRing(8)
	reader := NewReaderEpoch()

	reader.Enter()
	r.Enqueue(&thing{n: 1})

	AdvanceEpochAndReclaim(r, p, reader)
	require.Equal(t, 1, r.Len(), "object must survive while the reader is inside")

	reader.Exit()
	AdvanceEpochAndReclaim(r, p, reader)
	require.Zero(t, r.Len())
}
