package memory

import "sync/atomic"

// GlobalEpoch monotonically increases. Readers stamp themselves with it on
// entry; retired objects are recycled only while no reader is inside a read
// section.
var GlobalEpoch atomic.Uint64

const inactive = ^uint64(0)

// ReaderEpoch marks when a reader entered a read section.
type ReaderEpoch struct {
	epoch atomic.Uint64
}

func NewReaderEpoch() *ReaderEpoch {
	r := &ReaderEpoch{}
	r.epoch.Store(inactive)
	return r
}

func (r *ReaderEpoch) Enter() {
	r.epoch.Store(GlobalEpoch.Load())
}

func (r *ReaderEpoch) Exit() {
	r.epoch.Store(inactive)
}

func (r *ReaderEpoch) Value() uint64 {
	return r.epoch.Load()
}

// ReclaimablePool is the only requirement for reclamation.
type ReclaimablePool interface {
	PutAny(any)
}

// AdvanceEpochAndReclaim advances the epoch and drains the ring back into
// the pool when no reader is inside a read section. While any reader is
// active nothing is dequeued, so the ring keeps its FIFO order and the
// reclaimer stays its only consumer.
func AdvanceEpochAndReclaim(ring *RetireRing, pool ReclaimablePool, readers ...*ReaderEpoch) {
	GlobalEpoch.Add(1)
	if minReaderEpoch(readers...) != inactive {
		return
	}

	for {
		obj := ring.Dequeue()
		if obj == nil {
			return
		}
		pool.PutAny(obj)
	}
}

func minReaderEpoch(rs ...*ReaderEpoch) uint64 {
	min := inactive
	for _, r := range rs {
		if r == nil {
			continue
		}
		if v := r.Value(); v < min {
			min = v
		}
	}
	return min
}
