package snapshot

import "hermes/infra/memory"

// Reader brackets a read section for epoch-based reclamation: while a
// Reader is between Begin and End, no retired order is recycled.
type Reader struct {
	epoch *memory.ReaderEpoch
}

func NewReader() *Reader {
	return &Reader{epoch: memory.NewReaderEpoch()}
}

func (r *Reader) Begin() { r.epoch.Enter() }
func (r *Reader) End()   { r.epoch.Exit() }

func (r *Reader) Epoch() *memory.ReaderEpoch { return r.epoch }
