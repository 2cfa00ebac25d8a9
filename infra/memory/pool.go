package memory

import "sync"

// Pool is a typed object pool for hot-path allocations. Orders are taken
// from here on admission and returned through the retire ring once no
// snapshot reader can still observe them.
type Pool[T any] struct {
	p *sync.Pool
}

// NewPool builds a pool around ctor and pre-warms it with warm objects.
func NewPool[T any](ctor func() *T, warm int) *Pool[T] {
	p := &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
	}
	for i := 0; i < warm; i++ {
		p.p.Put(ctor())
	}
	return p
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	var zero T
	*v = zero
	p.p.Put(v)
}

// PutAny lets Pool[T] satisfy ReclaimablePool. The type assertion is an
// invariant, not a recoverable condition.
func (p *Pool[T]) PutAny(v any) {
	obj, ok := v.(*T)
	if !ok {
		panic("memory.Pool: PutAny received wrong type")
	}
	p.Put(obj)
}
