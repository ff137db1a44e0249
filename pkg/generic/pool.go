package generic

import "sync"

// Pool is a typed sync.Pool. Values are reset when put back, so Get always
// returns a clean value.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// NewPool returns a pool built on generate. A nil reset keeps values as is.
func NewPool[T any](generate func() T, reset func(T)) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
		reset: reset,
	}
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	if p.reset != nil {
		p.reset(value)
	}
	p.pool.Put(value)
}
