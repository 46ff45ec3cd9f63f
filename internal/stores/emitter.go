// Package stores keeps view state derived from intents and live queries and
// broadcasts it to subscribers.
package stores

import "sync"

// emitter fans a store's state out to subscribers.
type emitter[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (e *emitter[T]) listen(fn func(T)) (off func()) {
	e.mu.Lock()
	if e.fns == nil {
		e.fns = make(map[int]func(T))
	}
	id := e.next
	e.next++
	e.fns[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.fns, id)
		e.mu.Unlock()
	}
}

func (e *emitter[T]) trigger(v T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.fns))
	for _, fn := range e.fns {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
