package vehicle

import "sync"

// StampedResult carries a value tagged with the request generation it
// answers. Results whose stamp no longer matches the guard's current
// generation are superseded and must be dropped.
type StampedResult[T any] struct {
	Stamp uint64
	Value T
}

// StampGuard hands out monotonically increasing stamps and rejects
// results from requests that were since reissued or timed out.
type StampGuard[T any] struct {
	mu    sync.Mutex
	stamp uint64
}

// Issue allocates the next generation and returns its stamp.
func (g *StampGuard[T]) Issue() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stamp++
	return g.stamp
}

// Current returns the most recently issued stamp.
func (g *StampGuard[T]) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.stamp
}

// Accept admits a result only if it answers the current generation.
func (g *StampGuard[T]) Accept(r StampedResult[T]) (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r.Stamp != g.stamp {
		var zero T
		return zero, false
	}
	return r.Value, true
}
