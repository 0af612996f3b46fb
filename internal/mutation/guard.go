package mutation

import (
	"errors"
	"sync"
)

// ErrMutationInFlight is returned when the same action is triggered again
// before the previous trigger settled
var ErrMutationInFlight = errors.New("mutation already in flight")

// Guard allows one running mutation per key
type Guard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// NewGuard creates an empty guard
func NewGuard() *Guard {
	return &Guard{running: make(map[string]struct{})}
}

// Acquire claims key. The returned release must be called once the
// mutation settled.
func (g *Guard) Acquire(key string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.running[key]; busy {
		return nil, ErrMutationInFlight
	}
	g.running[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, key)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key is claimed
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[key]
	return busy
}
