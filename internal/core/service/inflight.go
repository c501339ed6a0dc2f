package service

import (
	"context"
	"sync"
)

// InFlightGuard rejects a write while an identical one is still running.
// Acquire reports ok=false when key is held; release must be called once
// the write resolves.
type InFlightGuard interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// MemoryInFlight guards writes within one agent process.
type MemoryInFlight struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryInFlight() *MemoryInFlight {
	return &MemoryInFlight{held: make(map[string]struct{})}
}

func (g *MemoryInFlight) Acquire(_ context.Context, key string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return func() {}, false, nil
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, true, nil
}
