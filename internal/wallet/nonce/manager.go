package nonce

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Source queries the node for the pending nonce of one account (or one
// account within a privacy group).
type Source func(ctx context.Context) (uint64, error)

type counter struct {
	mu   sync.Mutex
	next uint64
	used bool
}

// Manager hands out nonces per key. Each call takes the larger of the node's
// pending nonce and the next unused local value, so concurrent requests that
// all observe the same pending nonce still get consecutive values.
type Manager struct {
	counters *xsync.MapOf[string, *counter]
}

func NewManager() *Manager {
	return &Manager{
		counters: xsync.NewMapOf[string, *counter](),
	}
}

// Next reserves and returns the next nonce for key. The per key lock is held
// across the node query so reservations for one key are strictly ordered.
func (m *Manager) Next(ctx context.Context, key string, source Source) (uint64, error) {
	c := m.counter(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	pending, err := source(ctx)
	if err != nil {
		return 0, err
	}

	nonce := pending
	if c.used && c.next > nonce {
		nonce = c.next
	}

	c.next = nonce + 1
	c.used = true

	return nonce, nil
}

// Resync discards local state for key in favour of the node's pending nonce.
// Used after the node rejected a nonce as too low.
func (m *Manager) Resync(ctx context.Context, key string, source Source) error {
	c := m.counter(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	pending, err := source(ctx)
	if err != nil {
		return err
	}

	c.next = pending
	c.used = true

	return nil
}

// Release hands n back when it is still the latest reservation for key, so a
// transaction the node rejected does not leave a gap.
func (m *Manager) Release(key string, n uint64) {
	c, ok := m.counters.Load(key)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.used && c.next == n+1 {
		c.next = n
	}
}

func (m *Manager) counter(key string) *counter {
	c, _ := m.counters.LoadOrCompute(key, func() *counter {
		return &counter{}
	})

	return c
}
