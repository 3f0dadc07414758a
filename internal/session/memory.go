package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	walletAddress string
	expiresAt     time.Time
}

// Memory is an in-process Store with per-entry TTL. Entries are dropped
// lazily on access and swept by a janitor while Run is active.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]entry{},
	}
}

func (m *Memory) Put(_ context.Context, key, walletAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{
		walletAddress: walletAddress,
		expiresAt:     m.now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	delete(m.entries, key)
	if m.now().After(item.expiresAt) {
		return "", false, nil
	}
	return item.walletAddress, true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Run sweeps expired entries until the context is cancelled.
func (m *Memory) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, item := range m.entries {
		if now.After(item.expiresAt) {
			delete(m.entries, key)
		}
	}
}
