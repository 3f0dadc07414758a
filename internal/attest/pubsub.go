package attest

import (
	"sync"

	"github.com/Taump/attestation-telegram/internal/order"
)

// AttestedEvent is published to subscribers after an order transitions to
// attested.
type AttestedEvent struct {
	Order order.Order
	Unit  string
}

type subscribers struct {
	mu    sync.RWMutex
	items []func(AttestedEvent)
}

func (s *subscribers) add(fn func(AttestedEvent)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, fn)
}

func (s *subscribers) notify(event AttestedEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.items {
		go fn(event)
	}
}
