package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Taump/attestation-telegram/internal/identity"
)

// Memory is an in-process Repository used by tests and standalone runs. A
// single mutex serializes transitions, which also gives the one-active-order
// guarantee under concurrent Create calls.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]Order
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		nextID: 1,
		orders: map[int64]Order{},
		now:    time.Now,
	}
}

func (m *Memory) FindActive(_ context.Context, id identity.Identity) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.findActiveLocked(id); ok {
		return o, nil
	}
	return Order{}, ErrOrderNotFound
}

func (m *Memory) Find(_ context.Context, id identity.Identity, address string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := make([]Order, 0, 1)
	for _, o := range m.orders {
		if o.Identity.Key() == id.Key() && o.Address == address {
			matches = append(matches, o)
		}
	}
	if len(matches) == 0 {
		return Order{}, ErrOrderNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })
	return matches[0], nil
}

func (m *Memory) FindNewest(_ context.Context, id identity.Identity) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	newest := Order{}
	for _, o := range m.orders {
		if o.Identity.Key() == id.Key() && o.ID > newest.ID {
			newest = o
		}
	}
	if newest.ID == 0 {
		return Order{}, ErrOrderNotFound
	}
	return newest, nil
}

func (m *Memory) Create(_ context.Context, id identity.Identity, address string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.findActiveLocked(id); ok {
		return existing, nil
	}
	now := m.now()
	o := Order{
		ID:        m.nextID,
		Identity:  id,
		Address:   address,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextID++
	m.orders[o.ID] = o
	return o, nil
}

func (m *Memory) SetAddress(_ context.Context, orderID int64, address string) error {
	return m.update(orderID, func(o *Order) error {
		o.Address = address
		return nil
	})
}

func (m *Memory) SetDeviceAddress(_ context.Context, orderID int64, deviceAddress string) error {
	return m.update(orderID, func(o *Order) error {
		o.DeviceAddress = deviceAddress
		return nil
	})
}

func (m *Memory) ClearAddress(_ context.Context, orderID int64) error {
	return m.update(orderID, func(o *Order) error {
		if o.Attested() {
			return ErrAlreadyAttested
		}
		if o.Address == "" {
			return ErrAddressNotFound
		}
		o.Address = ""
		o.DeviceAddress = ""
		return nil
	})
}

func (m *Memory) ClaimForPublish(_ context.Context, orderID int64) error {
	return m.update(orderID, func(o *Order) error {
		switch o.Status {
		case StatusAttested:
			return ErrAlreadyAttested
		case StatusPublishing:
			return ErrPublishInProgress
		}
		o.Status = StatusPublishing
		return nil
	})
}

func (m *Memory) ReleaseClaim(_ context.Context, orderID int64) error {
	return m.update(orderID, func(o *Order) error {
		if o.Status == StatusPublishing {
			o.Status = StatusPending
		}
		return nil
	})
}

func (m *Memory) MarkAttested(_ context.Context, orderID int64, unit string) error {
	return m.update(orderID, func(o *Order) error {
		if o.Attested() {
			return ErrAlreadyAttested
		}
		o.Status = StatusAttested
		o.Unit = unit
		return nil
	})
}

func (m *Memory) Get(_ context.Context, orderID int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (m *Memory) findActiveLocked(id identity.Identity) (Order, bool) {
	for _, o := range m.orders {
		if o.Identity.Key() == id.Key() && !o.Attested() {
			return o, true
		}
	}
	return Order{}, false
}

func (m *Memory) update(orderID int64, mutate func(*Order) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if err := mutate(&o); err != nil {
		return err
	}
	o.UpdatedAt = m.now()
	m.orders[orderID] = o
	return nil
}
