// Package order defines the attestation order entity and its durable store
// contract. An order tracks one identity's progress from first contact to a
// published attestation.
package order

import (
	"errors"
	"time"

	"github.com/Taump/attestation-telegram/internal/identity"
)

type Status string

const (
	StatusPending Status = "pending"
	// StatusPublishing marks an order claimed for a publisher call in
	// flight; it is active but no second publish may start.
	StatusPublishing Status = "publishing"
	StatusAttested   Status = "attested"
)

var (
	ErrOrderNotFound     = errors.New("order: not found")
	ErrAlreadyAttested   = errors.New("order: already attested")
	ErrAddressNotFound   = errors.New("order: no wallet address to remove")
	ErrPublishInProgress = errors.New("order: publish already in progress")
)

// Order is the persisted attestation order. Address and DeviceAddress are
// empty until submitted/bound; Unit is set only once the order is attested.
type Order struct {
	ID            int64
	Identity      identity.Identity
	Address       string
	DeviceAddress string
	Status        Status
	Unit          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o Order) Attested() bool {
	return o.Status == StatusAttested
}
