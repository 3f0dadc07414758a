package order

import (
	"context"

	"github.com/Taump/attestation-telegram/internal/identity"
)

// Repository is the durable order store. Implementations must keep at most
// one non-attested order per identity key even under concurrent Create calls,
// and every mutating call fails with ErrOrderNotFound when the id is unknown.
type Repository interface {
	// FindActive returns the single non-attested order for the identity
	// key, or ErrOrderNotFound.
	FindActive(ctx context.Context, id identity.Identity) (Order, error)
	// Find returns the newest order matching identity key and address,
	// attested or not, or ErrOrderNotFound.
	Find(ctx context.Context, id identity.Identity, address string) (Order, error)
	// FindNewest returns the newest order for the identity key regardless
	// of status, or ErrOrderNotFound.
	FindNewest(ctx context.Context, id identity.Identity) (Order, error)
	// Create opens an order for the identity, reusing the existing active
	// order's id if one exists. The returned order reflects the stored row.
	Create(ctx context.Context, id identity.Identity, address string) (Order, error)

	SetAddress(ctx context.Context, orderID int64, address string) error
	SetDeviceAddress(ctx context.Context, orderID int64, deviceAddress string) error
	// ClearAddress removes address and device address from a pending
	// order; it fails with ErrAlreadyAttested on an attested order and
	// with ErrAddressNotFound when there is nothing to clear.
	ClearAddress(ctx context.Context, orderID int64) error
	// ClaimForPublish conditionally flips a pending order to publishing,
	// so exactly one caller proceeds to the publisher per transition. It
	// fails with ErrPublishInProgress when another claim holds the order
	// and ErrAlreadyAttested once the order is attested.
	ClaimForPublish(ctx context.Context, orderID int64) error
	// ReleaseClaim rolls a publishing order back to pending after a
	// failed publish, so a later confirm can retry.
	ReleaseClaim(ctx context.Context, orderID int64) error
	// MarkAttested records the attestation unit and flips the status. It
	// is a no-op returning ErrAlreadyAttested if the order was already
	// attested.
	MarkAttested(ctx context.Context, orderID int64, unit string) error
	// Get returns the order by id, or ErrOrderNotFound.
	Get(ctx context.Context, orderID int64) (Order, error)
}
