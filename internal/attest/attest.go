// Package attest drives the attestation order lifecycle: one explicit state
// machine invocation per inbound event, with the durable order store, the
// session bridge, the publisher and the messaging gateway behind interfaces.
package attest

import (
	"context"
	"errors"

	"github.com/Taump/attestation-telegram/internal/identity"
)

var (
	// ErrInvalidAddress reports a candidate wallet address the validator
	// rejected; the order is left untouched.
	ErrInvalidAddress = errors.New("attest: invalid wallet address")
	// ErrInvalidData reports identity data of the wrong shape on the
	// verify endpoint.
	ErrInvalidData = errors.New("attest: invalid identity data")
	// ErrPublishFailed reports a publisher transport or ledger rejection;
	// the order stays in its pre-call state so confirmation can retry.
	ErrPublishFailed = errors.New("attest: publish failed")
)

// Publisher commits an identity-to-address binding to the ledger and returns
// the unit id. The orchestrator invokes it at most once per
// pending-to-attested transition.
type Publisher interface {
	Publish(ctx context.Context, walletAddress string, id identity.Identity) (string, error)
}

// Messenger sends out-of-band text to a paired device. Delivery is
// fire-and-forget: failures are logged, never surfaced into transitions.
type Messenger interface {
	SendToDevice(ctx context.Context, deviceAddress, text string) error
}

// Pairer produces wallet pairing URLs for the HTTP redirect surface.
type Pairer interface {
	PairingURL() (string, error)
	PairingURLWithData(walletAddress string, id identity.Identity) (string, error)
}
