package identity

import (
	"fmt"
	"net/url"
	"strings"
)

// Identity is the chat-side identity snapshot attached to an attestation
// order. UserID is the stable correlation key; DeviceAddress is the optional
// out-of-band pairing channel bound later in the flow.
type Identity struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	DeviceAddress string `json:"-"`
}

// Key returns the repository lookup key for this identity. The original
// service keys orders on the (userId, username) pair, so a renamed user opens
// a fresh order rather than matching the old one.
func (id Identity) Key() string {
	return id.UserID + ":" + id.Username
}

func (id Identity) Validate() error {
	if strings.TrimSpace(id.UserID) == "" {
		return fmt.Errorf("identity: user id is required")
	}
	if strings.TrimSpace(id.Username) == "" {
		return fmt.Errorf("identity: username is required")
	}
	return nil
}

// FromValues decodes identity data carried in a query string, as sent by the
// wallet-facing verify endpoint.
func FromValues(values url.Values) (Identity, error) {
	id := Identity{
		UserID:   strings.TrimSpace(values.Get("userId")),
		Username: strings.TrimSpace(values.Get("username")),
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Values encodes the identity data for embedding in a verify URL.
func (id Identity) Values() url.Values {
	values := url.Values{}
	values.Set("userId", id.UserID)
	values.Set("username", id.Username)
	return values
}
