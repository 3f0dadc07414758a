// Package token implements the correlation token that bridges the wallet
// pairing channel and the chat channel. A token is a base64url encoding of
// url-encoded key/value pairs; it is a correlation key, not a credential.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
)

// ErrMalformed reports a token that cannot be decoded. Callers degrade to the
// no-session flow instead of failing the whole event.
var ErrMalformed = errors.New("token: malformed")

func Encode(payload map[string]string) string {
	values := url.Values{}
	for key, value := range payload {
		values.Set(key, value)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(values.Encode()))
}

func Decode(encoded string) (map[string]string, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}
	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	payload := make(map[string]string, len(values))
	for key := range values {
		payload[key] = values.Get(key)
	}
	return payload, nil
}

// decodeBase64 accepts both padded and unpadded url-safe encodings; wallet
// clients are not consistent about padding.
func decodeBase64(encoded string) ([]byte, error) {
	if raw, err := base64.RawURLEncoding.DecodeString(encoded); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(encoded)
}
