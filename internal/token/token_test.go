package token

import (
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	payload := map[string]string{
		"address": "0DEVICEADDRESSXXXXXXXXXXXXXXXXXX",
		"extra":   "a b&c=d",
	}
	decoded, err := Decode(Encode(payload))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(decoded) != len(payload) {
		t.Fatalf("unexpected payload size: %d", len(decoded))
	}
	for key, want := range payload {
		if decoded[key] != want {
			t.Fatalf("key %s: got %q, want %q", key, decoded[key], want)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "!!!not-base64!!!", "abc===def"} {
		if _, err := Decode(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", raw, err)
		}
	}
}

func TestDecodeAcceptsPadded(t *testing.T) {
	t.Parallel()

	// "address=a" encodes with padding as "YWRkcmVzcz1h" (no pad needed);
	// force a padded variant via a payload whose length is not a multiple
	// of three.
	decoded, err := Decode("YWRkcmVzcz1hYg==")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decoded["address"] != "ab" {
		t.Fatalf("unexpected address: %q", decoded["address"])
	}
}
