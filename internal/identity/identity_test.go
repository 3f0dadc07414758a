package identity

import (
	"net/url"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	id := Identity{UserID: "42", Username: "alice"}
	if err := id.Validate(); err != nil {
		t.Fatalf("expected valid identity, got %v", err)
	}

	if err := (Identity{Username: "alice"}).Validate(); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if err := (Identity{UserID: "42", Username: "  "}).Validate(); err == nil {
		t.Fatalf("expected error for blank username")
	}
}

func TestKeyDistinguishesRenamedUser(t *testing.T) {
	t.Parallel()

	before := Identity{UserID: "42", Username: "alice"}
	after := Identity{UserID: "42", Username: "alice2"}
	if before.Key() == after.Key() {
		t.Fatalf("renamed user must not share the order key")
	}
}

func TestFromValuesRoundTrip(t *testing.T) {
	t.Parallel()

	id := Identity{UserID: "42", Username: "alice"}
	got, err := FromValues(id.Values())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != id {
		t.Fatalf("unexpected identity: %+v", got)
	}

	if _, err := FromValues(url.Values{"username": {"alice"}}); err == nil {
		t.Fatalf("expected error for missing userId")
	}
}
