package session

import (
	"context"
	"testing"
	"time"
)

func TestTakeIsSingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(time.Minute)

	if err := store.Put(ctx, "device-1", "WALLET1"); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	address, ok, err := store.Take(ctx, "device-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if address != "WALLET1" {
		t.Fatalf("unexpected address: %s", address)
	}

	if _, ok, _ := store.Take(ctx, "device-1"); ok {
		t.Fatalf("second take must miss")
	}
}

func TestTakeMissesAfterExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(time.Minute)

	current := time.Now()
	store.now = func() time.Time { return current }

	if err := store.Put(ctx, "device-1", "WALLET1"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	current = current.Add(2 * time.Minute)

	if _, ok, _ := store.Take(ctx, "device-1"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory(time.Minute)

	_ = store.Put(ctx, "device-1", "WALLET1")
	if err := store.Delete(ctx, "device-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := store.Take(ctx, "device-1"); ok {
		t.Fatalf("expected miss after delete")
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "device-2"); err != nil {
		t.Fatalf("delete of missing key failed: %v", err)
	}
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	t.Parallel()
	store := NewMemory(time.Minute)

	current := time.Now()
	store.now = func() time.Time { return current }

	_ = store.Put(context.Background(), "device-1", "WALLET1")
	current = current.Add(2 * time.Minute)
	store.sweep()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.entries) != 0 {
		t.Fatalf("expected sweep to clear entries, got %d", len(store.entries))
	}
}
