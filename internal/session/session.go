// Package session holds the short-lived bridge between the wallet pairing
// channel and the chat channel: a single-use mapping from a correlation key
// (device address or minted token) to a wallet address.
package session

import "context"

type Store interface {
	// Put stores the wallet address under the key, replacing any previous
	// entry for the same key.
	Put(ctx context.Context, key, walletAddress string) error
	// Take consumes the entry: it returns the stored address and deletes
	// it, so a second Take for the same key misses.
	Take(ctx context.Context, key string) (string, bool, error)
	// Delete drops the entry if present.
	Delete(ctx context.Context, key string) error
}
