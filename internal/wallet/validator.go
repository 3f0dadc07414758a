package wallet

import (
	"fmt"
	"strings"
	"sync"
)

// Validator decides whether a string is a syntactically valid wallet address
// for one target chain. The orchestrator never embeds address syntax rules;
// it only consults a Validator.
type Validator interface {
	Chain() string
	IsWalletAddress(address string) bool
}

type validatorRegistry struct {
	mu    sync.RWMutex
	items map[string]Validator
}

var registry = &validatorRegistry{
	items: map[string]Validator{},
}

func Register(v Validator) error {
	chain := normalizeChain(v.Chain())
	if chain == "" {
		return fmt.Errorf("wallet: chain name is required")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.items[chain]; exists {
		return fmt.Errorf("wallet: validator already registered: %s", chain)
	}
	registry.items[chain] = v
	return nil
}

func MustRegister(v Validator) {
	if err := Register(v); err != nil {
		panic(err)
	}
}

// ForChain returns the validator registered for the named chain.
func ForChain(chain string) (Validator, error) {
	normalized := normalizeChain(chain)
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	v, ok := registry.items[normalized]
	if !ok {
		return nil, fmt.Errorf("wallet: unsupported chain: %s", chain)
	}
	return v, nil
}

func normalizeChain(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
