package wallet

import (
	"github.com/ethereum/go-ethereum/common"
)

// EthereumValidator accepts 0x-prefixed 20-byte hex addresses.
type EthereumValidator struct{}

func NewEthereumValidator() EthereumValidator { return EthereumValidator{} }

func (EthereumValidator) Chain() string { return "ethereum" }

func (EthereumValidator) IsWalletAddress(address string) bool {
	return common.IsHexAddress(address) && len(address) == 2+2*common.AddressLength
}

func init() {
	MustRegister(NewEthereumValidator())
}
