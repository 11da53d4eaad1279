package poolstate

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/kbaldwin/dexquote/business/pricing/domain"
)

// MustAddress parses hex into a common.Address, panicking on a malformed
// address since pool descriptors are built once at startup from
// configuration, not from untrusted runtime input.
func MustAddress(hex string) common.Address {
	if !common.IsHexAddress(hex) {
		panic("poolstate: invalid pool address: " + hex)
	}
	return common.HexToAddress(hex)
}

// Descriptor is everything the manager needs to warm and live-track one
// constant-product pool: its identifier, on-chain address, token pair in
// token0/token1 order, and fixed fee (spec.md §3 "Pool State (AMM)").
type Descriptor struct {
	ID      domain.PoolIdentifier
	Address common.Address
	Token0  domain.Token
	Token1  domain.Token
	Fee     int
}
