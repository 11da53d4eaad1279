package domain

import "math/big"

// PoolState is a constant-product AMM pool's reserves and fee, valid only
// at the specific block it was committed at (spec.md §3 "Pool State
// (AMM)"). Fee is basis points against FeeDenominator.
type PoolState struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
	Fee      int
}

// NewPoolState defensively copies reserves so a caller mutating its own
// big.Int after construction cannot corrupt committed state.
func NewPoolState(reserve0, reserve1 *big.Int, fee int) PoolState {
	return PoolState{
		Reserve0: new(big.Int).Set(reserve0),
		Reserve1: new(big.Int).Set(reserve1),
		Fee:      fee,
	}
}

// ReserveFor returns (reserveIn, reserveOut) oriented for a swap from
// token0 to token1 when zeroForOne is true, or token1 to token0 otherwise.
func (s PoolState) ReserveFor(zeroForOne bool) (reserveIn, reserveOut *big.Int) {
	if zeroForOne {
		return s.Reserve0, s.Reserve1
	}
	return s.Reserve1, s.Reserve0
}

// WithinReserveLimit reports whether adding delta to the input-side
// reserve keeps it within RESERVE_LIMIT (spec.md §3 invariant 1).
func (s PoolState) WithinReserveLimit(zeroForOne bool, delta *big.Int) bool {
	reserveIn, _ := s.ReserveFor(zeroForOne)
	projected := new(big.Int).Add(reserveIn, delta)
	return projected.Cmp(ReserveLimit()) <= 0
}
