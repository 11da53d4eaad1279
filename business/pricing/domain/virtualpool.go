package domain

import "math/big"

// VirtualPool is a synthetic (i<->j) pool derived from two real pools that
// share a common token k: a jk-pair and an ik-pair (spec.md §4.1, §9
// "Virtual pools"). It is never cached — recomputed per request from two
// immutable snapshots.
type VirtualPool struct {
	// ReserveI, ReserveJ are the scaled balances of the synthetic pool,
	// oriented so ReserveI is token i's leg and ReserveJ is token j's leg.
	ReserveI *big.Int
	ReserveJ *big.Int
	// Fee is the max of the two legs' fees.
	Fee int
}

// legCommonToken identifies which side of a real pool is the shared token
// k, so DeriveVirtualPool can scale the opposite leg onto it.
type legCommonToken struct {
	state      PoolState
	kIsToken0  bool
}

// DeriveVirtualPool computes the synthetic i<->j pool from a jk-leg and an
// ik-leg. Both legs must carry the same common token k and be defined at
// the same block reference (enforced by the caller, which reads both
// states at one block before calling in); DeriveVirtualPool itself only
// checks that neither leg's reserve on the k side is zero, since a zero-
// reserve leg makes the cross-multiplication meaningless. Returns
// (VirtualPool{}, false) when the pool cannot be computed — callers must
// treat this as a soft error and skip the virtual pool, never fail the
// whole request (spec.md §4.1).
func DeriveVirtualPool(jk, ik legCommonToken) (VirtualPool, bool) {
	reserveJ, reserveKFromJK := jk.legs()
	reserveI, reserveKFromIK := ik.legs()

	if reserveKFromJK.Sign() <= 0 || reserveKFromIK.Sign() <= 0 {
		return VirtualPool{}, false
	}

	// Scale token i's real reserve into j's common-token frame so the
	// synthetic pool's two legs are comparable:
	//
	//   virtualReserveI = reserveI * reserveKFromJK / reserveKFromIK
	//
	// This rescales the ik-pair's i-leg as if k had the same depth it has
	// in the jk-pair, which is what lets a single constant-product formula
	// price the synthetic i<->j pair in one hop.
	scaledI := new(big.Int).Mul(reserveI, reserveKFromJK)
	scaledI.Div(scaledI, reserveKFromIK)

	fee := jk.state.Fee
	if ik.state.Fee > fee {
		fee = ik.state.Fee
	}

	return VirtualPool{
		ReserveI: scaledI,
		ReserveJ: reserveJ,
		Fee:      fee,
	}, true
}

// legs returns (reserve of the non-common token, reserve of the common
// token k) for this leg.
func (l legCommonToken) legs() (other, common *big.Int) {
	if l.kIsToken0 {
		return l.state.Reserve1, l.state.Reserve0
	}
	return l.state.Reserve0, l.state.Reserve1
}

// NewLegCommonToken builds a legCommonToken, identifying which side of
// state holds the common token k.
func NewLegCommonToken(state PoolState, kIsToken0 bool) legCommonToken {
	return legCommonToken{state: state, kIsToken0: kIsToken0}
}

// Quote runs the constant-product formula over the virtual pool exactly
// like a real pool: SELL via GetAmountOut, BUY via GetAmountIn, oriented
// i->j when iToJ is true and j->i otherwise.
func (v VirtualPool) Quote(amount *big.Int, sell bool, iToJ bool) *big.Int {
	reserveIn, reserveOut := v.ReserveI, v.ReserveJ
	if !iToJ {
		reserveIn, reserveOut = v.ReserveJ, v.ReserveI
	}
	if sell {
		return GetAmountOut(amount, reserveIn, reserveOut, v.Fee)
	}
	return GetAmountIn(amount, reserveIn, reserveOut, v.Fee)
}
