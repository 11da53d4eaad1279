package domain

import (
	"errors"
	"math/big"
)

// ErrMixedGasCostShape is returned when an adapter's own gas cost and its
// L1 calldata gas cost disagree on scalar-vs-sequence shape; spec.md §4.5
// treats this as a hard error for that adapter's whole batch.
var ErrMixedGasCostShape = errors.New("pricing: mixed scalar/sequence calldata gas cost")

// RollupRatio is the L1/L2 gas ratio as an exact rational, avoiding the
// float rounding that would otherwise leak into a ceiling computation over
// potentially large gas figures (spec.md §4.5, §8 testable property 6).
type RollupRatio struct {
	Num *big.Int
	Den *big.Int
}

// NewRollupRatio builds a ratio from numerator/denominator.
func NewRollupRatio(num, den *big.Int) RollupRatio {
	return RollupRatio{Num: new(big.Int).Set(num), Den: new(big.Int).Set(den)}
}

// CeilMul computes ceil(ratio * x) for a non-negative x.
func (r RollupRatio) CeilMul(x *big.Int) *big.Int {
	if x == nil || x.Sign() == 0 || r.Num.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(x, r.Num)
	quo, rem := new(big.Int), new(big.Int)
	quo.DivMod(num, r.Den, rem)
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

// ApplyRollupGas overlays L1 calldata gas onto an adapter's own gas cost
// per spec.md §4.5: gasCostL2 is preserved as the value already in gc;
// gasCostL1 is l1Cost. Scalar+scalar sums and applies the ceiling once;
// sequence+sequence does it element-wise after checking both align to
// amountsLen; any other combination is ErrMixedGasCostShape.
func ApplyRollupGas(gc GasCost, l1Cost GasCost, ratio RollupRatio, amountsLen int) (GasCost, error) {
	switch {
	case gc.IsScalar() && l1Cost.IsScalar():
		adjusted := new(big.Int).Add(gc.Scalar(), ratio.CeilMul(l1Cost.Scalar()))
		return NewScalarGasCost(adjusted), nil

	case gc.IsSequence() && l1Cost.IsSequence():
		if gc.Len() != amountsLen || l1Cost.Len() != amountsLen {
			return GasCost{}, ErrMixedGasCostShape
		}
		out := make([]*big.Int, amountsLen)
		for i := 0; i < amountsLen; i++ {
			out[i] = new(big.Int).Add(gc.Sequence()[i], ratio.CeilMul(l1Cost.Sequence()[i]))
		}
		return NewSequenceGasCost(out), nil

	default:
		return GasCost{}, ErrMixedGasCostShape
	}
}
