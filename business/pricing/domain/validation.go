package domain

import "math/big"

// ValidationFailure names which invariant a quote failed, for the
// coordinator's diagnostic log (spec.md §4.5 "Validation pass").
type ValidationFailure string

const (
	FailureLengthMismatch    ValidationFailure = "prices length does not match amounts length"
	FailureGasLengthMismatch ValidationFailure = "gas cost sequence length does not match amounts length"
	FailureZeroAmountNonzero ValidationFailure = "nonzero price or gas cost at a zero-amount index"
	FailureAllZeroPrices     ValidationFailure = "all price entries are zero"
)

// ValidatePoolPrices checks a single pool's quote against the cross-
// adapter invariants of spec.md §3/§4.5/§8. It returns ("", true) when the
// quote is well-formed, or (reason, false) naming the first invariant
// violated. Callers drop the envelope and log the reason; validation
// failure never fails the aggregate.
func ValidatePoolPrices[D any](pp PoolPrices[D], amounts []*big.Int) (ValidationFailure, bool) {
	if len(pp.Prices) != len(amounts) {
		return FailureLengthMismatch, false
	}

	gasSeq := pp.GasCost.IsSequence()
	if gasSeq && pp.GasCost.Len() != len(amounts) {
		return FailureGasLengthMismatch, false
	}

	allZero := true
	for i, amount := range amounts {
		price := pp.Prices[i]
		if price != nil && price.Sign() != 0 {
			allZero = false
		}
		if amount == nil || amount.Sign() != 0 {
			continue
		}
		if price != nil && price.Sign() != 0 {
			return FailureZeroAmountNonzero, false
		}
		if gasSeq {
			if g := pp.GasCost.Sequence()[i]; g != nil && g.Sign() != 0 {
				return FailureZeroAmountNonzero, false
			}
		}
	}

	if allZero {
		return FailureAllZeroPrices, false
	}

	return "", true
}
