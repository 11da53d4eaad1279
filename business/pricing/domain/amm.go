package domain

import "math/big"

// feeDenominator is the basis-point denominator F pool fees are expressed
// against, defaulting to 10000 (spec.md §3). reserveLimit is RESERVE_LIMIT,
// defaulting to 2^112-1, the contract-level guard against reserve overflow
// (spec.md §3). Both are configurable (spec.md §6 "Pricing.FeeDenominator",
// "Pricing.ReserveLimit") via Configure, wired from PricingConfig at startup.
var (
	feeDenominator = 10000
	reserveLimit   = defaultReserveLimit()
)

func defaultReserveLimit() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 112)
	return limit.Sub(limit, big.NewInt(1))
}

// Configure overrides the fee denominator and reserve limit every AMM
// calculation in this package uses. A non-positive feeDenom or nil limit
// leaves that value at its default. Intended to be called once during
// startup, before any pricing adapter is initialized.
func Configure(feeDenom int, limit *big.Int) {
	if feeDenom > 0 {
		feeDenominator = feeDenom
	}
	if limit != nil {
		reserveLimit = new(big.Int).Set(limit)
	}
}

// FeeDenominator returns the basis-point denominator F pool fees are
// expressed against.
func FeeDenominator() int {
	return feeDenominator
}

// ReserveLimit returns a copy of the configured reserve limit guard.
func ReserveLimit() *big.Int {
	return new(big.Int).Set(reserveLimit)
}

// GetAmountOut computes the constant-product, fee-on-input SELL quote:
//
//	(x*(F-fee)*rOut) / (rIn*F + x*(F-fee))
//
// integer division, with any zero denominator or an input that would push
// rIn past RESERVE_LIMIT returning 0 (spec.md §4.1).
func GetAmountOut(x, rIn, rOut *big.Int, fee int) *big.Int {
	if x == nil || rIn == nil || rOut == nil || x.Sign() <= 0 {
		return big.NewInt(0)
	}
	if new(big.Int).Add(rIn, x).Cmp(reserveLimit) > 0 {
		return big.NewInt(0)
	}

	feeMultiplier := big.NewInt(int64(feeDenominator - fee))
	xWithFee := new(big.Int).Mul(x, feeMultiplier)

	numerator := new(big.Int).Mul(xWithFee, rOut)
	denominator := new(big.Int).Mul(rIn, big.NewInt(int64(feeDenominator)))
	denominator.Add(denominator, xWithFee)

	if denominator.Sign() <= 0 {
		return big.NewInt(0)
	}
	return numerator.Div(numerator, denominator)
}

// GetAmountIn computes the constant-product, fee-on-input BUY quote:
//
//	1 + (rIn*y*F) / ((F-fee)*(rOut-y))
//
// The leading "1 +" matches the source contract's round-up-in-the-maker's-
// favor behavior exactly (spec.md §4.1) and is not a generic ceiling: it is
// added unconditionally whenever the division is performed, never skipped
// when the division happens to be exact.
func GetAmountIn(y, rIn, rOut *big.Int, fee int) *big.Int {
	if y == nil || rIn == nil || rOut == nil || y.Sign() <= 0 {
		return big.NewInt(0)
	}

	remaining := new(big.Int).Sub(rOut, y)
	if remaining.Sign() <= 0 {
		return big.NewInt(0)
	}

	feeMultiplier := big.NewInt(int64(feeDenominator - fee))
	denominator := new(big.Int).Mul(feeMultiplier, remaining)
	if denominator.Sign() <= 0 {
		return big.NewInt(0)
	}

	numerator := new(big.Int).Mul(rIn, y)
	numerator.Mul(numerator, big.NewInt(int64(feeDenominator)))
	if numerator.Sign() == 0 {
		return big.NewInt(0)
	}

	quotient := new(big.Int).Div(numerator, denominator)
	return quotient.Add(quotient, big.NewInt(1))
}

// ComposeSellPath runs GetAmountOut left-to-right across a multi-hop path,
// feeding each hop's output into the next hop's input (spec.md §4.1, "SELL
// composes left-to-right on input"). A zero output at any hop short-
// circuits the remaining hops to zero.
func ComposeSellPath(amountIn *big.Int, legs []PoolLeg) *big.Int {
	amount := new(big.Int).Set(amountIn)
	for _, leg := range legs {
		if amount.Sign() == 0 {
			return amount
		}
		amount = GetAmountOut(amount, leg.ReserveIn, leg.ReserveOut, leg.Fee)
	}
	return amount
}

// ComposeBuyPath runs GetAmountIn right-to-left across a multi-hop path,
// solving backward from the fixed output (spec.md §4.1, "BUY composes
// right-to-left on output").
func ComposeBuyPath(amountOut *big.Int, legs []PoolLeg) *big.Int {
	amount := new(big.Int).Set(amountOut)
	for i := len(legs) - 1; i >= 0; i-- {
		if amount.Sign() == 0 {
			return amount
		}
		leg := legs[i]
		amount = GetAmountIn(amount, leg.ReserveIn, leg.ReserveOut, leg.Fee)
	}
	return amount
}

// PoolLeg is one hop of a composed multi-pool path: the reserves oriented
// so ReserveIn/ReserveOut already match the hop's trade direction.
type PoolLeg struct {
	ReserveIn  *big.Int
	ReserveOut *big.Int
	Fee        int
}
