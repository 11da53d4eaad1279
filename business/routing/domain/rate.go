// Package domain holds the route optimizer pipeline's working value: the
// coordinator's fanned-out quote set, wrapped for display annotations,
// before any pipeline transform has run over it.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	pricingdomain "github.com/kbaldwin/dexquote/business/pricing/domain"
)

// CostEstimate is a display-oriented conversion of a quote's gas units
// into ETH and USD, attached to an Envelope by the annotate-gas-cost-usd
// pipeline step. It never feeds back into pricing math.
type CostEstimate struct {
	GasUnits *big.Int
	ETH      decimal.Decimal
	USD      decimal.Decimal
}

var weiPerETH = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// NewCostEstimate converts gasUnits * gasPriceWei into ETH and, via
// ethPriceUSD, into USD.
func NewCostEstimate(gasUnits, gasPriceWei *big.Int, ethPriceUSD decimal.Decimal) *CostEstimate {
	totalWei := new(big.Int).Mul(gasUnits, gasPriceWei)
	ethFloat := new(big.Float).Quo(new(big.Float).SetInt(totalWei), weiPerETH)
	eth, _ := decimal.NewFromString(ethFloat.Text('f', 18))
	return &CostEstimate{
		GasUnits: gasUnits,
		ETH:      eth,
		USD:      eth.Mul(ethPriceUSD),
	}
}

// Envelope pairs one coordinator envelope with routing-pipeline
// annotations. Transforms may add or replace Cost; they never mutate Quote.
type Envelope struct {
	Quote pricingdomain.ImprovedPoolPrice[any]
	Cost  *CostEstimate
}

// UnoptimizedRate is the route optimizer pipeline's sole working value
// (spec.md §4.8): one coordinator call's full envelope set for a
// (from, to, side) query, plus the reference prices pipeline steps need to
// annotate it. No transform, and no field here, picks a "best" route.
type UnoptimizedRate struct {
	From, To    pricingdomain.Token
	Side        pricingdomain.Side
	Block       uint64
	GasPriceWei *big.Int
	ETHPriceUSD decimal.Decimal
	Envelopes   []Envelope
}
