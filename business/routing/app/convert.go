package app

import (
	"math/big"

	"github.com/shopspring/decimal"

	pricingdomain "github.com/kbaldwin/dexquote/business/pricing/domain"
	routingdomain "github.com/kbaldwin/dexquote/business/routing/domain"
)

// FromCoordinatorOutput builds the pipeline's starting UnoptimizedRate from
// one Coordinator.GetPoolPrices call (spec.md §4.8's "unoptimized routing
// decision", before any transform has run).
func FromCoordinatorOutput(
	from, to pricingdomain.Token,
	side pricingdomain.Side,
	block uint64,
	gasPriceWei *big.Int,
	ethPriceUSD decimal.Decimal,
	envelopes []pricingdomain.ImprovedPoolPrice[any],
) routingdomain.UnoptimizedRate {
	wrapped := make([]routingdomain.Envelope, len(envelopes))
	for i, e := range envelopes {
		wrapped[i] = routingdomain.Envelope{Quote: e}
	}
	return routingdomain.UnoptimizedRate{
		From:        from,
		To:          to,
		Side:        side,
		Block:       block,
		GasPriceWei: gasPriceWei,
		ETHPriceUSD: ethPriceUSD,
		Envelopes:   wrapped,
	}
}
