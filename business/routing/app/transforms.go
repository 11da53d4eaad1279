package app

import (
	"math/big"
	"sort"

	pricingdomain "github.com/kbaldwin/dexquote/business/pricing/domain"
	routingdomain "github.com/kbaldwin/dexquote/business/routing/domain"
)

// SortByDexKey stable-sorts envelopes by (DexKey, PoolID).
func SortByDexKey(rate routingdomain.UnoptimizedRate) routingdomain.UnoptimizedRate {
	sorted := make([]routingdomain.Envelope, len(rate.Envelopes))
	copy(sorted, rate.Envelopes)
	sort.SliceStable(sorted, func(i, j int) bool {
		qi, qj := sorted[i].Quote, sorted[j].Quote
		if qi.DexKey != qj.DexKey {
			return qi.DexKey < qj.DexKey
		}
		return qi.PoolID < qj.PoolID
	})
	rate.Envelopes = sorted
	return rate
}

// DropDiagnostics removes envelopes that carry no quote, leaving only
// venues that returned a priced pool.
func DropDiagnostics(rate routingdomain.UnoptimizedRate) routingdomain.UnoptimizedRate {
	kept := make([]routingdomain.Envelope, 0, len(rate.Envelopes))
	for _, e := range rate.Envelopes {
		if e.Quote.Prices != nil {
			kept = append(kept, e)
		}
	}
	rate.Envelopes = kept
	return rate
}

// AnnotateGasCostUSD attaches a display-only CostEstimate to every priced
// envelope, using the rate's gas price and ETH/USD reference. It is a
// no-op when either reference is unset, and never drops or reorders
// envelopes.
func AnnotateGasCostUSD(rate routingdomain.UnoptimizedRate) routingdomain.UnoptimizedRate {
	if rate.GasPriceWei == nil || rate.ETHPriceUSD.IsZero() {
		return rate
	}
	annotated := make([]routingdomain.Envelope, len(rate.Envelopes))
	for i, e := range rate.Envelopes {
		annotated[i] = e
		if e.Quote.Prices == nil {
			continue
		}
		units := gasUnits(e.Quote.Prices.GasCost)
		if units == nil {
			continue
		}
		annotated[i].Cost = routingdomain.NewCostEstimate(units, rate.GasPriceWei, rate.ETHPriceUSD)
	}
	rate.Envelopes = annotated
	return rate
}

func gasUnits(gc pricingdomain.GasCost) *big.Int {
	switch {
	case gc.IsScalar():
		return gc.Scalar()
	case gc.IsSequence() && gc.Len() > 0:
		return gc.Sequence()[0]
	default:
		return nil
	}
}
