package app

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	pricingdomain "github.com/kbaldwin/dexquote/business/pricing/domain"
	routingdomain "github.com/kbaldwin/dexquote/business/routing/domain"
)

func priced(dexKey, poolID string, gasUnits int64) routingdomain.Envelope {
	pp := pricingdomain.PoolPrices[any]{
		Prices:         []*big.Int{big.NewInt(10)},
		GasCost:        pricingdomain.NewScalarGasCost(big.NewInt(gasUnits)),
		PoolIdentifier: pricingdomain.PoolIdentifier(poolID),
	}
	return routingdomain.Envelope{Quote: pricingdomain.ImprovedPoolPrice[any]{DexKey: dexKey, PoolID: pp.PoolIdentifier, Prices: &pp}}
}

func diagnostic(dexKey, reason string) routingdomain.Envelope {
	return routingdomain.Envelope{Quote: pricingdomain.ImprovedPoolPrice[any]{DexKey: dexKey, PoolID: pricingdomain.PoolIdentifier(reason), Prices: nil}}
}

func TestSortByDexKey(t *testing.T) {
	rate := routingdomain.UnoptimizedRate{
		Envelopes: []routingdomain.Envelope{
			priced("sushiswap", "sushiswap_0xb", 1),
			priced("uniswapv2", "uniswapv2_0xa", 1),
			priced("sushiswap", "sushiswap_0xa", 1),
		},
	}

	got := SortByDexKey(rate)
	want := []string{"sushiswap_0xa", "sushiswap_0xb", "uniswapv2_0xa"}
	for i, w := range want {
		if string(got.Envelopes[i].Quote.PoolID) != w {
			t.Errorf("Envelopes[%d].PoolID = %q, want %q", i, got.Envelopes[i].Quote.PoolID, w)
		}
	}
}

func TestDropDiagnostics(t *testing.T) {
	rate := routingdomain.UnoptimizedRate{
		Envelopes: []routingdomain.Envelope{
			priced("uniswapv2", "uniswapv2_0xa", 1),
			diagnostic("sushiswap", "Timeout"),
		},
	}

	got := DropDiagnostics(rate)
	if len(got.Envelopes) != 1 || got.Envelopes[0].Quote.DexKey != "uniswapv2" {
		t.Errorf("DropDiagnostics() = %+v, want only the priced envelope", got.Envelopes)
	}
}

func TestAnnotateGasCostUSD(t *testing.T) {
	rate := routingdomain.UnoptimizedRate{
		GasPriceWei: big.NewInt(20_000_000_000), // 20 gwei
		ETHPriceUSD: decimal.NewFromInt(3000),
		Envelopes: []routingdomain.Envelope{
			priced("uniswapv2", "uniswapv2_0xa", 100000),
			diagnostic("sushiswap", "Timeout"),
		},
	}

	got := AnnotateGasCostUSD(rate)
	if got.Envelopes[0].Cost == nil {
		t.Fatal("Envelopes[0].Cost = nil, want a cost estimate")
	}
	if got.Envelopes[1].Cost != nil {
		t.Error("Envelopes[1].Cost != nil, want nil for a diagnostic envelope")
	}

	wantETH := decimal.NewFromBigInt(big.NewInt(100000), 0).
		Mul(decimal.NewFromBigInt(rate.GasPriceWei, 0)).
		Div(decimal.New(1, 18))
	if !got.Envelopes[0].Cost.ETH.Round(12).Equal(wantETH.Round(12)) {
		t.Errorf("Cost.ETH = %s, want ~%s", got.Envelopes[0].Cost.ETH, wantETH)
	}
}

func TestAnnotateGasCostUSD_NoOpWithoutReferences(t *testing.T) {
	rate := routingdomain.UnoptimizedRate{
		Envelopes: []routingdomain.Envelope{priced("uniswapv2", "uniswapv2_0xa", 100000)},
	}
	got := AnnotateGasCostUSD(rate)
	if got.Envelopes[0].Cost != nil {
		t.Error("Cost != nil, want no-op when GasPriceWei/ETHPriceUSD are unset")
	}
}
