package app

import (
	"context"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/internal/logger"
)

func testCoordinator(t *testing.T, adapters ...Adapter) *Coordinator {
	t.Helper()
	registry := NewRegistry(adapters...)
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	cfg := CoordinatorConfig{FetchPoolIdentifierTimeout: 50 * time.Millisecond, FetchPoolPricesTimeout: 50 * time.Millisecond}
	return NewCoordinator(registry, cfg, log)
}

// scenarioAdapter lets each test configure exactly the behavior one S1-S7
// scenario needs, without a full constant-product implementation.
type scenarioAdapter struct {
	key          string
	caps         Capabilities
	identifiers  []domain.PoolIdentifier
	prices       []domain.PoolPrices[Payload]
	pricesErr    error
	sleep        time.Duration
	calldataCost domain.GasCost
}

func (s *scenarioAdapter) Key() string               { return s.key }
func (s *scenarioAdapter) Capabilities() Capabilities { return s.caps }
func (s *scenarioAdapter) InitializePricing(context.Context, uint64) error { return nil }
func (s *scenarioAdapter) ReleaseResources(context.Context) error         { return nil }
func (s *scenarioAdapter) GetPoolIdentifiers(context.Context, domain.Token, domain.Token, domain.Side, uint64) ([]domain.PoolIdentifier, error) {
	return s.identifiers, nil
}
func (s *scenarioAdapter) GetPricesVolume(ctx context.Context, from, to domain.Token, amounts []*big.Int, side domain.Side, block uint64, limitPools []domain.PoolIdentifier, fees domain.TransferFeeParams) ([]domain.PoolPrices[Payload], error) {
	if s.sleep > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.sleep):
		}
	}
	return s.prices, s.pricesErr
}
func (s *scenarioAdapter) GetCalldataGasCost(domain.PoolPrices[Payload]) domain.GasCost {
	return s.calldataCost
}

var (
	tokenA = domain.NewToken("0x0000000000000000000000000000000000000001", 18)
	tokenB = domain.NewToken("0x0000000000000000000000000000000000000002", 18)
)

// S1 — Trivial identity is the caller's responsibility upstream of the
// coordinator (it never special-cases from == to); this test instead
// documents that an adapter set with no pools for (from, to) yields no
// priced envelopes, the adapter-side analogue of S1's "all adapters skip".
func TestCoordinator_S1_NoPoolsYieldsNoPricedEnvelopes(t *testing.T) {
	adapter := &scenarioAdapter{key: "uniswapv2", prices: nil}
	c := testCoordinator(t, adapter)

	envelopes := c.GetPoolPrices(context.Background(), tokenA, tokenB, []*big.Int{big.NewInt(0)}, domain.SideSell, 100, []string{"uniswapv2"}, nil, domain.TransferFeeParams{}, nil)

	// ToImprovedPoolPrices still contributes one diagnostic envelope for an
	// empty result (spec.md §4.7's "every adapter call contributes at least
	// one envelope").
	if len(envelopes) != 1 || envelopes[0].Prices != nil {
		t.Fatalf("GetPoolPrices() = %+v, want one diagnostic envelope", envelopes)
	}
}

func TestCoordinator_S2_ConstantProductSell(t *testing.T) {
	amounts := []*big.Int{big.NewInt(0), big.NewInt(1000)}
	reserveIn, reserveOut, fee := big.NewInt(1000000), big.NewInt(2000000), 30

	prices := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		prices[i] = domain.GetAmountOut(a, reserveIn, reserveOut, fee)
	}
	unit := domain.GetAmountOut(big.NewInt(1), reserveIn, reserveOut, fee)

	adapter := &scenarioAdapter{
		key: "uniswapv2",
		prices: []domain.PoolPrices[Payload]{{
			Prices:         prices,
			Unit:           unit,
			GasCost:        domain.NewScalarGasCost(big.NewInt(120000)),
			PoolIdentifier: domain.NewPoolIdentifier("uniswapv2", "0xa_0xb"),
		}},
	}
	c := testCoordinator(t, adapter)

	envelopes := c.GetPoolPrices(context.Background(), tokenA, tokenB, amounts, domain.SideSell, 100, []string{"uniswapv2"}, nil, domain.TransferFeeParams{}, nil)

	if len(envelopes) != 1 || envelopes[0].Prices == nil {
		t.Fatalf("GetPoolPrices() = %+v, want one priced envelope", envelopes)
	}
	got := envelopes[0].Prices.Prices[1]
	want := domain.GetAmountOut(big.NewInt(1000), reserveIn, reserveOut, fee)
	if got.Cmp(want) != 0 {
		t.Errorf("prices[1] = %s, want %s", got, want)
	}
	if unit.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("unit = %s, want 1 (floor)", unit)
	}
}

func TestCoordinator_S3_AllZeroRejection(t *testing.T) {
	amounts := []*big.Int{big.NewInt(100), big.NewInt(200)}
	bad := &scenarioAdapter{
		key: "bad",
		prices: []domain.PoolPrices[Payload]{{
			Prices:         []*big.Int{big.NewInt(0), big.NewInt(0)},
			GasCost:        domain.NewScalarGasCost(big.NewInt(1)),
			PoolIdentifier: domain.NewPoolIdentifier("bad", "0xa_0xb"),
		}},
	}
	good := &scenarioAdapter{
		key: "good",
		prices: []domain.PoolPrices[Payload]{{
			Prices:         []*big.Int{big.NewInt(10), big.NewInt(20)},
			GasCost:        domain.NewScalarGasCost(big.NewInt(1)),
			PoolIdentifier: domain.NewPoolIdentifier("good", "0xa_0xb"),
		}},
	}
	c := testCoordinator(t, bad, good)

	envelopes := c.GetPoolPrices(context.Background(), tokenA, tokenB, amounts, domain.SideSell, 100, []string{"bad", "good"}, nil, domain.TransferFeeParams{}, nil)

	if len(envelopes) != 1 || envelopes[0].DexKey != "good" {
		t.Fatalf("GetPoolPrices() = %+v, want only the good envelope to survive", envelopes)
	}
}

func TestCoordinator_S4_FeeOnTransferSkip(t *testing.T) {
	adapter := &scenarioAdapter{key: "uniswapv2", caps: Capabilities{IsFeeOnTransferSupported: false}}
	c := testCoordinator(t, adapter)

	fees := domain.TransferFeeParams{SrcFee: 50}
	envelopes := c.GetPoolPrices(context.Background(), tokenA, tokenB, []*big.Int{big.NewInt(100)}, domain.SideSell, 100, []string{"uniswapv2"}, nil, fees, nil)

	if len(envelopes) != 1 {
		t.Fatalf("GetPoolPrices() = %+v, want exactly one envelope", envelopes)
	}
	if envelopes[0].Prices != nil {
		t.Errorf("envelope.Prices = %+v, want nil", envelopes[0].Prices)
	}
	if envelopes[0].PoolID != domain.DiagnosticPoolID {
		t.Errorf("envelope.PoolID = %q, want %q", envelopes[0].PoolID, domain.DiagnosticPoolID)
	}
}

func TestCoordinator_S5_Timeout(t *testing.T) {
	adapter := &scenarioAdapter{key: "slow", sleep: 200 * time.Millisecond}
	c := testCoordinator(t, adapter)

	start := time.Now()
	envelopes := c.GetPoolPrices(context.Background(), tokenA, tokenB, []*big.Int{big.NewInt(100)}, domain.SideSell, 100, []string{"slow"}, nil, domain.TransferFeeParams{}, nil)
	elapsed := time.Since(start)

	if elapsed > 100*time.Millisecond {
		t.Errorf("GetPoolPrices() took %s, want close to the 50ms timeout", elapsed)
	}
	if len(envelopes) != 1 || envelopes[0].PoolID != "Timeout" {
		t.Fatalf("GetPoolPrices() = %+v, want one Timeout envelope", envelopes)
	}
}

func TestCoordinator_S6_RollupGasOverlayScalar(t *testing.T) {
	amounts := []*big.Int{big.NewInt(100)}
	adapter := &scenarioAdapter{
		key: "uniswapv2",
		prices: []domain.PoolPrices[Payload]{{
			Prices:         []*big.Int{big.NewInt(10)},
			GasCost:        domain.NewScalarGasCost(big.NewInt(100000)),
			PoolIdentifier: domain.NewPoolIdentifier("uniswapv2", "0xa_0xb"),
		}},
		calldataCost: domain.NewScalarGasCost(big.NewInt(50000)),
	}
	c := testCoordinator(t, adapter)

	ratio := domain.NewRollupRatio(big.NewInt(3), big.NewInt(10)) // 0.3
	envelopes := c.GetPoolPrices(context.Background(), tokenA, tokenB, amounts, domain.SideSell, 100, []string{"uniswapv2"}, nil, domain.TransferFeeParams{}, &ratio)

	if len(envelopes) != 1 || envelopes[0].Prices == nil {
		t.Fatalf("GetPoolPrices() = %+v, want one priced envelope", envelopes)
	}
	got := envelopes[0].Prices.GasCost.Scalar()
	want := big.NewInt(115000) // 100000 + ceil(0.3*50000)
	if got.Cmp(want) != 0 {
		t.Errorf("GasCost = %s, want %s", got, want)
	}
}

func TestCoordinator_S7_ValidationBadShape(t *testing.T) {
	amounts := []*big.Int{big.NewInt(0), big.NewInt(100), big.NewInt(200)}
	adapter := &scenarioAdapter{
		key: "bad",
		prices: []domain.PoolPrices[Payload]{{
			Prices:         []*big.Int{big.NewInt(5), big.NewInt(10), big.NewInt(20)}, // nonzero at index 0
			GasCost:        domain.NewSequenceGasCost([]*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30)}),
			PoolIdentifier: domain.NewPoolIdentifier("bad", "0xa_0xb"),
		}},
	}
	c := testCoordinator(t, adapter)

	envelopes := c.GetPoolPrices(context.Background(), tokenA, tokenB, amounts, domain.SideSell, 100, []string{"bad"}, nil, domain.TransferFeeParams{}, nil)

	if len(envelopes) != 0 {
		t.Fatalf("GetPoolPrices() = %+v, want the malformed envelope dropped entirely", envelopes)
	}
}

func TestCoordinator_GetPoolIdentifiers_ConstantPriceOptOut(t *testing.T) {
	adapter := &scenarioAdapter{
		key:         "constprice",
		caps:        Capabilities{HasConstantPriceLargeAmounts: true},
		identifiers: []domain.PoolIdentifier{domain.NewPoolIdentifier("constprice", "0xa_0xb")},
	}
	c := testCoordinator(t, adapter)

	out := c.GetPoolIdentifiers(context.Background(), tokenA, tokenB, domain.SideSell, 100, []string{"constprice"}, true)
	if ids, ok := out["constprice"]; !ok || ids != nil {
		t.Errorf("GetPoolIdentifiers() = %v, want nil for an opted-out adapter", out)
	}
}

func TestCoordinator_GetPoolIdentifiers_EveryKeyPresent(t *testing.T) {
	a := &scenarioAdapter{key: "a"}
	c := testCoordinator(t, a)

	out := c.GetPoolIdentifiers(context.Background(), tokenA, tokenB, domain.SideSell, 100, []string{"a", "unregistered"}, false)
	if _, ok := out["a"]; !ok {
		t.Errorf("GetPoolIdentifiers() missing key %q", "a")
	}
	if _, ok := out["unregistered"]; !ok {
		t.Errorf("GetPoolIdentifiers() missing key %q, want an empty-slice entry on adapter lookup failure", "unregistered")
	}
}
