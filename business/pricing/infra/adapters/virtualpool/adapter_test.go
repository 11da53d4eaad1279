package virtualpool

import (
	"context"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kbaldwin/dexquote/business/blockchain/domain"
	"github.com/kbaldwin/dexquote/business/pricing/app"
	pricingdomain "github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/business/pricing/infra/poolstate"
	"github.com/kbaldwin/dexquote/internal/logger"
)

// fakeMulticaller answers balanceOf-shaped calls with a fixed reserve pair
// per contract address, in call order, regardless of which pool the
// manager's Warm happens to visit first (it iterates a map internally).
type fakeMulticaller struct {
	reserves map[common.Address][2]*big.Int
}

func (f *fakeMulticaller) Aggregate(_ context.Context, _ uint64, calls []domain.Call) ([]domain.CallResult, error) {
	seen := make(map[common.Address]int, len(calls))
	out := make([]domain.CallResult, len(calls))
	for i, c := range calls {
		idx := seen[c.To]
		seen[c.To]++
		out[i] = domain.CallResult{Data: common.LeftPadBytes(f.reserves[c.To][idx].Bytes(), 32)}
	}
	return out, nil
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func TestAdapter_GetPricesVolume_DerivesSyntheticPool(t *testing.T) {
	tokenI := pricingdomain.NewToken("0x0000000000000000000000000000000000000001", 18)
	tokenJ := pricingdomain.NewToken("0x0000000000000000000000000000000000000002", 18)
	tokenK := pricingdomain.NewToken("0x0000000000000000000000000000000000000003", 18)

	jkAddr := poolstate.MustAddress("0x00000000000000000000000000000000000000aa")
	ikAddr := poolstate.MustAddress("0x00000000000000000000000000000000000000bb")

	reserveJ := big.NewInt(1_000_000)
	reserveKFromJK := big.NewInt(2_000_000)
	reserveI := big.NewInt(500_000)
	reserveKFromIK := big.NewInt(1_000_000)

	mc := &fakeMulticaller{reserves: map[common.Address][2]*big.Int{
		jkAddr: {reserveJ, reserveKFromJK}, // Token0=J, Token1=K
		ikAddr: {reserveI, reserveKFromIK}, // Token0=I, Token1=K
	}}

	manager := poolstate.NewManager(mc, nil, testLogger())
	jkID := pricingdomain.NewPoolIdentifier("pairjk", "jk")
	ikID := pricingdomain.NewPoolIdentifier("pairik", "ik")
	manager.Register(
		poolstate.Descriptor{ID: jkID, Address: jkAddr, Token0: tokenJ, Token1: tokenK, Fee: 30},
		poolstate.Descriptor{ID: ikID, Address: ikAddr, Token0: tokenI, Token1: tokenK, Fee: 30},
	)
	if err := manager.Warm(context.Background(), 100); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	route := Route{
		ID:               pricingdomain.NewPoolIdentifier("virtualpool", pricingdomain.VirtualPoolPayload(jkID, ikID)),
		TokenI:           tokenI,
		TokenJ:           tokenJ,
		JKPoolID:         jkID,
		JKCommonIsToken0: false,
		IKPoolID:         ikID,
		IKCommonIsToken0: false,
	}
	adapter := NewAdapter("virtualpool", manager, []Route{route}, app.Capabilities{IsFeeOnTransferSupported: true}, testLogger())

	ids, err := adapter.GetPoolIdentifiers(context.Background(), tokenI, tokenJ, pricingdomain.SideSell, 101)
	if err != nil || len(ids) != 1 || ids[0] != route.ID {
		t.Fatalf("GetPoolIdentifiers() = (%v, %v), want [%s]", ids, err, route.ID)
	}

	out, err := adapter.GetPricesVolume(context.Background(), tokenI, tokenJ, []*big.Int{big.NewInt(0), big.NewInt(1000)}, pricingdomain.SideSell, 101, nil, pricingdomain.TransferFeeParams{})
	if err != nil {
		t.Fatalf("GetPricesVolume() error = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("GetPricesVolume() returned %d pools, want 1", len(out))
	}

	// scaledI = reserveI * reserveKFromJK / reserveKFromIK = 1,000,000
	vp, ok := pricingdomain.DeriveVirtualPool(
		pricingdomain.NewLegCommonToken(pricingdomain.NewPoolState(reserveJ, reserveKFromJK, 30), false),
		pricingdomain.NewLegCommonToken(pricingdomain.NewPoolState(reserveI, reserveKFromIK, 30), false),
	)
	if !ok {
		t.Fatal("DeriveVirtualPool() ok = false, want true")
	}
	want := vp.Quote(big.NewInt(1000), true, true)
	if got := out[0].Prices[1]; got.Cmp(want) != 0 {
		t.Errorf("Prices[1] = %s, want %s", got, want)
	}
	if out[0].PoolIdentifier != route.ID {
		t.Errorf("PoolIdentifier = %q, want %q", out[0].PoolIdentifier, route.ID)
	}
}

func TestAdapter_GetPricesVolume_SkipsUnwarmedLeg(t *testing.T) {
	tokenI := pricingdomain.NewToken("0x0000000000000000000000000000000000000001", 18)
	tokenJ := pricingdomain.NewToken("0x0000000000000000000000000000000000000002", 18)

	manager := poolstate.NewManager(&fakeMulticaller{reserves: map[common.Address][2]*big.Int{}}, nil, testLogger())
	route := Route{ID: "virtualpool_none", TokenI: tokenI, TokenJ: tokenJ, JKPoolID: "unwarmed_jk", IKPoolID: "unwarmed_ik"}
	adapter := NewAdapter("virtualpool", manager, []Route{route}, app.Capabilities{}, testLogger())

	out, err := adapter.GetPricesVolume(context.Background(), tokenI, tokenJ, []*big.Int{big.NewInt(1000)}, pricingdomain.SideSell, 1, nil, pricingdomain.TransferFeeParams{})
	if err != nil {
		t.Fatalf("GetPricesVolume() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("GetPricesVolume() = %+v, want no pools for an unwarmed leg", out)
	}
}

func TestAdapter_GetPoolIdentifiers_NoMatchForUnrelatedPair(t *testing.T) {
	tokenI := pricingdomain.NewToken("0x0000000000000000000000000000000000000001", 18)
	tokenJ := pricingdomain.NewToken("0x0000000000000000000000000000000000000002", 18)
	other := pricingdomain.NewToken("0x0000000000000000000000000000000000000099", 18)

	manager := poolstate.NewManager(&fakeMulticaller{reserves: map[common.Address][2]*big.Int{}}, nil, testLogger())
	route := Route{ID: "virtualpool_ij", TokenI: tokenI, TokenJ: tokenJ}
	adapter := NewAdapter("virtualpool", manager, []Route{route}, app.Capabilities{}, testLogger())

	ids, err := adapter.GetPoolIdentifiers(context.Background(), tokenI, other, pricingdomain.SideSell, 1)
	if err != nil || len(ids) != 0 {
		t.Errorf("GetPoolIdentifiers() = (%v, %v), want none for an unrelated pair", ids, err)
	}
}
