// Package constantproduct implements a C3 Adapter for classic constant-
// product pools (Uniswap V2-style pair/sync pools), grounded on the AMM
// math kernel in business/pricing/domain and backed by the event-driven
// state manager in business/pricing/infra/poolstate.
package constantproduct

import (
	"context"
	"math/big"
	"sync"

	"github.com/kbaldwin/dexquote/business/pricing/app"
	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/business/pricing/infra/poolstate"
	"github.com/kbaldwin/dexquote/internal/logger"
)

// GasPerSwap and GasPerCalldataByte are fixed execution/calldata cost
// estimates for a single constant-product swap, used as this adapter's
// GasCost until per-route simulation is wired (spec.md §4.3 "getCalldataGas-
// Cost").
const (
	GasPerSwap         = 120_000
	GasPerCalldataByte = 16
	calldataBytesPerHop = 68
)

// Payload is this adapter's venue-opaque quote data: just the swapped
// pool's on-chain address, which is all transaction encoding needs to
// build calldata for a direct pair swap.
type Payload struct {
	PoolAddress string
}

// Adapter prices pairs against a fixed set of registered constant-product
// pools (spec.md §4.1 "AMM Math Kernel", §4.3 "Adapter Contract").
type Adapter struct {
	key           string
	manager       *poolstate.Manager
	pools         []poolstate.Descriptor
	wrappedNative domain.Token
	caps          app.Capabilities
	logger        logger.LoggerInterface

	startOnce sync.Once
}

var _ app.Adapter = (*Adapter)(nil)

// NewAdapter builds a constant-product Adapter registered under key,
// covering pools, backed by manager for live state. wrappedNative is the
// token substituted for the native-coin sentinel before pricing.
func NewAdapter(key string, manager *poolstate.Manager, pools []poolstate.Descriptor, wrappedNative domain.Token, caps app.Capabilities, log logger.LoggerInterface) *Adapter {
	manager.Register(pools...)
	return &Adapter{
		key:           key,
		manager:       manager,
		pools:         pools,
		wrappedNative: wrappedNative,
		caps:          caps,
		logger:        log,
	}
}

func (a *Adapter) Key() string                  { return a.key }
func (a *Adapter) Capabilities() app.Capabilities { return a.caps }

// InitializePricing warms every registered pool's reserves at block and
// starts the live Sync-log subscription exactly once (spec.md §4.6).
func (a *Adapter) InitializePricing(ctx context.Context, block uint64) error {
	if err := a.manager.Warm(ctx, block); err != nil {
		return err
	}
	var startErr error
	a.startOnce.Do(func() {
		startErr = a.manager.StartLiveUpdates(ctx, block)
	})
	return startErr
}

// ReleaseResources is a no-op: this adapter's live subscription is scoped
// to the manager's background context, not to a per-call resource the
// coordinator owns (Capabilities().HasReleaseResources is false).
func (a *Adapter) ReleaseResources(ctx context.Context) error { return nil }

func (a *Adapter) wrap(t domain.Token) domain.Token {
	if a.caps.NeedWrapNative {
		return domain.WrapNative(t, a.wrappedNative)
	}
	return t
}

// GetPoolIdentifiers returns the identifiers of every registered pool
// whose token pair matches (from, to), regardless of side.
func (a *Adapter) GetPoolIdentifiers(ctx context.Context, from, to domain.Token, side domain.Side, block uint64) ([]domain.PoolIdentifier, error) {
	from, to = a.wrap(from), a.wrap(to)
	var out []domain.PoolIdentifier
	for _, d := range a.matching(from, to) {
		out = append(out, d.ID)
	}
	return out, nil
}

func (a *Adapter) matching(from, to domain.Token) []poolstate.Descriptor {
	var out []poolstate.Descriptor
	for _, d := range a.pools {
		if (d.Token0.Equals(from) && d.Token1.Equals(to)) || (d.Token0.Equals(to) && d.Token1.Equals(from)) {
			out = append(out, d)
		}
	}
	return out
}

// GetPricesVolume quotes (from, to) across amounts for every matching,
// currently-warmed pool, applying GetAmountOut (SELL) or GetAmountIn (BUY)
// from the AMM math kernel, adjusted for any source/destination transfer
// fee (spec.md §4.1, §4.3).
func (a *Adapter) GetPricesVolume(ctx context.Context, from, to domain.Token, amounts []*big.Int, side domain.Side, block uint64, limitPools []domain.PoolIdentifier, transferFees domain.TransferFeeParams) ([]domain.PoolPrices[app.Payload], error) {
	from, to = a.wrap(from), a.wrap(to)
	restrict := poolSet(limitPools)

	var out []domain.PoolPrices[app.Payload]
	for _, d := range a.matching(from, to) {
		if restrict != nil {
			if _, ok := restrict[d.ID]; !ok {
				continue
			}
		}

		state, ok := a.manager.GetPoolState(d.ID, block)
		if !ok {
			continue
		}

		zeroForOne := d.Token0.Equals(from)
		reserveIn, reserveOut := state.ReserveFor(zeroForOne)

		prices := make([]*big.Int, len(amounts))
		for i, amt := range amounts {
			prices[i] = a.quoteOne(amt, reserveIn, reserveOut, state.Fee, side, transferFees)
		}

		unit := a.quoteOne(unitAmount(from), reserveIn, reserveOut, state.Fee, side, transferFees)

		out = append(out, domain.PoolPrices[app.Payload]{
			Prices:         prices,
			Unit:           unit,
			GasCost:        domain.NewScalarGasCost(big.NewInt(GasPerSwap)),
			Exchange:       a.key,
			PoolIdentifier: d.ID,
			PoolAddresses:  []string{d.Address.Hex()},
			Data:           Payload{PoolAddress: d.Address.Hex()},
		})
	}
	return out, nil
}

// GetCalldataGasCost returns the fixed L1 calldata cost of one direct-pair
// swap, used by the coordinator's rollup overlay (spec.md §4.3, §4.1
// "Rollup gas overlay").
func (a *Adapter) GetCalldataGasCost(pp domain.PoolPrices[app.Payload]) domain.GasCost {
	return domain.NewScalarGasCost(big.NewInt(calldataBytesPerHop * GasPerCalldataByte))
}

func (a *Adapter) quoteOne(amount, reserveIn, reserveOut *big.Int, fee int, side domain.Side, fees domain.TransferFeeParams) *big.Int {
	if amount == nil || amount.Sign() == 0 {
		return big.NewInt(0)
	}
	if side == domain.SideSell {
		effectiveIn := applyFeeBps(amount, fees.SrcFee+fees.SrcDexFee)
		out := domain.GetAmountOut(effectiveIn, reserveIn, reserveOut, fee)
		return applyFeeBps(out, fees.DestFee+fees.DestDexFee)
	}
	requiredOut := applyFeeBps(amount, fees.DestFee+fees.DestDexFee)
	in := domain.GetAmountIn(requiredOut, reserveIn, reserveOut, fee)
	return in
}

// applyFeeBps reduces v by feeBps basis points, used to model a transfer
// fee skimmed before a leg of the swap executes. feeBps outside [0, 10000]
// is clamped.
func applyFeeBps(v *big.Int, feeBps int) *big.Int {
	if feeBps <= 0 || v == nil || v.Sign() == 0 {
		return v
	}
	if feeBps > domain.FeeDenominator() {
		feeBps = domain.FeeDenominator()
	}
	out := new(big.Int).Mul(v, big.NewInt(int64(domain.FeeDenominator()-feeBps)))
	return out.Div(out, big.NewInt(int64(domain.FeeDenominator())))
}

func unitAmount(t domain.Token) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals())), nil)
}

func poolSet(ids []domain.PoolIdentifier) map[domain.PoolIdentifier]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[domain.PoolIdentifier]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
