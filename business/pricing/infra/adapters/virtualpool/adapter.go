// Package virtualpool implements a C3 Adapter for synthetic i<->j pools
// derived from two real constant-product legs sharing a common token k
// (spec.md §4.1, §9 "Virtual pools"). It prices strictly from the shared
// poolstate.Manager another adapter already warms and keeps live — a
// virtual route contributes no pools of its own to warm or subscribe to.
package virtualpool

import (
	"context"
	"math/big"

	"github.com/kbaldwin/dexquote/business/pricing/app"
	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/business/pricing/infra/poolstate"
	"github.com/kbaldwin/dexquote/internal/logger"
)

// GasPerVirtualHop and GasPerCalldataByte estimate the cost of a two-hop
// route through the synthetic pool's two real legs, until per-route
// simulation is wired (mirrors constantproduct.GasPerSwap/GasPerCalldataByte
// doubled for the second hop).
const (
	GasPerVirtualHop    = 2 * 120_000
	GasPerCalldataByte  = 16
	calldataBytesPerHop = 2 * 68
)

// Payload is this adapter's venue-opaque quote data: the two real legs a
// router must traverse to realize this synthetic price.
type Payload struct {
	JKPoolID string
	IKPoolID string
}

// Route names one synthetic i<->j pool: a jk-leg and an ik-leg already
// registered (by another adapter) in manager, sharing common token k.
type Route struct {
	ID     domain.PoolIdentifier
	TokenI domain.Token
	TokenJ domain.Token

	JKPoolID         domain.PoolIdentifier
	JKCommonIsToken0 bool
	IKPoolID         domain.PoolIdentifier
	IKCommonIsToken0 bool
}

// Adapter prices pairs that have no direct pool but do have a path through
// a shared common token (spec.md §4.1 "Virtual pools", §4.3 "Adapter
// Contract").
type Adapter struct {
	key     string
	manager *poolstate.Manager
	routes  []Route
	caps    app.Capabilities
	logger  logger.LoggerInterface
}

var _ app.Adapter = (*Adapter)(nil)

// NewAdapter builds a virtual-pool Adapter registered under key, covering
// routes, reading state from manager (owned and warmed by the constant-
// product adapters covering the legs' real pools).
func NewAdapter(key string, manager *poolstate.Manager, routes []Route, caps app.Capabilities, log logger.LoggerInterface) *Adapter {
	return &Adapter{key: key, manager: manager, routes: routes, caps: caps, logger: log}
}

func (a *Adapter) Key() string                   { return a.key }
func (a *Adapter) Capabilities() app.Capabilities { return a.caps }

// InitializePricing is a no-op: the legs' pools are warmed and kept live by
// whichever constant-product adapter registered them (Capabilities().
// HasInitializePricing is false).
func (a *Adapter) InitializePricing(ctx context.Context, block uint64) error { return nil }

// ReleaseResources is a no-op for the same reason (Capabilities().
// HasReleaseResources is false).
func (a *Adapter) ReleaseResources(ctx context.Context) error { return nil }

func (a *Adapter) matching(from, to domain.Token) []Route {
	var out []Route
	for _, r := range a.routes {
		if (r.TokenI.Equals(from) && r.TokenJ.Equals(to)) || (r.TokenI.Equals(to) && r.TokenJ.Equals(from)) {
			out = append(out, r)
		}
	}
	return out
}

// GetPoolIdentifiers returns the identifiers of every configured route
// whose token pair matches (from, to).
func (a *Adapter) GetPoolIdentifiers(ctx context.Context, from, to domain.Token, side domain.Side, block uint64) ([]domain.PoolIdentifier, error) {
	var out []domain.PoolIdentifier
	for _, r := range a.matching(from, to) {
		out = append(out, r.ID)
	}
	return out, nil
}

// GetPricesVolume derives each matching route's synthetic pool from its two
// legs' current state and quotes amounts across it, applying the same
// transfer-fee adjustment as a direct pool (spec.md §4.1, §4.3). A route
// whose legs are not yet warmed, or whose common-token reserve is zero on
// either leg, is skipped rather than failing the whole request.
func (a *Adapter) GetPricesVolume(ctx context.Context, from, to domain.Token, amounts []*big.Int, side domain.Side, block uint64, limitPools []domain.PoolIdentifier, fees domain.TransferFeeParams) ([]domain.PoolPrices[app.Payload], error) {
	restrict := poolSet(limitPools)

	var out []domain.PoolPrices[app.Payload]
	for _, r := range a.matching(from, to) {
		if restrict != nil {
			if _, ok := restrict[r.ID]; !ok {
				continue
			}
		}

		jkState, ok := a.manager.GetPoolState(r.JKPoolID, block)
		if !ok {
			continue
		}
		ikState, ok := a.manager.GetPoolState(r.IKPoolID, block)
		if !ok {
			continue
		}

		vp, ok := domain.DeriveVirtualPool(
			domain.NewLegCommonToken(jkState, r.JKCommonIsToken0),
			domain.NewLegCommonToken(ikState, r.IKCommonIsToken0),
		)
		if !ok {
			continue
		}

		iToJ := r.TokenI.Equals(from)
		sell := side == domain.SideSell

		prices := make([]*big.Int, len(amounts))
		for i, amt := range amounts {
			prices[i] = a.quoteOne(vp, amt, sell, iToJ, fees)
		}
		unit := a.quoteOne(vp, unitAmount(from), sell, iToJ, fees)

		out = append(out, domain.PoolPrices[app.Payload]{
			Prices:         prices,
			Unit:           unit,
			GasCost:        domain.NewScalarGasCost(big.NewInt(GasPerVirtualHop)),
			Exchange:       a.key,
			PoolIdentifier: r.ID,
			Data:           Payload{JKPoolID: string(r.JKPoolID), IKPoolID: string(r.IKPoolID)},
		})
	}
	return out, nil
}

// GetCalldataGasCost returns the fixed L1 calldata cost of routing through
// both of a virtual pool's real legs.
func (a *Adapter) GetCalldataGasCost(pp domain.PoolPrices[app.Payload]) domain.GasCost {
	return domain.NewScalarGasCost(big.NewInt(calldataBytesPerHop * GasPerCalldataByte))
}

func (a *Adapter) quoteOne(vp domain.VirtualPool, amount *big.Int, sell, iToJ bool, fees domain.TransferFeeParams) *big.Int {
	if amount == nil || amount.Sign() == 0 {
		return big.NewInt(0)
	}
	if sell {
		effectiveIn := applyFeeBps(amount, fees.SrcFee+fees.SrcDexFee)
		out := vp.Quote(effectiveIn, true, iToJ)
		return applyFeeBps(out, fees.DestFee+fees.DestDexFee)
	}
	requiredOut := applyFeeBps(amount, fees.DestFee+fees.DestDexFee)
	return vp.Quote(requiredOut, false, iToJ)
}

// applyFeeBps reduces v by feeBps basis points, same convention as
// constantproduct's identically named helper.
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
