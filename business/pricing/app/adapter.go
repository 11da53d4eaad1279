// Package app hosts the pricing-aggregation core: the adapter capability
// contract (C3), the adapter registry (C4), the fan-out/fan-in pricing
// coordinator (C5), and the adapter lifecycle manager (C6).
package app

import (
	"context"
	"math/big"

	"github.com/kbaldwin/dexquote/business/pricing/domain"
)

// Payload is the venue-opaque data type transaction encoding consumes.
// Every adapter boxes its own concrete payload shape into Payload; the
// coordinator never inspects it (spec.md §3 "PoolPrices<D>").
type Payload = any

// Capabilities is the adapter's feature-flag record (spec.md §4.3). The
// design deliberately avoids probing for optional behavior by type
// assertion or method existence ("conditional dispatch by method
// existence" — spec.md §9); every adapter reports presence explicitly so
// the coordinator and lifecycle manager can branch on a plain bool.
type Capabilities struct {
	// HasConstantPriceLargeAmounts: quote is linear, independent of amount.
	HasConstantPriceLargeAmounts bool
	// NeedWrapNative: native-token inputs must be wrapped before pricing.
	NeedWrapNative bool
	// IsFeeOnTransferSupported: if false and a source transfer fee is in
	// play, getPoolPrices skips this adapter with a diagnostic envelope.
	IsFeeOnTransferSupported bool
	// HasInitializePricing/HasReleaseResources flag whether the adapter's
	// InitializePricing/ReleaseResources methods do real work versus being
	// a no-op embedding's inert default.
	HasInitializePricing bool
	HasReleaseResources  bool
	// CacheStateKey is the namespaced key the lifecycle manager deletes on
	// master (re)initialization (spec.md §4.3, §4.6). Empty when absent.
	CacheStateKey string
}

// Adapter is the uniform capability surface every venue plugs into the
// coordinator (spec.md §4.3). Lifecycle methods are always present on the
// interface — presence is signaled through Capabilities, not through
// interface satisfaction — so the coordinator and lifecycle manager never
// need a type assertion to find out whether a given call does anything.
type Adapter interface {
	// Key is this venue's registry key, also the poolIdentifier prefix.
	Key() string

	// Capabilities returns this adapter's feature-flag record. Must be
	// stable for the adapter's lifetime.
	Capabilities() Capabilities

	// InitializePricing warms caches and subscribes to events for this
	// adapter, up to and including block. A no-op adapter still returns
	// nil; Capabilities().HasInitializePricing tells callers whether this
	// does real work worth retrying on failure.
	InitializePricing(ctx context.Context, block uint64) error

	// ReleaseResources idempotently tears down anything InitializePricing
	// set up.
	ReleaseResources(ctx context.Context) error

	// GetPoolIdentifiers returns venue-scoped pool identifiers applicable
	// to (from, to) at block, for the given side.
	GetPoolIdentifiers(ctx context.Context, from, to domain.Token, side domain.Side, block uint64) ([]domain.PoolIdentifier, error)

	// GetPricesVolume returns zero or more quotes for (from, to) across
	// amounts, optionally restricted to limitPools (nil means
	// unrestricted). May return an empty slice; never returns a nil slice
	// and a nil error together as "no opinion" — an empty slice is how an
	// adapter says that.
	GetPricesVolume(ctx context.Context, from, to domain.Token, amounts []*big.Int, side domain.Side, block uint64, limitPools []domain.PoolIdentifier, transferFees domain.TransferFeeParams) ([]domain.PoolPrices[Payload], error)

	// GetCalldataGasCost returns the L1 calldata gas cost for pp, scalar or
	// per-chunk sequence, used by the coordinator's rollup overlay.
	GetCalldataGasCost(pp domain.PoolPrices[Payload]) domain.GasCost
}
