package app

import (
	"context"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/internal/logger"
)

const (
	tracerName = "pricing.coordinator"
	meterName  = "pricing.coordinator"
)

// CoordinatorConfig holds the per-call deadlines spec.md §6 names
// FETCH_POOL_IDENTIFIER_TIMEOUT and FETCH_POOL_PRICES_TIMEOUT.
type CoordinatorConfig struct {
	FetchPoolIdentifierTimeout time.Duration
	FetchPoolPricesTimeout     time.Duration
}

type coordinatorMetrics struct {
	identifierCalls  metric.Int64Counter
	identifierErrors metric.Int64Counter
	priceCalls       metric.Int64Counter
	priceErrors      metric.Int64Counter
	priceTimeouts    metric.Int64Counter
	validationDrops  metric.Int64Counter
}

// Coordinator is the pricing-aggregation core's central subsystem (C5): it
// fans identifier/quote requests out across the registry's adapters with
// per-call deadlines, isolates per-adapter failure, applies rollup gas
// adjustment, and validates results before returning them.
type Coordinator struct {
	registry *Registry
	cfg      CoordinatorConfig
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *coordinatorMetrics
}

// NewCoordinator wires a Coordinator to registry and cfg. Panics if OTEL
// instrument creation fails, matching the teacher's infra constructors.
func NewCoordinator(registry *Registry, cfg CoordinatorConfig, log logger.LoggerInterface) *Coordinator {
	c := &Coordinator{registry: registry, cfg: cfg, logger: log, tracer: otel.Tracer(tracerName)}
	c.metrics = mustCoordinatorMetrics()
	return c
}

func mustCoordinatorMetrics() *coordinatorMetrics {
	meter := otel.Meter(meterName)
	m := &coordinatorMetrics{}
	var err error
	if m.identifierCalls, err = meter.Int64Counter("pricing_identifier_calls_total"); err != nil {
		panic(err)
	}
	if m.identifierErrors, err = meter.Int64Counter("pricing_identifier_errors_total"); err != nil {
		panic(err)
	}
	if m.priceCalls, err = meter.Int64Counter("pricing_price_calls_total"); err != nil {
		panic(err)
	}
	if m.priceErrors, err = meter.Int64Counter("pricing_price_errors_total"); err != nil {
		panic(err)
	}
	if m.priceTimeouts, err = meter.Int64Counter("pricing_price_timeouts_total"); err != nil {
		panic(err)
	}
	if m.validationDrops, err = meter.Int64Counter("pricing_validation_drops_total"); err != nil {
		panic(err)
	}
	return m
}

// GetPoolIdentifiers fans out across keys in parallel and returns, per
// adapter key, the identifiers it reports for (from, to) at block — nil if
// filterConstantPrice opted the adapter out, or an empty slice if the
// adapter errored/timed out, per spec.md §4.5. Every key passed in is present in the result,
// satisfying spec.md §8 testable property 3.
func (c *Coordinator) GetPoolIdentifiers(ctx context.Context, from, to domain.Token, side domain.Side, block uint64, keys []string, filterConstantPrice bool) map[string][]domain.PoolIdentifier {
	ctx, span := c.tracer.Start(ctx, "coordinator.get_pool_identifiers",
		trace.WithAttributes(attribute.Int("adapter_count", len(keys))))
	defer span.End()

	results := fanOut(ctx, keys, c.cfg.FetchPoolIdentifierTimeout, func(ctx context.Context, key string) ([]domain.PoolIdentifier, error) {
		adapter, err := c.registry.GetDexByKey(key)
		if err != nil {
			return nil, err
		}
		if filterConstantPrice && adapter.Capabilities().HasConstantPriceLargeAmounts {
			return nil, errOptOut
		}
		c.metrics.identifierCalls.Add(ctx, 1)
		return adapter.GetPoolIdentifiers(ctx, from, to, side, block)
	})

	out := make(map[string][]domain.PoolIdentifier, len(keys))
	for _, r := range results {
		switch {
		case r.Err == errOptOut:
			out[r.Key] = nil
		case r.Err != nil:
			c.metrics.identifierErrors.Add(ctx, 1)
			c.logger.Warn(ctx, "pool identifier fetch failed", "dex", r.Key, "error", r.Err, "timed_out", r.TimedOut)
			out[r.Key] = []domain.PoolIdentifier{}
		default:
			out[r.Key] = r.Value
		}
	}
	return out
}

// errOptOut is an internal sentinel distinguishing "adapter opted itself
// out via hasConstantPriceLargeAmounts" from a genuine adapter error; it
// never crosses the Coordinator's public API.
var errOptOut = optOutError{}

type optOutError struct{}

func (optOutError) Error() string { return "pricing: adapter opted out (constant price)" }

// GetPoolPrices fans out across keys with deadline
// FetchPoolPricesTimeout, applies the rollup L1/L2 gas overlay when ratio
// is non-nil, validates every non-nil quote, and flattens the surviving
// envelopes into one ordered sequence (spec.md §4.5).
func (c *Coordinator) GetPoolPrices(
	ctx context.Context,
	from, to domain.Token,
	amounts []*big.Int,
	side domain.Side,
	block uint64,
	keys []string,
	limitPoolsMap map[string][]domain.PoolIdentifier,
	transferFees domain.TransferFeeParams,
	rollupRatio *domain.RollupRatio,
) []domain.ImprovedPoolPrice[Payload] {
	ctx, span := c.tracer.Start(ctx, "coordinator.get_pool_prices",
		trace.WithAttributes(
			attribute.Int("adapter_count", len(keys)),
			attribute.Int("amount_count", len(amounts)),
		))
	defer span.End()

	type adapterOutcome struct {
		envelopes []domain.ImprovedPoolPrice[Payload]
	}

	results := fanOut(ctx, keys, c.cfg.FetchPoolPricesTimeout, func(ctx context.Context, key string) (adapterOutcome, error) {
		adapter, err := c.registry.GetDexByKey(key)
		if err != nil {
			return adapterOutcome{}, err
		}

		if limit, restricted := limitPoolsMap[key]; restricted && len(limit) == 0 {
			return adapterOutcome{}, nil
		}

		if transferFees.HasSourceFee() && !adapter.Capabilities().IsFeeOnTransferSupported {
			return adapterOutcome{envelopes: []domain.ImprovedPoolPrice[Payload]{domain.FeeOnTransferSkipEnvelope[Payload](key)}}, nil
		}

		c.metrics.priceCalls.Add(ctx, 1)
		limitPools := limitPoolsMap[key]
		pps, err := adapter.GetPricesVolume(ctx, from, to, amounts, side, block, limitPools, transferFees)
		if err != nil {
			return adapterOutcome{}, err
		}

		if rollupRatio != nil {
			for i, pp := range pps {
				l1Cost := adapter.GetCalldataGasCost(pp)
				adjusted, err := domain.ApplyRollupGas(pp.GasCost, l1Cost, *rollupRatio, len(amounts))
				if err != nil {
					return adapterOutcome{}, err
				}
				pps[i].GasCost = adjusted
			}
		}

		return adapterOutcome{envelopes: domain.ToImprovedPoolPrices(key, pps)}, nil
	})

	var flattened []domain.ImprovedPoolPrice[Payload]
	for _, r := range results {
		switch {
		case r.Err != nil && r.TimedOut:
			c.metrics.priceTimeouts.Add(ctx, 1)
			c.logger.Warn(ctx, "pool price fetch timed out", "dex", r.Key)
			flattened = append(flattened, domain.ErrorEnvelope[Payload](r.Key, "Timeout"))
		case r.Err != nil:
			c.metrics.priceErrors.Add(ctx, 1)
			c.logger.Warn(ctx, "pool price fetch failed", "dex", r.Key, "error", r.Err)
			flattened = append(flattened, domain.ErrorEnvelope[Payload](r.Key, r.Err.Error()))
		default:
			flattened = append(flattened, r.Value.envelopes...)
		}
	}

	return c.validate(ctx, flattened, amounts)
}

// validate drops any envelope whose non-nil Prices fails spec.md §3/§4.5's
// shape and all-zero invariants; diagnostic (nil-Prices) envelopes pass
// through untouched.
func (c *Coordinator) validate(ctx context.Context, envelopes []domain.ImprovedPoolPrice[Payload], amounts []*big.Int) []domain.ImprovedPoolPrice[Payload] {
	out := make([]domain.ImprovedPoolPrice[Payload], 0, len(envelopes))
	for _, env := range envelopes {
		if env.Prices == nil {
			out = append(out, env)
			continue
		}
		if reason, ok := domain.ValidatePoolPrices(*env.Prices, amounts); !ok {
			c.metrics.validationDrops.Add(ctx, 1)
			c.logger.Warn(ctx, "dropped quote failing validation", "dex", env.DexKey, "pool_id", env.PoolID, "reason", reason)
			continue
		}
		out = append(out, env)
	}
	return out
}
