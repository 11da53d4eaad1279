// Package pricing implements the pricing-aggregation bounded context: the
// adapter registry, the fan-out pricing coordinator, and the adapter
// lifecycle manager, backed by event-driven constant-product pool state.
package pricing

import (
	"context"
	"math/big"
	"time"

	"github.com/kbaldwin/dexquote/business/pricing/app"
	pricingDI "github.com/kbaldwin/dexquote/business/pricing/di"
	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/business/pricing/infra/adapters/constantproduct"
	"github.com/kbaldwin/dexquote/business/pricing/infra/adapters/ratefetcher"
	"github.com/kbaldwin/dexquote/business/pricing/infra/adapters/virtualpool"
	"github.com/kbaldwin/dexquote/business/pricing/infra/poolstate"

	blockchainDI "github.com/kbaldwin/dexquote/business/blockchain/di"

	"github.com/kbaldwin/dexquote/internal/cache"
	"github.com/kbaldwin/dexquote/internal/config"
	"github.com/kbaldwin/dexquote/internal/di"
	"github.com/kbaldwin/dexquote/internal/httpclient"
	"github.com/kbaldwin/dexquote/internal/logger"
	"github.com/kbaldwin/dexquote/internal/monolith"
	"github.com/kbaldwin/dexquote/internal/ratelimit"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Registry (private - built from the active network's
	// adapter configuration, one constantproduct.Adapter per configured
	// venue key, sharing one event-backed pool state manager).
	di.RegisterToken(c, pricingDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		multicaller := blockchainDI.GetMulticaller(sr)
		logSub := blockchainDI.GetLogSubscriber(sr)

		configureAMM(cfg.Pricing)

		manager := poolstate.NewManager(multicaller, logSub, log)

		var adapters []app.Adapter
		for _, net := range cfg.Networks {
			if net.ChainID != cfg.Ethereum.ChainID {
				continue
			}
			var pools []poolstate.Descriptor
			for _, a := range net.Adapters {
				cp, cpPools := buildConstantProductAdapter(a, manager, log)
				adapters = append(adapters, cp)
				pools = append(pools, cpPools...)
			}
			if vp := buildVirtualPoolAdapter(net.VirtualRoutes, pools, manager, log); vp != nil {
				adapters = append(adapters, vp)
			}
			for _, rf := range net.RateFetchers {
				rfAdapter, err := buildRateFetcherAdapter(rf, log)
				if err != nil {
					log.Warn(context.Background(), "rate_fetcher: skipping misconfigured venue", "key", rf.Key, "error", err)
					continue
				}
				adapters = append(adapters, rfAdapter)
			}
		}
		return app.NewRegistry(adapters...)
	})

	// Register LifecycleManager (private - adapter init/release with
	// unbounded de-duplicated retry, spec.md §4.6).
	di.RegisterToken(c, pricingDI.Lifecycle, func(sr di.ServiceRegistry) *app.LifecycleManager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := pricingDI.GetRegistry(sr)

		sharedCache := cache.New[string, any](5 * time.Minute)

		lcCfg := app.LifecycleConfig{
			SetupRetryTimeout: cfg.Pricing.SetupRetryTimeout,
			IsSlave:           cfg.Pricing.IsSlave,
		}
		return app.NewLifecycleManager(registry, sharedCache, lcCfg, log, context.Background())
	})

	// Register Coordinator (public - exposed to other modules).
	di.RegisterToken(c, pricingDI.Coordinator, func(sr di.ServiceRegistry) *app.Coordinator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := pricingDI.GetRegistry(sr)

		coordCfg := app.CoordinatorConfig{
			FetchPoolIdentifierTimeout: cfg.Pricing.FetchPoolIdentifierTimeout,
			FetchPoolPricesTimeout:     cfg.Pricing.FetchPoolPricesTimeout,
		}
		return app.NewCoordinator(registry, coordCfg, log)
	})

	return nil
}

// Startup initializes every adapter in the registry up to the chain's
// current head, via the lifecycle manager.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	registry := pricingDI.GetRegistry(mono.Services())
	lifecycle := pricingDI.GetLifecycle(mono.Services())

	head, err := mono.EthClient().BlockNumber(ctx)
	if err != nil {
		log.Warn(ctx, "pricing startup: failed to fetch chain head, initializing at block 0", "error", err)
	}

	lifecycle.Initialize(ctx, head, registry.GetAllDexKeys())
	log.Info(ctx, "pricing module started", "adapters", registry.GetAllDexKeys(), "block", head)
	return nil
}

// configureAMM overrides the domain package's fee denominator and reserve
// limit from PricingConfig (spec.md §6 "Pricing.FeeDenominator",
// "Pricing.ReserveLimit"); an empty ReserveLimit or zero FeeDenominator
// leaves the domain package's built-in defaults in place.
func configureAMM(cfg config.PricingConfig) {
	var limit *big.Int
	if cfg.ReserveLimit != "" {
		limit, _ = new(big.Int).SetString(cfg.ReserveLimit, 10)
	}
	domain.Configure(cfg.FeeDenominator, limit)
}

func buildConstantProductAdapter(a config.AdapterConfig, manager *poolstate.Manager, log logger.LoggerInterface) (*constantproduct.Adapter, []poolstate.Descriptor) {
	pools := make([]poolstate.Descriptor, 0, len(a.Pools))
	for _, p := range a.Pools {
		pools = append(pools, poolstate.Descriptor{
			ID:      domain.NewPoolIdentifier(a.Key, domain.SortedPairPayload(
				domain.NewToken(p.Token0, p.Token0Decimals),
				domain.NewToken(p.Token1, p.Token1Decimals),
			)),
			Address: poolstate.MustAddress(p.Address),
			Token0:  domain.NewToken(p.Token0, p.Token0Decimals),
			Token1:  domain.NewToken(p.Token1, p.Token1Decimals),
			Fee:     p.FeeBps,
		})
	}

	var wrappedNative domain.Token
	caps := app.Capabilities{
		IsFeeOnTransferSupported: true,
		HasInitializePricing:     true,
		HasReleaseResources:      false,
		CacheStateKey:            "pricing:" + a.Key + ":state",
	}
	if a.WrappedNative != "" {
		wrappedNative = domain.NewToken(a.WrappedNative, 18)
		caps.NeedWrapNative = true
	}

	return constantproduct.NewAdapter(a.Key, manager, pools, wrappedNative, caps, log), pools
}

// buildVirtualPoolAdapter resolves each configured route's two legs against
// pools (every constant-product descriptor registered on this network) by
// on-chain address, and returns nil if routes is empty or no route resolves
// (spec.md §4.1 "Virtual pools" are opportunistic, never required).
func buildVirtualPoolAdapter(routes []config.VirtualRouteConfig, pools []poolstate.Descriptor, manager *poolstate.Manager, log logger.LoggerInterface) *virtualpool.Adapter {
	if len(routes) == 0 {
		return nil
	}

	byAddress := make(map[string]poolstate.Descriptor, len(pools))
	for _, p := range pools {
		byAddress[p.Address.Hex()] = p
	}

	var built []virtualpool.Route
	for _, r := range routes {
		jk, ok := byAddress[poolstate.MustAddress(r.JKPoolAddress).Hex()]
		if !ok {
			log.Warn(context.Background(), "virtual route: jk leg not found among configured pools", "route", r.Key, "address", r.JKPoolAddress)
			continue
		}
		ik, ok := byAddress[poolstate.MustAddress(r.IKPoolAddress).Hex()]
		if !ok {
			log.Warn(context.Background(), "virtual route: ik leg not found among configured pools", "route", r.Key, "address", r.IKPoolAddress)
			continue
		}

		k := domain.NewToken(r.CommonToken, r.CommonTokenDecimals)
		jkCommonIsToken0 := jk.Token0.Equals(k)
		ikCommonIsToken0 := ik.Token0.Equals(k)
		if (!jkCommonIsToken0 && !jk.Token1.Equals(k)) || (!ikCommonIsToken0 && !ik.Token1.Equals(k)) {
			log.Warn(context.Background(), "virtual route: common token not present on both legs", "route", r.Key)
			continue
		}

		tokenJ := jk.Token0
		if jkCommonIsToken0 {
			tokenJ = jk.Token1
		}
		tokenI := ik.Token0
		if ikCommonIsToken0 {
			tokenI = ik.Token1
		}

		built = append(built, virtualpool.Route{
			ID:               domain.NewPoolIdentifier(r.Key, domain.VirtualPoolPayload(jk.ID, ik.ID)),
			TokenI:           tokenI,
			TokenJ:           tokenJ,
			JKPoolID:         jk.ID,
			JKCommonIsToken0: jkCommonIsToken0,
			IKPoolID:         ik.ID,
			IKCommonIsToken0: ikCommonIsToken0,
		})
	}
	if len(built) == 0 {
		return nil
	}

	caps := app.Capabilities{IsFeeOnTransferSupported: true}
	return virtualpool.NewAdapter("virtualpool", manager, built, caps, log)
}

// buildRateFetcherAdapter builds a ratefetcher.Adapter for one configured
// "custom rate-fetcher venue" (spec.md §4.3), its own instrumented HTTP
// client and rate limiter shared across every route on the venue.
func buildRateFetcherAdapter(rf config.RateFetcherConfig, log logger.LoggerInterface) (*ratefetcher.Adapter, error) {
	client, err := httpclient.NewInstrumentedClient(httpclient.WithBaseURL(rf.BaseURL))
	if err != nil {
		return nil, err
	}
	limiter := ratelimit.New(rf.RequestsPerMinute)

	routes := make([]ratefetcher.Route, 0, len(rf.Routes))
	for _, rr := range rf.Routes {
		pair := domain.SortedPairPayload(
			domain.NewToken(rr.TokenFrom, rr.TokenFromDecimals),
			domain.NewToken(rr.TokenTo, rr.TokenToDecimals),
		)
		routes = append(routes, ratefetcher.Route{
			ID:        domain.NewPoolIdentifier(rf.Key, pair),
			TokenFrom: domain.NewToken(rr.TokenFrom, rr.TokenFromDecimals),
			TokenTo:   domain.NewToken(rr.TokenTo, rr.TokenToDecimals),
			QuoteURL:  rr.QuoteURL,
			StreamURL: rr.StreamURL,
		})
	}

	caps := app.Capabilities{
		HasConstantPriceLargeAmounts: true,
		IsFeeOnTransferSupported:     false,
		HasInitializePricing:         true,
		HasReleaseResources:          true,
	}
	return ratefetcher.NewAdapter(rf.Key, client, limiter, routes, caps, log), nil
}
