// Package ratefetcher implements a C3 "custom rate-fetcher venue" adapter
// (spec.md §4.3): a pair priced off-chain from a REST reference quote,
// kept warm by an optional push-quote WebSocket stream, instead of
// derived from on-chain reserves. Grounded on the teacher's Binance REST/
// WS client pair (business/pricing/infra/binance), generalized from a
// CEX orderbook to a single scalar rate per configured pair.
package ratefetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbaldwin/dexquote/business/pricing/app"
	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/internal/apperror"
	"github.com/kbaldwin/dexquote/internal/httpclient"
	"github.com/kbaldwin/dexquote/internal/logger"
	"github.com/kbaldwin/dexquote/internal/ratelimit"
	"github.com/kbaldwin/dexquote/internal/wsconn"
)

// StaleAfter is how long a fetched rate is trusted before a route is
// skipped rather than quoted from a stale reference price.
const StaleAfter = 30 * time.Second

// quoteResponse is the minimal REST/WS push-message shape this adapter
// understands: a single decimal price string, matching the one field
// every reference-price venue agrees on (Binance's /ticker/price included).
type quoteResponse struct {
	Price string `json:"price"`
}

// Route names one off-chain-priced pair: a REST endpoint fetched once by
// InitializePricing, and an optional WebSocket URL for push updates after
// that fetch. There is no periodic REST refresh; a route without a stream
// goes stale StaleAfter its initial fetch.
type Route struct {
	ID        domain.PoolIdentifier
	TokenFrom domain.Token
	TokenTo   domain.Token
	// QuoteURL is joined to the adapter's configured base URL unless it
	// already starts with "http", in which case it is used as is; it must
	// resolve to a quoteResponse JSON body.
	QuoteURL string
	// StreamURL, if non-empty, is dialed on InitializePricing and kept
	// alive for push quoteResponse messages after the initial REST fetch.
	StreamURL string
}

type cachedRate struct {
	rate decimal.Decimal
	at   time.Time
}

// Adapter prices configured pairs from an off-chain reference rate rather
// than on-chain pool reserves (spec.md §4.3's "custom rate-fetcher
// venues" adapter variant).
type Adapter struct {
	key     string
	http    httpclient.Client
	limiter *ratelimit.Limiter
	routes  []Route
	caps    app.Capabilities
	logger  logger.LoggerInterface

	ratesMu sync.RWMutex
	rates   map[domain.PoolIdentifier]cachedRate

	streamsMu sync.Mutex
	streams   map[domain.PoolIdentifier]*wsconn.Client
}

var _ app.Adapter = (*Adapter)(nil)

// NewAdapter builds a rate-fetcher Adapter registered under key, quoting
// routes via client, throttled by limiter.
func NewAdapter(key string, client httpclient.Client, limiter *ratelimit.Limiter, routes []Route, caps app.Capabilities, log logger.LoggerInterface) *Adapter {
	return &Adapter{
		key:     key,
		http:    client,
		limiter: limiter,
		routes:  routes,
		caps:    caps,
		logger:  log,
		rates:   make(map[domain.PoolIdentifier]cachedRate, len(routes)),
		streams: make(map[domain.PoolIdentifier]*wsconn.Client),
	}
}

func (a *Adapter) Key() string                   { return a.key }
func (a *Adapter) Capabilities() app.Capabilities { return a.caps }

// InitializePricing fetches an initial rate for every route and, for
// routes with a StreamURL, opens a push-quote WebSocket connection that
// keeps the cached rate fresh after that fetch. A route whose
// initial fetch fails is logged and left unquoted rather than failing the
// whole adapter — the lifecycle manager only retries on a returned error,
// and one dead reference venue should not stall every other route.
func (a *Adapter) InitializePricing(ctx context.Context, block uint64) error {
	var lastErr error
	for _, r := range a.routes {
		if err := a.refresh(ctx, r); err != nil {
			a.logger.Warn(ctx, "ratefetcher: initial quote fetch failed", "route", r.ID, "error", err)
			lastErr = err
			continue
		}
		if r.StreamURL != "" {
			a.startStream(r)
		}
	}
	if lastErr != nil && len(a.rates) == 0 {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(lastErr),
			apperror.WithContext("ratefetcher: no route could be initialized"))
	}
	return nil
}

// ReleaseResources closes every open stream and clears the rate cache.
func (a *Adapter) ReleaseResources(ctx context.Context) error {
	a.streamsMu.Lock()
	for id, c := range a.streams {
		if err := c.Close(); err != nil {
			a.logger.Warn(ctx, "ratefetcher: stream close error", "route", id, "error", err)
		}
	}
	a.streams = make(map[domain.PoolIdentifier]*wsconn.Client)
	a.streamsMu.Unlock()

	a.ratesMu.Lock()
	a.rates = make(map[domain.PoolIdentifier]cachedRate)
	a.ratesMu.Unlock()

	return nil
}

func (a *Adapter) matching(from, to domain.Token) []Route {
	var out []Route
	for _, r := range a.routes {
		if (r.TokenFrom.Equals(from) && r.TokenTo.Equals(to)) || (r.TokenFrom.Equals(to) && r.TokenTo.Equals(from)) {
			out = append(out, r)
		}
	}
	return out
}

func (a *Adapter) GetPoolIdentifiers(ctx context.Context, from, to domain.Token, side domain.Side, block uint64) ([]domain.PoolIdentifier, error) {
	var out []domain.PoolIdentifier
	for _, r := range a.matching(from, to) {
		out = append(out, r.ID)
	}
	return out, nil
}

// GetPricesVolume quotes amounts against each matching route's cached
// rate. A route whose rate is missing or older than StaleAfter is
// skipped, same "drop rather than fail the batch" convention as the
// virtual-pool adapter's unwarmed-leg skip.
func (a *Adapter) GetPricesVolume(ctx context.Context, from, to domain.Token, amounts []*big.Int, side domain.Side, block uint64, limitPools []domain.PoolIdentifier, fees domain.TransferFeeParams) ([]domain.PoolPrices[app.Payload], error) {
	restrict := poolSet(limitPools)

	var out []domain.PoolPrices[app.Payload]
	for _, r := range a.matching(from, to) {
		if restrict != nil {
			if _, ok := restrict[r.ID]; !ok {
				continue
			}
		}

		rate, ok := a.currentRate(r.ID)
		if !ok {
			continue
		}

		invert := r.TokenTo.Equals(from)

		prices := make([]*big.Int, len(amounts))
		for i, amt := range amounts {
			prices[i] = convert(amt, from.Decimals(), to.Decimals(), rate, invert)
		}
		unit := convert(unitAmount(from), from.Decimals(), to.Decimals(), rate, invert)

		out = append(out, domain.PoolPrices[app.Payload]{
			Prices:         prices,
			Unit:           unit,
			GasCost:        domain.NewScalarGasCost(big.NewInt(0)),
			Exchange:       a.key,
			PoolIdentifier: r.ID,
			Data:           r.QuoteURL,
		})
	}
	return out, nil
}

// GetCalldataGasCost is always zero: an off-chain reference rate carries
// no on-chain calldata of its own.
func (a *Adapter) GetCalldataGasCost(pp domain.PoolPrices[app.Payload]) domain.GasCost {
	return domain.NewScalarGasCost(big.NewInt(0))
}

func (a *Adapter) currentRate(id domain.PoolIdentifier) (decimal.Decimal, bool) {
	a.ratesMu.RLock()
	defer a.ratesMu.RUnlock()
	cr, ok := a.rates[id]
	if !ok || time.Since(cr.at) > StaleAfter {
		return decimal.Decimal{}, false
	}
	return cr.rate, true
}

func (a *Adapter) setRate(id domain.PoolIdentifier, rate decimal.Decimal) {
	a.ratesMu.Lock()
	a.rates[id] = cachedRate{rate: rate, at: time.Now()}
	a.ratesMu.Unlock()
}

// refresh fetches r's current rate over REST, rate-limited.
func (a *Adapter) refresh(ctx context.Context, r Route) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	var result quoteResponse
	resp, err := a.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("route", string(r.ID))),
	).SetResult(&result).Get(ctx, r.QuoteURL)
	if err != nil {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithCause(err),
			apperror.WithContext("ratefetcher: quote request failed"))
	}
	if resp.IsError() {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithContext(fmt.Sprintf("ratefetcher: HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	rate, err := decimal.NewFromString(result.Price)
	if err != nil {
		return apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext("ratefetcher: unparseable price"))
	}

	a.setRate(r.ID, rate)
	return nil
}

// startStream dials r.StreamURL in the background and folds every push
// quoteResponse message into the rate cache; failures reconnect with
// backoff inside wsconn, this adapter only needs to register the handler.
func (a *Adapter) startStream(r Route) {
	client, err := wsconn.New(wsconn.DefaultConfig(r.StreamURL, a.key+":"+string(r.ID)))
	if err != nil {
		a.logger.Warn(context.Background(), "ratefetcher: stream setup failed", "route", r.ID, "error", err)
		return
	}

	client.OnMessage(func(ctx context.Context, msg []byte) {
		var qr quoteResponse
		if err := json.Unmarshal(msg, &qr); err != nil {
			return
		}
		rate, err := decimal.NewFromString(qr.Price)
		if err != nil {
			return
		}
		a.setRate(r.ID, rate)
	})
	client.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			a.logger.Warn(context.Background(), "ratefetcher: stream state change", "route", r.ID, "state", state, "error", err)
		}
	})

	a.streamsMu.Lock()
	a.streams[r.ID] = client
	a.streamsMu.Unlock()

	go func() {
		if err := client.ConnectWithRetry(context.Background()); err != nil {
			a.logger.Warn(context.Background(), "ratefetcher: stream connect failed permanently", "route", r.ID, "error", err)
		}
	}()
}

// convert scales amt (in fromDecimals) by rate, producing a value in
// toDecimals. invert divides by rate instead of multiplying, for a
// request running against the route's quote direction.
func convert(amt *big.Int, fromDecimals, toDecimals uint8, rate decimal.Decimal, invert bool) *big.Int {
	if amt == nil || amt.Sign() == 0 || rate.IsZero() {
		return big.NewInt(0)
	}

	human := decimal.NewFromBigInt(amt, -int32(fromDecimals))
	var out decimal.Decimal
	if invert {
		out = human.Div(rate)
	} else {
		out = human.Mul(rate)
	}

	scaled := out.Shift(int32(toDecimals)).Truncate(0)
	return scaled.BigInt()
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
