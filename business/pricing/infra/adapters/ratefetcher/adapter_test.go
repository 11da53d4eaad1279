package ratefetcher

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"

	"github.com/kbaldwin/dexquote/business/pricing/app"
	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/internal/httpclient"
	"github.com/kbaldwin/dexquote/internal/logger"
	"github.com/kbaldwin/dexquote/internal/ratelimit"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func testClient(t *testing.T) httpclient.Client {
	t.Helper()
	c, err := httpclient.NewInstrumentedClient()
	if err != nil {
		t.Fatalf("NewInstrumentedClient() error = %v", err)
	}
	return c
}

func TestAdapter_InitializePricing_FetchesInitialRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(quoteResponse{Price: "3400.00"})
	}))
	defer server.Close()

	usdc := domain.NewToken("0x0000000000000000000000000000000000000001", 6)
	weth := domain.NewToken("0x0000000000000000000000000000000000000002", 18)

	route := Route{
		ID:        domain.NewPoolIdentifier("ratefetcher", "wethusdc"),
		TokenFrom: weth,
		TokenTo:   usdc,
		QuoteURL:  server.URL + "/ticker",
	}
	adapter := NewAdapter("ratefetcher", testClient(t), ratelimit.NewWithBurst(1000, 10), []Route{route}, app.Capabilities{HasConstantPriceLargeAmounts: true}, testLogger())

	if err := adapter.InitializePricing(context.Background(), 1); err != nil {
		t.Fatalf("InitializePricing() error = %v", err)
	}

	ids, err := adapter.GetPoolIdentifiers(context.Background(), weth, usdc, domain.SideSell, 1)
	if err != nil || len(ids) != 1 || ids[0] != route.ID {
		t.Fatalf("GetPoolIdentifiers() = (%v, %v), want [%s]", ids, err, route.ID)
	}

	oneWeth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	out, err := adapter.GetPricesVolume(context.Background(), weth, usdc, []*big.Int{oneWeth}, domain.SideSell, 1, nil, domain.TransferFeeParams{})
	if err != nil {
		t.Fatalf("GetPricesVolume() error = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("GetPricesVolume() returned %d pools, want 1", len(out))
	}

	want := decimal.RequireFromString("3400.00").Shift(6).Truncate(0).BigInt()
	if got := out[0].Prices[0]; got.Cmp(want) != 0 {
		t.Errorf("Prices[0] = %s, want %s (1 WETH at 3400 USDC/WETH)", got, want)
	}
}

func TestAdapter_GetPricesVolume_SkipsStaleRate(t *testing.T) {
	usdc := domain.NewToken("0x0000000000000000000000000000000000000001", 6)
	weth := domain.NewToken("0x0000000000000000000000000000000000000002", 18)
	route := Route{ID: "ratefetcher_stale", TokenFrom: weth, TokenTo: usdc}

	adapter := NewAdapter("ratefetcher", testClient(t), ratelimit.NewWithBurst(1000, 10), []Route{route}, app.Capabilities{}, testLogger())
	adapter.rates[route.ID] = cachedRate{rate: decimal.RequireFromString("3400"), at: time.Now().Add(-time.Hour)}

	out, err := adapter.GetPricesVolume(context.Background(), weth, usdc, []*big.Int{big.NewInt(1)}, domain.SideSell, 1, nil, domain.TransferFeeParams{})
	if err != nil {
		t.Fatalf("GetPricesVolume() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("GetPricesVolume() = %+v, want no pools for a stale rate", out)
	}
}

func TestAdapter_StreamPush_UpdatesRate(t *testing.T) {
	restServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(quoteResponse{Price: "3400.00"})
	}))
	defer restServer.Close()

	pushed := make(chan struct{})
	wsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		data, _ := json.Marshal(quoteResponse{Price: "3500.00"})
		conn.Write(context.Background(), websocket.MessageText, data)
		close(pushed)
		time.Sleep(200 * time.Millisecond)
	}))
	defer wsServer.Close()

	usdc := domain.NewToken("0x0000000000000000000000000000000000000001", 6)
	weth := domain.NewToken("0x0000000000000000000000000000000000000002", 18)
	route := Route{
		ID:        domain.NewPoolIdentifier("ratefetcher", "wethusdc"),
		TokenFrom: weth,
		TokenTo:   usdc,
		QuoteURL:  restServer.URL + "/ticker",
		StreamURL: "ws" + strings.TrimPrefix(wsServer.URL, "http"),
	}
	adapter := NewAdapter("ratefetcher", testClient(t), ratelimit.NewWithBurst(1000, 10), []Route{route}, app.Capabilities{}, testLogger())

	if err := adapter.InitializePricing(context.Background(), 1); err != nil {
		t.Fatalf("InitializePricing() error = %v", err)
	}

	select {
	case <-pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for push message to be sent")
	}
	time.Sleep(100 * time.Millisecond)

	rate, ok := adapter.currentRate(route.ID)
	if !ok {
		t.Fatal("currentRate() ok = false after push, want true")
	}
	if !rate.Equal(decimal.RequireFromString("3500.00")) {
		t.Errorf("currentRate() = %s, want 3500.00 (updated by push)", rate)
	}

	if err := adapter.ReleaseResources(context.Background()); err != nil {
		t.Fatalf("ReleaseResources() error = %v", err)
	}
	if _, ok := adapter.currentRate(route.ID); ok {
		t.Error("currentRate() ok = true after ReleaseResources, want cache cleared")
	}
}
