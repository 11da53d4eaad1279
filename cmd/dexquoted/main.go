// Package main is the entry point for the DEX pricing-aggregation daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/kbaldwin/dexquote/business/blockchain"
	blockchainDI "github.com/kbaldwin/dexquote/business/blockchain/di"
	"github.com/kbaldwin/dexquote/business/pricing"
	pricingDI "github.com/kbaldwin/dexquote/business/pricing/di"
	pricingdomain "github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/business/routing"
	routingapp "github.com/kbaldwin/dexquote/business/routing/app"
	routingDI "github.com/kbaldwin/dexquote/business/routing/di"
	"github.com/kbaldwin/dexquote/internal/apm"
	"github.com/kbaldwin/dexquote/internal/config"
	"github.com/kbaldwin/dexquote/internal/health"
	"github.com/kbaldwin/dexquote/internal/logger"
	"github.com/kbaldwin/dexquote/internal/metrics"
	"github.com/kbaldwin/dexquote/internal/monolith"
	"github.com/kbaldwin/dexquote/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dexquoted %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting DEX pricing-aggregation daemon",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - provides block subscription
		&pricing.Module{},    // Depends on blockchain for eth client
		&routing.Module{},    // Pure transform over the pricing module's output
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if tuiMode {
		startFunc := func() error {
			if err := mono.StartModules(ctx, modules...); err != nil {
				return fmt.Errorf("failed to start modules: %w", err)
			}
			go pollDashboard(ctx, cfg, mono, log)
			return nil
		}
		return runTUI(ctx, startFunc)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	return runCLI(ctx, cfg, mono, log)
}

func runCLI(ctx context.Context, cfg *config.Config, mono monolith.Monolith, log *logger.Logger) error {
	log.Info(ctx, "all modules started, polling dashboard query")
	pollDashboard(ctx, cfg, mono, log)
	<-ctx.Done()
	log.Info(ctx, "shutting down")
	return nil
}

// pollDashboard drives the one configured (from, to, side) query through
// the pricing coordinator and the route optimizer pipeline on a fixed
// interval, and forwards the result to the TUI. It is the process's sole
// consumer of dashboard.* configuration.
func pollDashboard(ctx context.Context, cfg *config.Config, mono monolith.Monolith, log *logger.Logger) {
	d := cfg.Dashboard
	if d.From == "" || d.To == "" {
		log.Warn(ctx, "dashboard.from/to not configured, skipping quote polling")
		return
	}

	from := pricingdomain.NewToken(d.From, d.FromDecimals)
	to := pricingdomain.NewToken(d.To, d.ToDecimals)
	side := pricingdomain.Side(d.Side)
	if !side.IsValid() {
		side = pricingdomain.SideSell
	}

	amounts := make([]*big.Int, 0, len(d.AmountsWei))
	for _, a := range d.AmountsWei {
		v, ok := new(big.Int).SetString(a, 10)
		if !ok {
			log.Warn(ctx, "dashboard: invalid amount, skipping", "amount", a)
			continue
		}
		amounts = append(amounts, v)
	}
	if len(amounts) == 0 {
		amounts = append(amounts, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.FromDecimals)), nil))
	}

	ethPriceUSD, _ := decimal.NewFromString(d.ETHPriceUSD)

	interval := d.PollInterval
	if interval <= 0 {
		interval = 12 * time.Second
	}

	coordinator := pricingDI.GetCoordinator(mono.Services())
	registry := pricingDI.GetRegistry(mono.Services())
	pipeline := routingDI.GetPipeline(mono.Services())
	gasOracle := blockchainDI.GetGasOracle(mono.Services())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		head, err := mono.EthClient().BlockNumber(ctx)
		if err != nil {
			log.Warn(ctx, "dashboard: failed to fetch chain head", "error", err)
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}
		ui.Send(ui.BlockMsg{Number: head, Timestamp: time.Now()})

		gasPriceWei := new(big.Int)
		if gp, err := gasOracle.GetGasPrice(ctx); err == nil && gp != nil {
			gasPriceWei = gp.Wei
			ui.Send(ui.GasPriceMsg{GweiPrice: gp.Gwei})
		}

		keys := registry.GetAllDexKeys()
		envelopes := coordinator.GetPoolPrices(ctx, from, to, amounts, side, head, keys, nil, pricingdomain.TransferFeeParams{}, nil)

		rate := routingapp.FromCoordinatorOutput(from, to, side, head, gasPriceWei, ethPriceUSD, envelopes)
		rate = pipeline.Apply(rate)
		ui.Send(ui.RateMsg{Rate: rate})
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

func runTUI(ctx context.Context, startFunc func() error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
