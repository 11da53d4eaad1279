// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Networks  []NetworkConfig `mapstructure:"networks"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// PricingConfig holds the pricing-aggregation core's timing and process-
// role knobs (spec.md §6, §9).
type PricingConfig struct {
	FetchPoolIdentifierTimeout time.Duration `mapstructure:"fetch_pool_identifier_timeout"`
	FetchPoolPricesTimeout     time.Duration `mapstructure:"fetch_pool_prices_timeout"`
	SetupRetryTimeout          time.Duration `mapstructure:"setup_retry_timeout"`
	// IsSlave marks this process a replica: it skips shared-cache
	// invalidation on adapter (re)initialization (spec.md §4.6, §5).
	IsSlave bool `mapstructure:"is_slave"`
	// FeeDenominator is the basis-point denominator F every pool fee is
	// expressed against (spec.md §3, §6). 0 keeps the domain package's
	// default of 10000.
	FeeDenominator int `mapstructure:"fee_denominator"`
	// ReserveLimit is RESERVE_LIMIT, the contract-level guard against
	// reserve overflow, as a decimal string since it does not fit a
	// machine int (spec.md §3, §6). Empty keeps the default of 2^112-1.
	ReserveLimit string `mapstructure:"reserve_limit"`
}

// PoolConfig describes one constant-product pool a network's adapter
// tracks.
type PoolConfig struct {
	Address        string `mapstructure:"address"`
	Token0         string `mapstructure:"token0"`
	Token0Decimals uint8  `mapstructure:"token0_decimals"`
	Token1         string `mapstructure:"token1"`
	Token1Decimals uint8  `mapstructure:"token1_decimals"`
	FeeBps         int    `mapstructure:"fee_bps"`
}

// AdapterConfig configures one venue adapter instance on a network.
type AdapterConfig struct {
	Key           string       `mapstructure:"key"`
	WrappedNative string       `mapstructure:"wrapped_native"`
	Pools         []PoolConfig `mapstructure:"pools"`
}

// NetworkConfig groups the adapters available on one chain (spec.md §6
// "Networks[chainID].Adapters[key]").
type NetworkConfig struct {
	ChainID       uint64               `mapstructure:"chain_id"`
	Adapters      []AdapterConfig      `mapstructure:"adapters"`
	VirtualRoutes []VirtualRouteConfig `mapstructure:"virtual_routes"`
	RateFetchers  []RateFetcherConfig  `mapstructure:"rate_fetchers"`
}

// RateFetcherConfig configures one "custom rate-fetcher venue" adapter
// (spec.md §4.3): pairs priced from an off-chain REST/WS reference rate
// rather than on-chain reserves, sharing one rate-limited HTTP client per
// venue, with one push-quote WebSocket per route that sets stream_url.
type RateFetcherConfig struct {
	Key               string                   `mapstructure:"key"`
	BaseURL           string                   `mapstructure:"base_url"`
	RequestsPerMinute int                      `mapstructure:"requests_per_minute"`
	Routes            []RateFetcherRouteConfig `mapstructure:"routes"`
}

// RateFetcherRouteConfig names one pair priced by its parent
// RateFetcherConfig venue.
type RateFetcherRouteConfig struct {
	TokenFrom         string `mapstructure:"token_from"`
	TokenFromDecimals uint8  `mapstructure:"token_from_decimals"`
	TokenTo           string `mapstructure:"token_to"`
	TokenToDecimals   uint8  `mapstructure:"token_to_decimals"`
	// QuoteURL is resolved against BaseURL for the one REST fetch made
	// when the adapter initializes; there is no periodic REST refresh.
	QuoteURL string `mapstructure:"quote_url"`
	// StreamURL, if set, is dialed for push quote updates after that
	// fetch (spec.md §9 "custom rate-fetcher venues").
	StreamURL string `mapstructure:"stream_url"`
}

// VirtualRouteConfig names one synthetic i<->j pool derived from two real
// pools on this network that share a common token k (spec.md §4.1, §9
// "Virtual pools"): a jk-leg and an ik-leg, identified by their on-chain
// pool address so the builder can locate the descriptors the constant-
// product adapters already registered.
type VirtualRouteConfig struct {
	Key                 string `mapstructure:"key"`
	CommonToken         string `mapstructure:"common_token"`
	CommonTokenDecimals uint8  `mapstructure:"common_token_decimals"`
	JKPoolAddress       string `mapstructure:"jk_pool_address"`
	IKPoolAddress       string `mapstructure:"ik_pool_address"`
}

// RoutingConfig names the ordered pipeline transforms the route optimizer
// applies (C8); an empty Steps list is the identity pipeline.
type RoutingConfig struct {
	Steps []string `mapstructure:"steps"`
}

// DashboardConfig names the single (from, to, side) query the live TUI
// polls once every PollInterval, and the amount chunks it requests (spec.md §3
// "amounts[]"). This process never aggregates more than one query; running
// several pairs means running several processes.
type DashboardConfig struct {
	From         string        `mapstructure:"from"`
	To           string        `mapstructure:"to"`
	FromDecimals uint8         `mapstructure:"from_decimals"`
	ToDecimals   uint8         `mapstructure:"to_decimals"`
	Side         string        `mapstructure:"side"`
	AmountsWei   []string      `mapstructure:"amounts_wei"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// ETHPriceUSD is a static reference price for the gas-cost-in-USD
	// display annotation (business/routing/app's annotate-gas-cost-usd
	// step); this process has no live price feed of its own.
	ETHPriceUSD string `mapstructure:"eth_price_usd"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DEXQ")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "DEXQ_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "DEXQ_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "DEXQ_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("ethereum.websocket_url", "DEXQ_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "DEXQ_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "DEXQ_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	v.BindEnv("pricing.is_slave", "DEXQ_IS_SLAVE")
	v.BindEnv("pricing.setup_retry_timeout", "DEXQ_SETUP_RETRY_TIMEOUT")

	v.BindEnv("telemetry.enabled", "DEXQ_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "DEXQ_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "DEXQ_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dexquoted")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	v.SetDefault("pricing.fetch_pool_identifier_timeout", "2s")
	v.SetDefault("pricing.fetch_pool_prices_timeout", "3s")
	v.SetDefault("pricing.setup_retry_timeout", "30s")
	v.SetDefault("pricing.is_slave", false)
	v.SetDefault("pricing.fee_denominator", 10000)
	v.SetDefault("pricing.reserve_limit", "")

	v.SetDefault("dashboard.side", "SELL")
	v.SetDefault("dashboard.poll_interval", "12s")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dexquoted")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.WebSocketURL == "" {
		return fmt.Errorf("ethereum.websocket_url is required")
	}
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if c.Pricing.ReserveLimit != "" {
		if _, ok := new(big.Int).SetString(c.Pricing.ReserveLimit, 10); !ok {
			return fmt.Errorf("pricing.reserve_limit is not a valid decimal integer: %q", c.Pricing.ReserveLimit)
		}
	}
	if c.Pricing.SetupRetryTimeout < 10*time.Second || c.Pricing.SetupRetryTimeout > 60*time.Second {
		return fmt.Errorf("pricing.setup_retry_timeout must be in [10s, 60s], got %s", c.Pricing.SetupRetryTimeout)
	}
	for _, net := range c.Networks {
		for _, a := range net.Adapters {
			if a.WrappedNative != "" && !common.IsHexAddress(a.WrappedNative) {
				return fmt.Errorf("network %d adapter %s: invalid wrapped_native address %s", net.ChainID, a.Key, a.WrappedNative)
			}
			for _, p := range a.Pools {
				if !common.IsHexAddress(p.Address) {
					return fmt.Errorf("network %d adapter %s: invalid pool address %s", net.ChainID, a.Key, p.Address)
				}
			}
		}
		for _, r := range net.VirtualRoutes {
			if !common.IsHexAddress(r.CommonToken) {
				return fmt.Errorf("network %d virtual route %s: invalid common_token address %s", net.ChainID, r.Key, r.CommonToken)
			}
			if !common.IsHexAddress(r.JKPoolAddress) || !common.IsHexAddress(r.IKPoolAddress) {
				return fmt.Errorf("network %d virtual route %s: invalid leg pool address", net.ChainID, r.Key)
			}
		}
		for _, rf := range net.RateFetchers {
			if rf.Key == "" {
				return fmt.Errorf("network %d rate_fetcher: key is required", net.ChainID)
			}
			if rf.RequestsPerMinute <= 0 {
				return fmt.Errorf("network %d rate_fetcher %s: requests_per_minute must be positive", net.ChainID, rf.Key)
			}
			for _, rr := range rf.Routes {
				if !common.IsHexAddress(rr.TokenFrom) || !common.IsHexAddress(rr.TokenTo) {
					return fmt.Errorf("network %d rate_fetcher %s: invalid token address", net.ChainID, rf.Key)
				}
				if rr.QuoteURL == "" {
					return fmt.Errorf("network %d rate_fetcher %s: quote_url is required", net.ChainID, rf.Key)
				}
			}
		}
	}
	return nil
}
