// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmeta/newsgate/types"
)

// Default USDC deployments per supported network.
var usdcAddresses = map[types.Network]string{
	types.NetworkBase:        "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	types.NetworkBaseSepolia: "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
}

// Default public RPC endpoints per supported network.
var rpcURLs = map[types.Network]string{
	types.NetworkBase:        "https://mainnet.base.org",
	types.NetworkBaseSepolia: "https://sepolia.base.org",
}

// Config is the service configuration. The core packages never read the
// environment themselves; everything they need is threaded through from here.
type Config struct {
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	Network        types.Network `env:"PAYMENT_NETWORK" envDefault:"base-sepolia"`
	RPCURL         string        `env:"RPC_URL"`
	TreasuryWallet string        `env:"TREASURY_WALLET,required"`
	USDCAddress    string        `env:"USDC_ADDRESS"`
	AssetName      string        `env:"ASSET_NAME" envDefault:"USDC"`
	AssetVersion   string        `env:"ASSET_VERSION" envDefault:"2"`

	// PriceWei is the base price per request in the token's smallest unit.
	// FacilitatorFeeWei is added to every price; the payer authorizes the sum.
	PriceWei          int64 `env:"PRICE_USDC_WEI" envDefault:"10000"`
	FacilitatorFeeWei int64 `env:"FACILITATOR_FEE_WEI" envDefault:"10000"`

	FacilitatorBaseURL string `env:"FACILITATOR_BASE_URL"`
	RelayPrivateKey    string `env:"RELAY_PRIVATE_KEY"`

	ContentSourceURL string `env:"CONTENT_SOURCE_URL"`

	DatabaseURL string        `env:"DATABASE_URL"`
	RedisURL    string        `env:"REDIS_URL"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	StaticAPIKey string `env:"STATIC_API_KEY"`
}

// Load parses the environment, fills in network-derived defaults and
// validates the result.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.USDCAddress == "" {
		c.USDCAddress = usdcAddresses[c.Network]
	}
	if c.RPCURL == "" {
		c.RPCURL = rpcURLs[c.Network]
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration for values the service cannot run
// without. Address validation is strict: a mistyped treasury wallet must fail
// startup, not the first payment.
func (c Config) Validate() error {
	if c.Network.ChainID() == 0 {
		return fmt.Errorf("unsupported payment network %q", c.Network)
	}
	if !common.IsHexAddress(c.TreasuryWallet) {
		return fmt.Errorf("invalid treasury wallet address %q", c.TreasuryWallet)
	}
	if !common.IsHexAddress(c.USDCAddress) {
		return fmt.Errorf("invalid USDC token address %q", c.USDCAddress)
	}
	if c.PriceWei <= 0 {
		return fmt.Errorf("price must be positive, got %d", c.PriceWei)
	}
	if c.FacilitatorFeeWei < 0 {
		return fmt.Errorf("facilitator fee must be non-negative, got %d", c.FacilitatorFeeWei)
	}
	return nil
}

// ChainID returns the numeric chain ID of the configured network.
func (c Config) ChainID() int64 {
	return c.Network.ChainID()
}

// TotalPriceWei returns the exact amount a payer must authorize: base price
// plus the facilitator fee, as a decimal string.
func (c Config) TotalPriceWei() string {
	return strconv.FormatInt(c.PriceWei+c.FacilitatorFeeWei, 10)
}
