package config

import (
	"testing"

	"github.com/0xmeta/newsgate/types"
)

const testTreasury = "0x7e5F4552091A69125d5DfCb7b8C2659029395Bdf"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TREASURY_WALLET", testTreasury)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Network != types.NetworkBaseSepolia {
		t.Errorf("expected default network base-sepolia, got %s", cfg.Network)
	}
	if cfg.ChainID() != 84532 {
		t.Errorf("expected chain id 84532, got %d", cfg.ChainID())
	}
	if cfg.USDCAddress != "0x036CbD53842c5426634e7929541eC2318f3dCF7e" {
		t.Errorf("unexpected default USDC address %s", cfg.USDCAddress)
	}
	if cfg.RPCURL != "https://sepolia.base.org" {
		t.Errorf("unexpected default RPC URL %s", cfg.RPCURL)
	}
	if cfg.TotalPriceWei() != "20000" {
		t.Errorf("expected total price 20000, got %s", cfg.TotalPriceWei())
	}
	if cfg.AssetName != "USDC" || cfg.AssetVersion != "2" {
		t.Errorf("unexpected asset metadata %s/%s", cfg.AssetName, cfg.AssetVersion)
	}
}

func TestLoadMainnetDefaults(t *testing.T) {
	t.Setenv("TREASURY_WALLET", testTreasury)
	t.Setenv("PAYMENT_NETWORK", "base")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ChainID() != 8453 {
		t.Errorf("expected chain id 8453, got %d", cfg.ChainID())
	}
	if cfg.USDCAddress != "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913" {
		t.Errorf("unexpected mainnet USDC address %s", cfg.USDCAddress)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TREASURY_WALLET", testTreasury)
	t.Setenv("USDC_ADDRESS", "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF")
	t.Setenv("PRICE_USDC_WEI", "5000")
	t.Setenv("FACILITATOR_FEE_WEI", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.USDCAddress != "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF" {
		t.Errorf("override ignored: %s", cfg.USDCAddress)
	}
	if cfg.TotalPriceWei() != "5000" {
		t.Errorf("expected total price 5000, got %s", cfg.TotalPriceWei())
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing treasury", map[string]string{}},
		{"bad treasury", map[string]string{"TREASURY_WALLET": "not-an-address"}},
		{"unknown network", map[string]string{
			"TREASURY_WALLET": testTreasury,
			"PAYMENT_NETWORK": "dogecoin",
		}},
		{"bad usdc address", map[string]string{
			"TREASURY_WALLET": testTreasury,
			"USDC_ADDRESS":    "0x123",
		}},
		{"zero price", map[string]string{
			"TREASURY_WALLET": testTreasury,
			"PRICE_USDC_WEI":  "0",
		}},
		{"negative fee", map[string]string{
			"TREASURY_WALLET":     testTreasury,
			"FACILITATOR_FEE_WEI": "-1",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Clear the required variable so "missing treasury" really is
			// missing even when the host environment sets it.
			t.Setenv("TREASURY_WALLET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected load to fail")
			}
		})
	}
}
