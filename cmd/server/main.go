// Command server runs the x402-gated news API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/0xmeta/newsgate/clients"
	"github.com/0xmeta/newsgate/config"
	"github.com/0xmeta/newsgate/content"
	"github.com/0xmeta/newsgate/core"
	"github.com/0xmeta/newsgate/gate"
	"github.com/0xmeta/newsgate/ledger"
	"github.com/0xmeta/newsgate/ops"
	"github.com/0xmeta/newsgate/relay"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Info("configuration loaded",
		"network", string(cfg.Network),
		"chain_id", cfg.ChainID(),
		"asset", cfg.USDCAddress,
		"treasury", cfg.TreasuryWallet,
		"price_wei", cfg.TotalPriceWei())

	store, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	settlementRelay, err := buildRelay(cfg)
	if err != nil {
		return err
	}

	nonces := ledger.NewNonceLedger()
	verifier := core.NewVerifier(nonces)

	coordinator := core.NewCoordinator(settlementRelay, store, logger)
	coordinator.Start()
	defer coordinator.Stop()

	source, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}

	// Direct chain access enables live receipt checks on the ops endpoints.
	var txStatus ops.TxStatus
	if chainRelay, ok := settlementRelay.(*relay.ChainRelay); ok {
		txStatus = chainRelay
	}

	mux := http.NewServeMux()
	gate.New(cfg, verifier, coordinator, source, store, logger).Register(mux)
	ops.NewHandler(store, txStatus, cfg.StaticAPIKey, logger).Register(mux)
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /{$}", handleRoot(cfg))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func buildStore(cfg config.Config, logger *slog.Logger) (ledger.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no DATABASE_URL configured, payment records are in-memory only")
		return ledger.NewMemoryStore(), func() {}, nil
	}
	store, err := ledger.OpenSQLStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func buildRelay(cfg config.Config) (relay.Relay, error) {
	if cfg.FacilitatorBaseURL != "" {
		client := clients.NewFacilitatorClient(cfg.FacilitatorBaseURL, cfg.StaticAPIKey)
		return relay.NewFacilitatorRelay(client), nil
	}
	if cfg.RelayPrivateKey == "" {
		return nil, errors.New("either FACILITATOR_BASE_URL or RELAY_PRIVATE_KEY must be set")
	}
	return &relay.ChainRelay{
		ChainID:    cfg.ChainID(),
		RPCURL:     cfg.RPCURL,
		PrivateKey: cfg.RelayPrivateKey,
	}, nil
}

func buildSource(cfg config.Config, logger *slog.Logger) (content.Source, error) {
	if cfg.ContentSourceURL == "" {
		return nil, errors.New("CONTENT_SOURCE_URL must be set")
	}

	var cache content.Cache
	if cfg.RedisURL != "" {
		redisCache, err := content.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		cache = redisCache
	} else {
		logger.Warn("no REDIS_URL configured, using in-memory content cache")
		cache = content.NewMemoryCache(cfg.CacheTTL)
	}

	return content.NewCachedSource(content.NewHTTPSource(cfg.ContentSourceURL), cache), nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func handleRoot(cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"service":     "newsgate",
			"description": "crypto news API metered by x402 micropayments",
			"endpoints": map[string]string{
				"categories": "/news/",
				"news":       "/news/{category}",
				"free":       "/news/free/{category}",
				"health":     "/health",
			},
			"pricing": map[string]any{
				"per_request_wei": cfg.TotalPriceWei(),
				"network":         cfg.Network,
				"protocol":        "x402",
			},
		})
	}
}
