// Package gate serves the metered content endpoints behind x402
// micropayments.
package gate

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/0xmeta/newsgate/config"
	"github.com/0xmeta/newsgate/content"
	"github.com/0xmeta/newsgate/core"
	"github.com/0xmeta/newsgate/envelope"
	"github.com/0xmeta/newsgate/ledger"
	"github.com/0xmeta/newsgate/types"
)

// Gate orchestrates decode → verify → serve → enqueue-settlement for each
// protected request.
type Gate struct {
	cfg         config.Config
	verifier    *core.Verifier
	coordinator *core.Coordinator
	source      content.Source
	store       ledger.Store
	logger      *slog.Logger
}

// New creates a Gate.
func New(cfg config.Config, verifier *core.Verifier, coordinator *core.Coordinator, source content.Source, store ledger.Store, logger *slog.Logger) *Gate {
	return &Gate{
		cfg:         cfg,
		verifier:    verifier,
		coordinator: coordinator,
		source:      source,
		store:       store,
		logger:      logger,
	}
}

// Register mounts the news routes on the mux.
func (g *Gate) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /news/{$}", g.ListCategories)
	mux.HandleFunc("GET /news/free/{category}", g.GetFreeNews)
	mux.HandleFunc("GET /news/{category}", g.GetNews)
}

// Requirements returns the payment requirements for one category endpoint.
func (g *Gate) Requirements(category string) types.PaymentRequirements {
	return types.PaymentRequirements{
		Scheme:            types.SchemeExact,
		Network:           g.cfg.Network,
		MaxAmountRequired: g.cfg.TotalPriceWei(),
		Resource:          g.cfg.BaseURL + "/news/" + category,
		Description:       "Access to " + category + " crypto news and social updates",
		PayTo:             common.HexToAddress(g.cfg.TreasuryWallet).Hex(),
		MaxTimeoutSeconds: 60,
		Asset:             common.HexToAddress(g.cfg.USDCAddress).Hex(),
		Extra: types.Extra{
			Name:    g.cfg.AssetName,
			Version: g.cfg.AssetVersion,
		},
	}
}

// GetNews is the paid per-category endpoint.
func (g *Gate) GetNews(w http.ResponseWriter, r *http.Request) {
	category := content.Normalize(r.PathValue("category"))
	if !content.IsValid(category) {
		writeInvalidCategory(w, r.PathValue("category"))
		return
	}

	requirements := g.Requirements(category)

	header := r.Header.Get("X-Payment")
	if header == "" {
		writePaymentRequired(w, "X-Payment header is required", requirements)
		return
	}

	// Decode the envelope. Codec failures never reach the verifier.
	env, err := envelope.Decode(header)
	if err != nil {
		reason := types.InvalidReasonInvalidPaymentEnvelope
		if de, ok := err.(*envelope.DecodeError); ok {
			reason = de.Reason
		}
		g.logger.Warn("payment envelope rejected", "category", category, "reason", string(reason))
		writePaymentRequired(w, string(reason), requirements)
		return
	}

	// The envelope must target the network this deployment settles on.
	if env.Network != g.cfg.Network {
		writePaymentRequired(w, string(types.InvalidReasonInvalidNetwork), requirements)
		return
	}

	result := g.verifier.Verify(env.Payload, requirements)
	if !result.IsValid {
		g.logger.Warn("payment rejected",
			"category", category, "reason", string(result.InvalidReason))
		writePaymentRequired(w, string(result.InvalidReason), requirements)
		return
	}

	// Payment verified: fetch content from the pipeline.
	feed, err := g.source.Fetch(r.Context(), category)
	if err != nil {
		g.logger.Error("content fetch failed after verification",
			"category", category, "payment_key", result.PaymentKey, "error", err)
		writeError(w, http.StatusInternalServerError, "content temporarily unavailable")
		return
	}

	// Persist the payment record before responding so settlement and
	// reconciliation always have a row to work with.
	now := time.Now()
	rec := types.PaymentRecord{
		ID:         uuid.NewString(),
		PaymentKey: result.PaymentKey,
		Endpoint:   "/news/" + category,
		Category:   category,
		Amount:     env.Payload.Authorization.Value,
		Payer:      result.Payer,
		Verified:   true,
		State:      types.SettlementPending,
		CreatedAt:  now,
		VerifiedAt: &now,
	}
	if err := g.store.Upsert(r.Context(), rec); err != nil {
		// Content was paid for; serve it and leave the gap to reconciliation.
		g.logger.Error("failed to persist payment record",
			"payment_key", result.PaymentKey, "error", err)
	}

	g.logger.Info("payment verified",
		"category", category, "payment_key", result.PaymentKey, "payer", result.Payer)

	writeFeed(w, feed, g.cfg.CacheTTL)

	// Settlement happens off the request path, after the response.
	g.coordinator.Enqueue(result.PaymentKey, env.Payload, requirements)
}

// GetFreeNews serves the free categories without payment.
func (g *Gate) GetFreeNews(w http.ResponseWriter, r *http.Request) {
	category := content.Normalize(r.PathValue("category"))
	if !content.IsValid(category) {
		writeInvalidCategory(w, r.PathValue("category"))
		return
	}
	if !content.IsFree(category) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":           "category not available for free access",
			"free_categories": content.FreeCategories(),
			"paid_endpoint":   g.cfg.BaseURL + "/news/" + category,
			"price":           g.cfg.TotalPriceWei(),
		})
		return
	}

	feed, err := g.source.Fetch(r.Context(), category)
	if err != nil {
		g.logger.Error("content fetch failed", "category", category, "error", err)
		writeError(w, http.StatusInternalServerError, "content temporarily unavailable")
		return
	}
	writeFeed(w, feed, g.cfg.CacheTTL)
}

// ListCategories lists the catalog with pricing info.
func (g *Gate) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": content.Catalog,
		"pricing": map[string]any{
			"amount":  g.cfg.TotalPriceWei(),
			"asset":   common.HexToAddress(g.cfg.USDCAddress).Hex(),
			"network": g.cfg.Network,
			"payTo":   common.HexToAddress(g.cfg.TreasuryWallet).Hex(),
		},
		"free_categories": content.FreeCategories(),
	})
}
