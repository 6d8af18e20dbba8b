// Package ops exposes reconciliation endpoints for settlement operators.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/0xmeta/newsgate/auth"
	"github.com/0xmeta/newsgate/ledger"
	"github.com/0xmeta/newsgate/types"
	"github.com/0xmeta/newsgate/utils"
)

const defaultListLimit = 100

// TxStatus reports the live on-chain state of a settlement transaction.
// Implemented by relay.ChainRelay; nil when settling through a facilitator.
type TxStatus interface {
	Status(ctx context.Context, txHash string) (types.SettlementState, error)
}

// Handler serves the reconciliation API.
type Handler struct {
	store  ledger.Store
	chain  TxStatus
	apiKey string
	logger *slog.Logger
}

// NewHandler creates a Handler. apiKey may be empty to disable auth; chain may
// be nil when no direct chain access is available.
func NewHandler(store ledger.Store, chain TxStatus, apiKey string, logger *slog.Logger) *Handler {
	return &Handler{store: store, chain: chain, apiKey: apiKey, logger: logger}
}

// Register mounts the ops routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ops/settlements", h.ListSettlements)
	mux.HandleFunc("GET /ops/settlements/{paymentKey}", h.GetSettlement)
	mux.HandleFunc("GET /ops/settlements/{paymentKey}/status", h.GetSettlementStatus)
}

// ListSettlements lists payment records by settlement state. Failed
// settlements are the default: they are the ones needing manual
// reconciliation.
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	if err := auth.Authenticate(r, h.apiKey); err != nil {
		writeAuthError(w, err)
		return
	}

	state := types.SettlementState(r.URL.Query().Get("state"))
	if state == "" {
		state = types.SettlementFailed
	}
	switch state {
	case types.SettlementPending, types.SettlementSubmitted,
		types.SettlementConfirmed, types.SettlementFailed:
	default:
		http.Error(w, "unknown settlement state", http.StatusBadRequest)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := h.store.ListByState(r.Context(), state, limit)
	if err != nil {
		h.logger.Error("failed to list payment records", "state", string(state), "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []types.PaymentRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"state":       state,
		"settlements": recs,
	})
}

// GetSettlement returns the record for one payment key.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	if err := auth.Authenticate(r, h.apiKey); err != nil {
		writeAuthError(w, err)
		return
	}

	rec, err := h.store.Get(r.Context(), r.PathValue("paymentKey"))
	if err == ledger.ErrNotFound {
		http.Error(w, "payment record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load payment record", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// GetSettlementStatus reconciles the stored record against the chain: it
// returns the ledger state alongside the live receipt state of the settlement
// transaction, when one exists and chain access is configured.
func (h *Handler) GetSettlementStatus(w http.ResponseWriter, r *http.Request) {
	if err := auth.Authenticate(r, h.apiKey); err != nil {
		writeAuthError(w, err)
		return
	}

	rec, err := h.store.Get(r.Context(), r.PathValue("paymentKey"))
	if err == ledger.ErrNotFound {
		http.Error(w, "payment record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load payment record", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	body := map[string]any{
		"payment_key": rec.PaymentKey,
		"state":       rec.State,
		"tx_hash":     rec.TxHash,
	}
	if h.chain != nil && rec.TxHash != "" {
		chainState, err := h.chain.Status(r.Context(), rec.TxHash)
		if err != nil {
			h.logger.Error("failed to query transaction status",
				"payment_key", rec.PaymentKey, "tx", rec.TxHash, "error", err)
		} else {
			body["chain_state"] = chainState
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func writeAuthError(w http.ResponseWriter, err error) {
	var se utils.StatusError
	if errors.As(err, &se) {
		http.Error(w, err.Error(), se.Status())
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
