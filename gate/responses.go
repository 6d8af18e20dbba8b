package gate

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/0xmeta/newsgate/content"
	"github.com/0xmeta/newsgate/types"
)

// PaymentRequiredResponse is the 402 rejection body. It names the rejection
// reason and advertises how to pay; it never leaks verifier or ledger state.
type PaymentRequiredResponse struct {
	X402Version types.X402Version           `json:"x402Version"`
	Detail      string                      `json:"detail"`
	Accepts     []types.PaymentRequirements `json:"accepts"`
}

// FeedResponse is the success body of a content endpoint.
type FeedResponse struct {
	Data     []json.RawMessage `json:"data"`
	Metadata FeedMetadata      `json:"metadata"`
}

// FeedMetadata describes the served feed.
type FeedMetadata struct {
	TotalItems int   `json:"total_items"`
	Timestamp  int64 `json:"timestamp"`
	CacheTTL   int64 `json:"cache_ttl"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writePaymentRequired(w http.ResponseWriter, detail string, accepts ...types.PaymentRequirements) {
	writeJSON(w, http.StatusPaymentRequired, PaymentRequiredResponse{
		X402Version: types.X402Version1,
		Detail:      detail,
		Accepts:     accepts,
	})
}

func writeInvalidCategory(w http.ResponseWriter, category string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":           "invalid category",
		"message":         "category '" + category + "' is not supported",
		"free_categories": content.FreeCategories(),
	})
}

func writeFeed(w http.ResponseWriter, feed content.Feed, cacheTTL time.Duration) {
	data := feed.Items
	if data == nil {
		data = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, FeedResponse{
		Data: data,
		Metadata: FeedMetadata{
			TotalItems: len(data),
			Timestamp:  time.Now().Unix(),
			CacheTTL:   int64(cacheTTL.Seconds()),
		},
	})
}
