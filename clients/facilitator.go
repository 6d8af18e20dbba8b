package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/0xmeta/newsgate/types"
)

// FacilitatorClient talks to an external x402 facilitator that relays signed
// authorizations on-chain on our behalf.
type FacilitatorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewFacilitatorClient creates a client for the facilitator at baseURL.
// apiKey may be empty when the facilitator is unauthenticated.
func NewFacilitatorClient(baseURL, apiKey string) *FacilitatorClient {
	return &FacilitatorClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// facilitatorRequest is the request body of the facilitator verify and settle
// endpoints.
type facilitatorRequest struct {
	X402Version         types.X402Version         `json:"x402Version"`
	PaymentPayload      facilitatorPayload        `json:"paymentPayload"`
	PaymentRequirements types.PaymentRequirements `json:"paymentRequirements"`
}

type facilitatorPayload struct {
	Scheme  types.Scheme  `json:"scheme"`
	Network types.Network `json:"network"`
	Payload types.Payload `json:"payload"`
}

// Settle asks the facilitator to submit the signed authorization on-chain.
func (c *FacilitatorClient) Settle(ctx context.Context, env types.PaymentEnvelope, reqs types.PaymentRequirements) (types.SettleResult, error) {
	var result types.SettleResult
	if err := c.post(ctx, "/settle", env, reqs, &result); err != nil {
		return types.SettleResult{}, err
	}
	return result, nil
}

// Verify asks the facilitator to check the authorization without settling it.
func (c *FacilitatorClient) Verify(ctx context.Context, env types.PaymentEnvelope, reqs types.PaymentRequirements) (types.VerifyResult, error) {
	var result types.VerifyResult
	if err := c.post(ctx, "/verify", env, reqs, &result); err != nil {
		return types.VerifyResult{}, err
	}
	return result, nil
}

func (c *FacilitatorClient) post(ctx context.Context, path string, env types.PaymentEnvelope, reqs types.PaymentRequirements, out any) error {
	body, err := json.Marshal(facilitatorRequest{
		X402Version: env.X402Version,
		PaymentPayload: facilitatorPayload{
			Scheme:  env.Scheme,
			Network: env.Network,
			Payload: env.Payload,
		},
		PaymentRequirements: reqs,
	})
	if err != nil {
		return fmt.Errorf("marshal facilitator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build facilitator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call facilitator %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("facilitator %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode facilitator response: %w", err)
	}
	return nil
}
