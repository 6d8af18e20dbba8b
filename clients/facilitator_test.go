package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xmeta/newsgate/types"
)

func testEnvelope() types.PaymentEnvelope {
	return types.PaymentEnvelope{
		X402Version: types.X402Version1,
		Scheme:      types.SchemeExact,
		Network:     types.NetworkBaseSepolia,
		Payload: types.Payload{
			Signature: "0x1122",
			Authorization: types.Authorization{
				From:        "0x7e5F4552091A69125d5DfCb7b8C2659029395Bdf",
				To:          "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF",
				Value:       "20000",
				ValidAfter:  "0",
				ValidBefore: "1999999999",
				Nonce:       "0x0000000000000000000000000000000000000000000000000000000000000001",
			},
		},
	}
}

func TestFacilitatorSettle(t *testing.T) {
	env := testEnvelope()
	reqs := types.PaymentRequirements{
		Scheme:            types.SchemeExact,
		Network:           types.NetworkBaseSepolia,
		MaxAmountRequired: "20000",
		PayTo:             env.Payload.Authorization.To,
		Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Extra:             types.Extra{Name: "USDC", Version: "2"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/settle" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("expected api key header, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}

		var req facilitatorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.X402Version != types.X402Version1 {
			t.Errorf("unexpected version %d", req.X402Version)
		}
		if req.PaymentPayload.Network != types.NetworkBaseSepolia {
			t.Errorf("unexpected network %q", req.PaymentPayload.Network)
		}
		if req.PaymentPayload.Payload.Authorization.Nonce != env.Payload.Authorization.Nonce {
			t.Errorf("nonce lost in transit: %q", req.PaymentPayload.Payload.Authorization.Nonce)
		}
		if req.PaymentRequirements.PayTo != reqs.PayTo {
			t.Errorf("requirements lost in transit: %+v", req.PaymentRequirements)
		}

		json.NewEncoder(w).Encode(types.SettleResult{Success: true, Transaction: "0xabc123"})
	}))
	defer server.Close()

	client := NewFacilitatorClient(server.URL, "secret")
	result, err := client.Settle(context.Background(), env, reqs)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.Transaction != "0xabc123" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestFacilitatorVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "" {
			t.Error("api key header must be omitted when unset")
		}
		json.NewEncoder(w).Encode(types.VerifyResult{
			IsValid: false,
			InvalidReason: types.InvalidReasonAuthorizationExpired,
		})
	}))
	defer server.Close()

	client := NewFacilitatorClient(server.URL, "")
	result, err := client.Verify(context.Background(), testEnvelope(), types.PaymentRequirements{})
	if err != nil {
		t.Fatal(err)
	}
	if result.IsValid || result.InvalidReason != types.InvalidReasonAuthorizationExpired {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestFacilitatorErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "facilitator on fire", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewFacilitatorClient(server.URL, "")
	if _, err := client.Settle(context.Background(), testEnvelope(), types.PaymentRequirements{}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
