// Package relay submits verified transfer authorizations on-chain.
package relay

import (
	"context"

	"github.com/0xmeta/newsgate/clients"
	"github.com/0xmeta/newsgate/types"
)

// Relay submits a signed authorization for settlement. A relay never signs
// the authorization itself; it only forwards what the payer already signed,
// either directly to the chain or through a facilitator service.
type Relay interface {
	Submit(ctx context.Context, p types.Payload, r types.PaymentRequirements) (types.SettleResult, error)
}

// FacilitatorRelay settles through an external facilitator's settle endpoint.
type FacilitatorRelay struct {
	client *clients.FacilitatorClient
}

// NewFacilitatorRelay creates a relay backed by the facilitator client.
func NewFacilitatorRelay(client *clients.FacilitatorClient) *FacilitatorRelay {
	return &FacilitatorRelay{client: client}
}

// Submit forwards the authorization to the facilitator.
func (f *FacilitatorRelay) Submit(ctx context.Context, p types.Payload, r types.PaymentRequirements) (types.SettleResult, error) {
	env := types.PaymentEnvelope{
		X402Version: types.X402Version1,
		Scheme:      r.Scheme,
		Network:     r.Network,
		Payload:     p,
	}
	return f.client.Settle(ctx, env, r)
}
