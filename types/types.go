package types

import "time"

// PaymentEnvelope is the decoded X-Payment header: the protocol version and
// scheme/network tags wrapped around the signed authorization.
type PaymentEnvelope struct {
	X402Version X402Version `json:"x402Version"`
	Scheme      Scheme      `json:"scheme"`
	Network     Network     `json:"network"`
	Payload     Payload     `json:"payload"`
}

// Payload is the payload of the payment envelope.
type Payload struct {
	Signature     string        `json:"signature"`
	Authorization Authorization `json:"authorization"`
}

// Authorization is the EIP-3009 transfer authorization of the payload.
// Integer fields are decimal strings (uint256), the nonce is 0x-prefixed hex.
type Authorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// PaymentRequirements describes one accepted way to pay for a resource. It is
// advertised in the 402 response body.
type PaymentRequirements struct {
	Scheme            Scheme  `json:"scheme"`
	Network           Network `json:"network"`
	MaxAmountRequired string  `json:"maxAmountRequired"`
	Resource          string  `json:"resource"`
	Description       string  `json:"description"`
	PayTo             string  `json:"payTo"`
	MaxTimeoutSeconds int64   `json:"maxTimeoutSeconds"`
	Asset             string  `json:"asset"`
	Extra             Extra   `json:"extra"`
}

// Extra carries the EIP-712 domain name and version of the payment asset.
type Extra struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// VerifyResult is the outcome of the payment verification state machine.
// A valid result carries the payer and the canonical payment key, an invalid
// one carries the rejection reason.
type VerifyResult struct {
	IsValid       bool          `json:"isValid"`
	Payer         string        `json:"payer,omitempty"`
	PaymentKey    string        `json:"paymentKey,omitempty"`
	InvalidReason InvalidReason `json:"invalidReason,omitempty"`
}

// SettleResult is the outcome of one settlement submission.
type SettleResult struct {
	Success     bool        `json:"success"`
	Transaction string      `json:"transaction,omitempty"`
	ErrorReason ErrorReason `json:"errorReason,omitempty"`
}

// PaymentRecord is the ledger entry for one authorization. It is created at
// verification time and updated as settlement progresses; records are retained
// for reconciliation.
type PaymentRecord struct {
	ID         string
	PaymentKey string
	Endpoint   string
	Category   string
	Amount     string
	Payer      string
	Verified   bool
	Settled    bool
	State      SettlementState
	TxHash     string
	CreatedAt  time.Time
	VerifiedAt *time.Time
	SettledAt  *time.Time
}
