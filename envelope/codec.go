// Package envelope encodes and decodes the X-Payment transport envelope.
package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/0xmeta/newsgate/types"
)

// DecodeError is a decode failure tagged with the rejection reason advertised
// to the caller. Malformed input never reaches the verifier.
type DecodeError struct {
	Reason types.InvalidReason
	err    error
}

func (e *DecodeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.err)
	}
	return string(e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.err }

// Encode wraps the signed authorization with the active protocol version and
// scheme/network tags and produces the base64 X-Payment header value.
func Encode(env types.PaymentEnvelope) (string, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal payment envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses an X-Payment header value. Unknown versions and schemes are
// rejected here, before any cryptographic or ledger state is touched.
func Decode(header string) (types.PaymentEnvelope, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return types.PaymentEnvelope{}, &DecodeError{
			Reason: types.InvalidReasonInvalidPaymentEnvelope,
			err:    fmt.Errorf("decode base64: %w", err),
		}
	}

	var env types.PaymentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return types.PaymentEnvelope{}, &DecodeError{
			Reason: types.InvalidReasonInvalidPaymentEnvelope,
			err:    fmt.Errorf("parse JSON: %w", err),
		}
	}

	if env.X402Version != types.X402Version1 {
		return types.PaymentEnvelope{}, &DecodeError{
			Reason: types.InvalidReasonInvalidX402Version,
			err:    fmt.Errorf("unsupported x402 version %d", env.X402Version),
		}
	}

	if env.Scheme != types.SchemeExact {
		return types.PaymentEnvelope{}, &DecodeError{
			Reason: types.InvalidReasonInvalidScheme,
			err:    fmt.Errorf("unsupported scheme %q", env.Scheme),
		}
	}

	if env.Network.ChainID() == 0 {
		return types.PaymentEnvelope{}, &DecodeError{
			Reason: types.InvalidReasonInvalidNetwork,
			err:    fmt.Errorf("unsupported network %q", env.Network),
		}
	}

	if err := checkRequiredFields(env.Payload); err != nil {
		return types.PaymentEnvelope{}, &DecodeError{
			Reason: types.InvalidReasonInvalidPaymentEnvelope,
			err:    err,
		}
	}

	return env, nil
}

// checkRequiredFields guards the verifier from partial authorizations: every
// field of the payload must be present after JSON parsing.
func checkRequiredFields(p types.Payload) error {
	a := p.Authorization
	for name, value := range map[string]string{
		"signature":   p.Signature,
		"from":        a.From,
		"to":          a.To,
		"value":       a.Value,
		"validAfter":  a.ValidAfter,
		"validBefore": a.ValidBefore,
		"nonce":       a.Nonce,
	} {
		if value == "" {
			return fmt.Errorf("missing required field %q", name)
		}
	}
	return nil
}
