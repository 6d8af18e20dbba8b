// Package core implements payment verification and settlement coordination.
package core

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xmeta/newsgate/eip3009"
	"github.com/0xmeta/newsgate/ledger"
	"github.com/0xmeta/newsgate/types"
)

// Verifier validates decoded payment envelopes through a fixed sequence of
// checks: signature, validity window, nonce, amount. The first failing check
// wins and its reason is returned; on success the result carries the
// canonical payment key.
//
// Verification is a pure function of the envelope plus nonce-ledger state: it
// performs no network calls.
type Verifier struct {
	nonces *ledger.NonceLedger
	now    func() time.Time
}

// NewVerifier creates a Verifier backed by the given nonce ledger.
func NewVerifier(nonces *ledger.NonceLedger) *Verifier {
	return &Verifier{nonces: nonces, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

func invalid(reason types.InvalidReason) types.VerifyResult {
	return types.VerifyResult{IsValid: false, InvalidReason: reason}
}

// Verify runs the verification state machine for one payload against the
// requirements of the endpoint being paid for.
func (v *Verifier) Verify(p types.Payload, r types.PaymentRequirements) types.VerifyResult {

	// Convert the authorization valid after to int64
	validAfterInt, err := strconv.ParseInt(p.Authorization.ValidAfter, 10, 64)
	if err != nil {
		return invalid(types.InvalidReasonInvalidAuthorizationValidAfter)
	}

	// Convert the authorization valid before to int64
	validBeforeInt, err := strconv.ParseInt(p.Authorization.ValidBefore, 10, 64)
	if err != nil {
		return invalid(types.InvalidReasonInvalidAuthorizationValidBefore)
	}

	// Verify the authorization time window is well-formed
	if validAfterInt >= validBeforeInt {
		return invalid(types.InvalidReasonInvalidAuthorizationTimeWindow)
	}

	// Convert the authorization value from string to big.Int
	authValue := new(big.Int)
	_, ok := authValue.SetString(p.Authorization.Value, 10)
	if !ok {
		return invalid(types.InvalidReasonInvalidAuthorizationValue)
	}

	// Verify the authorization value is non-negative
	if authValue.Sign() < 0 {
		return invalid(types.InvalidReasonInvalidAuthorizationValueNegative)
	}

	// Verify authorization from is a valid address
	if !common.IsHexAddress(p.Authorization.From) {
		return invalid(types.InvalidReasonInvalidAuthorizationFromAddress)
	}
	fromAddress := common.HexToAddress(p.Authorization.From)

	// Verify authorization to is a valid address
	if !common.IsHexAddress(p.Authorization.To) {
		return invalid(types.InvalidReasonInvalidAuthorizationToAddress)
	}

	// Verify the authorization to address matches the required pay to address
	if common.HexToAddress(p.Authorization.To) != common.HexToAddress(r.PayTo) {
		return invalid(types.InvalidReasonInvalidAuthorizationToAddressMismatch)
	}

	// Verify requirements asset is a valid address
	if !common.IsHexAddress(r.Asset) {
		return invalid(types.InvalidReasonInvalidRequirementsAsset)
	}
	asset := common.HexToAddress(r.Asset).Hex()

	// Decode the nonce from hex to bytes
	nonceBytes, err := hex.DecodeString(strings.TrimPrefix(p.Authorization.Nonce, "0x"))
	if err != nil {
		return invalid(types.InvalidReasonInvalidAuthorizationNonce)
	}

	// Validate the nonce is exactly 32 bytes
	if len(nonceBytes) != 32 {
		return invalid(types.InvalidReasonInvalidAuthorizationNonceLength)
	}
	var nonce [32]byte
	copy(nonce[:], nonceBytes)

	// Verify requirements extra name and version are present: they bind the
	// signature to the token deployment
	if r.Extra.Name == "" {
		return invalid(types.InvalidReasonInvalidRequirementsExtraName)
	}
	if r.Extra.Version == "" {
		return invalid(types.InvalidReasonInvalidRequirementsExtraVersion)
	}

	// SIGNATURE_OK: recover the signer from the typed-data digest and compare
	// it to the authorization from address.
	msg := eip3009.Message{
		Name:              r.Extra.Name,
		Version:           r.Extra.Version,
		ChainID:           r.Network.ChainID(),
		VerifyingContract: asset,
		From:              p.Authorization.From,
		To:                p.Authorization.To,
		Value:             authValue,
		ValidAfter:        big.NewInt(validAfterInt),
		ValidBefore:       big.NewInt(validBeforeInt),
		Nonce:             nonce,
	}

	domainSeparator, err := msg.DomainSeparator()
	if err != nil {
		return invalid(types.InvalidReasonInvalidTypedDataDomain)
	}

	typedDataHash, err := msg.MessageHash()
	if err != nil {
		return invalid(types.InvalidReasonInvalidTypedDataMessage)
	}

	rawData := append(append([]byte("\x19\x01"), domainSeparator...), typedDataHash...)
	sighash := crypto.Keccak256(rawData)

	// Parse the payload signature
	signature, err := common.ParseHexOrString(p.Signature)
	if err != nil {
		return invalid(types.InvalidReasonInvalidAuthorizationSignature)
	}

	// Verify the signature is exactly 65 bytes (32 bytes r + 32 bytes s + 1 byte v)
	if len(signature) != 65 {
		return invalid(types.InvalidReasonInvalidAuthorizationSignatureLength)
	}

	// Convert the V value of the signature if necessary (27/28 → 0/1)
	if signature[64] == 27 || signature[64] == 28 {
		signature[64] -= 27
	}

	// Recover the public key
	pubkey, err := crypto.Ecrecover(sighash, signature)
	if err != nil {
		return invalid(types.InvalidReasonInvalidAuthorizationSignatureHash)
	}
	if len(pubkey) != 65 {
		return invalid(types.InvalidReasonInvalidAuthorizationPubkeyLength)
	}

	recoveredPubkey, err := crypto.UnmarshalPubkey(pubkey)
	if err != nil {
		return invalid(types.InvalidReasonInvalidAuthorizationPubkey)
	}

	// Verify the recovered sender matches the authorization from
	sender := crypto.PubkeyToAddress(*recoveredPubkey)
	if sender != fromAddress {
		return invalid(types.InvalidReasonInvalidAuthorizationSenderMismatch)
	}

	// WINDOW_OK: validAfter <= now < validBefore
	now := v.now().Unix()
	if now < validAfterInt {
		return invalid(types.InvalidReasonAuthorizationNotYetValid)
	}
	if now >= validBeforeInt {
		return invalid(types.InvalidReasonAuthorizationExpired)
	}

	// NONCE_OK: atomically check-and-mark the nonce as consumed. A nonce that
	// was already consumed means a replayed authorization, regardless of how
	// valid the rest of the payload is.
	paymentKey := types.PaymentKey(p.Authorization.From, p.Authorization.Nonce, asset)
	if !v.nonces.Consume(asset, p.Authorization.Nonce, paymentKey) {
		return invalid(types.InvalidReasonAuthorizationNonceAlreadyUsed)
	}

	// AMOUNT_OK: the authorized value must equal the required amount exactly.
	// Overpayment is rejected the same as underpayment; accepting more than
	// the advertised price would silently change the payment contract.
	requiredAmount := new(big.Int)
	_, ok = requiredAmount.SetString(r.MaxAmountRequired, 10)
	if !ok {
		return invalid(types.InvalidReasonInvalidRequirementsAmount)
	}
	if authValue.Cmp(requiredAmount) != 0 {
		return invalid(types.InvalidReasonAuthorizationAmountMismatch)
	}

	// VERIFIED
	return types.VerifyResult{
		IsValid:    true,
		Payer:      sender.Hex(),
		PaymentKey: paymentKey,
	}
}
