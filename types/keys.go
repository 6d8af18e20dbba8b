package types

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PaymentKey derives the canonical identifier for one authorization:
// keccak256(from || nonce || token). Verification and settlement are
// deduplicated on this key.
func PaymentKey(from, nonce, token string) string {
	return keyHash(
		common.HexToAddress(from).Bytes(),
		nonceBytes(nonce),
		common.HexToAddress(token).Bytes(),
	)
}

// NonceKey derives the replay-protection key for a nonce scoped to one token
// contract: keccak256(token || nonce).
func NonceKey(token, nonce string) string {
	return keyHash(
		common.HexToAddress(token).Bytes(),
		nonceBytes(nonce),
	)
}

func keyHash(parts ...[]byte) string {
	var raw []byte
	for _, p := range parts {
		raw = append(raw, p...)
	}
	return "0x" + hex.EncodeToString(crypto.Keccak256(raw))
}

func nonceBytes(nonce string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(nonce, "0x"))
	if err != nil {
		// Malformed nonces are rejected by the verifier before any key is
		// derived; fall back to the raw string so the hash stays total.
		return []byte(nonce)
	}
	return b
}
