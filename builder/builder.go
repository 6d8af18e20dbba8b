// Package builder constructs signed EIP-3009 transfer authorizations on the
// payer side.
package builder

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xmeta/newsgate/eip3009"
	"github.com/0xmeta/newsgate/envelope"
	"github.com/0xmeta/newsgate/types"
)

// ValidityWindow is how long a freshly built authorization stays valid.
// Policy constant, not user-configurable.
const ValidityWindow = 24 * time.Hour

var (
	// ErrNoSigningSession is returned when no signer is attached to the builder.
	ErrNoSigningSession = errors.New("no active signing session")

	// ErrSignatureDeclined is returned by signers when the payer rejects the
	// signature prompt.
	ErrSignatureDeclined = errors.New("payer declined signature")
)

// Signer signs EIP-712 digests on behalf of the payer. Wallet-backed
// implementations prompt the user; LocalSigner signs with a raw key.
type Signer interface {
	// Address returns the payer address the signer signs for.
	Address() common.Address

	// SignHash signs a 32-byte digest and returns the 65-byte r||s||v
	// signature with a 0/1 recovery id. Wallet-backed signers honor ctx
	// cancellation while waiting for the payer's prompt.
	SignHash(ctx context.Context, digest []byte) ([]byte, error)
}

// NonceSource produces 32-byte single-use nonces. The default draws from
// crypto/rand; tests inject deterministic sources.
type NonceSource func() ([32]byte, error)

// RandomNonce is the default NonceSource.
func RandomNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return [32]byte{}, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// Builder produces signed transfer authorizations for a fixed chain. Each
// Build call generates a fresh nonce; nothing partial survives a failed
// attempt, so retrying after any error is safe.
type Builder struct {
	chainID  int64
	signer   Signer
	metadata MetadataResolver
	nonce    NonceSource
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithNonceSource overrides the nonce source.
func WithNonceSource(src NonceSource) Option {
	return func(b *Builder) { b.nonce = src }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a Builder. signer may be nil when no wallet is connected, in
// which case Build fails with ErrNoSigningSession.
func New(chainID int64, signer Signer, metadata MetadataResolver, opts ...Option) *Builder {
	b := &Builder{
		chainID:  chainID,
		signer:   signer,
		metadata: metadata,
		nonce:    RandomNonce,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build constructs and signs an authorization transferring amount of token
// from the signer to payee. The validity window is fixed: valid immediately,
// expiring after ValidityWindow.
func (b *Builder) Build(ctx context.Context, payee, token string, amount *big.Int) (types.Payload, error) {
	if b.signer == nil {
		return types.Payload{}, ErrNoSigningSession
	}

	if !common.IsHexAddress(payee) {
		return types.Payload{}, fmt.Errorf("invalid payee address %q", payee)
	}
	if !common.IsHexAddress(token) {
		return types.Payload{}, fmt.Errorf("invalid token address %q", token)
	}

	// Checksum-format all three addresses.
	from := b.signer.Address().Hex()
	to := common.HexToAddress(payee).Hex()
	asset := common.HexToAddress(token).Hex()

	md, err := b.metadata.Resolve(ctx, asset)
	if err != nil {
		return types.Payload{}, fmt.Errorf("resolve token metadata: %w", err)
	}

	nonce, err := b.nonce()
	if err != nil {
		return types.Payload{}, err
	}

	validAfter := big.NewInt(0)
	validBefore := big.NewInt(b.now().Add(ValidityWindow).Unix())

	msg := eip3009.Message{
		Name:              md.Name,
		Version:           md.Version,
		ChainID:           b.chainID,
		VerifyingContract: asset,
		From:              from,
		To:                to,
		Value:             amount,
		ValidAfter:        validAfter,
		ValidBefore:       validBefore,
		Nonce:             nonce,
	}

	sighash, err := msg.SigHash()
	if err != nil {
		return types.Payload{}, fmt.Errorf("hash typed data: %w", err)
	}

	signature, err := b.signer.SignHash(ctx, sighash)
	if err != nil {
		return types.Payload{}, err
	}
	if len(signature) != 65 {
		return types.Payload{}, fmt.Errorf("signer returned %d bytes, want 65", len(signature))
	}

	// Wire signatures carry v as 27/28.
	if signature[64] == 0 || signature[64] == 1 {
		signature[64] += 27
	}

	return types.Payload{
		Signature: hexutil.Encode(signature),
		Authorization: types.Authorization{
			From:        from,
			To:          to,
			Value:       amount.String(),
			ValidAfter:  validAfter.String(),
			ValidBefore: validBefore.String(),
			Nonce:       hexutil.Encode(nonce[:]),
		},
	}, nil
}

// BuildHeader builds an authorization and encodes it as an X-Payment header
// value for the given network.
func (b *Builder) BuildHeader(ctx context.Context, network types.Network, payee, token string, amount *big.Int) (string, error) {
	payload, err := b.Build(ctx, payee, token, amount)
	if err != nil {
		return "", err
	}
	return envelope.Encode(types.PaymentEnvelope{
		X402Version: types.X402Version1,
		Scheme:      types.SchemeExact,
		Network:     network,
		Payload:     payload,
	})
}

// LocalSigner signs with an in-process secp256k1 key. It backs tests and
// headless API clients; browser wallets implement Signer elsewhere.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

// NewLocalSigner parses a hex-encoded private key.
func NewLocalSigner(hexKey string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &LocalSigner{key: key}, nil
}

// NewLocalSignerFromKey wraps an existing key.
func NewLocalSignerFromKey(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// Address returns the address of the signing key.
func (s *LocalSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignHash signs the digest with the local key. Signing is synchronous, so
// ctx is not consulted.
func (s *LocalSigner) SignHash(ctx context.Context, digest []byte) ([]byte, error) {
	return crypto.Sign(digest, s.key)
}
