// Package eip3009 constructs the EIP-712 typed data for ERC-20
// transferWithAuthorization messages and computes the digest that payers sign.
package eip3009

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Message is one TransferWithAuthorization message plus the domain that binds
// it to a specific token deployment and chain.
type Message struct {
	// Domain
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string

	// Message
	From        string
	To          string
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       [32]byte
}

// TypedData constructs the EIP-712 typed data for the message.
func (m Message) TypedData() apitypes.TypedData {
	bigChainID := big.NewInt(m.ChainID)
	hexChainID := math.HexOrDecimal256(*bigChainID)

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              m.Name,
			Version:           m.Version,
			ChainId:           &hexChainID,
			VerifyingContract: m.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"from":        m.From,
			"to":          m.To,
			"value":       m.Value,
			"validAfter":  m.ValidAfter,
			"validBefore": m.ValidBefore,
			"nonce":       m.Nonce,
		},
	}
}

// DomainSeparator computes the hash of the EIP-712 domain.
func (m Message) DomainSeparator() ([]byte, error) {
	typedData := m.TypedData()
	return typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
}

// MessageHash computes the hash of the TransferWithAuthorization struct.
func (m Message) MessageHash() ([]byte, error) {
	typedData := m.TypedData()
	return typedData.HashStruct(typedData.PrimaryType, typedData.Message)
}

// SigHash computes the digest the payer signs: keccak256("\x19\x01" ||
// domainSeparator || hashStruct(message)).
func (m Message) SigHash() ([]byte, error) {
	domainSeparator, err := m.DomainSeparator()
	if err != nil {
		return nil, err
	}

	typedDataHash, err := m.MessageHash()
	if err != nil {
		return nil, err
	}

	rawData := append(append([]byte("\x19\x01"), domainSeparator...), typedDataHash...)
	return crypto.Keccak256(rawData), nil
}
