package relay

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xmeta/newsgate/clients"
	"github.com/0xmeta/newsgate/types"
)

// Raw JSON for transferWithAuthorization
const transferWithAuthorizationJSON = `[{
	"type": "function",
	"name": "transferWithAuthorization",
	"inputs": [
		{"name": "from", "type": "address"},
		{"name": "to", "type": "address"},
		{"name": "value", "type": "uint256"},
		{"name": "validAfter", "type": "uint256"},
		{"name": "validBefore", "type": "uint256"},
		{"name": "nonce", "type": "bytes32"},
		{"name": "v", "type": "uint8"},
		{"name": "r", "type": "bytes32"},
		{"name": "s", "type": "bytes32"}
	],
	"outputs": [],
	"constant": false
}]`

// ChainRelay submits authorizations directly to the token contract. The
// relay's key signs only the wrapping transaction and pays its gas; the token
// transfer itself is authorized exclusively by the payer's signature inside
// the calldata.
type ChainRelay struct {
	ChainID    int64
	RPCURL     string
	PrivateKey string

	// MaxGasLimit caps the buffered gas estimate when positive.
	MaxGasLimit uint64
}

// Submit packs transferWithAuthorization and sends it as an EIP-1559
// transaction.
func (c *ChainRelay) Submit(ctx context.Context, p types.Payload, r types.PaymentRequirements) (types.SettleResult, error) {

	chainID := big.NewInt(c.ChainID)
	contractAddress := common.HexToAddress(r.Asset)

	// Parse the contract ABI for transferWithAuthorization
	contractABI, err := abi.JSON(strings.NewReader(transferWithAuthorizationJSON))
	if err != nil {
		// Return an error that will be handled as an internal server error
		return types.SettleResult{}, fmt.Errorf("failed to parse contract ABI: %v", err)
	}

	// Convert the authorization value from string to big.Int
	authValue := new(big.Int)
	_, ok := authValue.SetString(p.Authorization.Value, 10)
	if !ok {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonInvalidAuthorizationValue,
		}, nil
	}

	validAfter := new(big.Int)
	if _, ok := validAfter.SetString(p.Authorization.ValidAfter, 10); !ok {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonInvalidAuthorizationMessage,
		}, nil
	}

	validBefore := new(big.Int)
	if _, ok := validBefore.SetString(p.Authorization.ValidBefore, 10); !ok {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonInvalidAuthorizationMessage,
		}, nil
	}

	// Decode the authorization nonce from hex to bytes
	authNonceBytes, err := hex.DecodeString(strings.TrimPrefix(p.Authorization.Nonce, "0x"))
	if err != nil {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonInvalidAuthorizationNonce,
		}, nil
	}

	// Validate the nonce is exactly 32 bytes
	if len(authNonceBytes) != 32 {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonInvalidAuthorizationNonceLength,
		}, nil
	}
	var authNonce [32]byte
	copy(authNonce[:], authNonceBytes)

	// Parse the authorization signature from the payment payload
	authSignature, err := common.ParseHexOrString(p.Signature)
	if err != nil {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonInvalidAuthorizationSignature,
		}, nil
	}

	// Verify the signature is exactly 65 bytes (32 bytes r + 32 bytes s + 1 byte v)
	if len(authSignature) != 65 {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonInvalidAuthorizationSignatureLength,
		}, nil
	}

	// Extract R, S, and V from the authorization signature
	var authSignatureR [32]byte
	var authSignatureS [32]byte
	copy(authSignatureR[:], authSignature[0:32])
	copy(authSignatureS[:], authSignature[32:64])
	authSignatureV := authSignature[64]

	// Convert the V value of the signature if necessary (0/1 → 27/28)
	if authSignatureV == 0 || authSignatureV == 1 {
		authSignatureV += 27
	}

	// Pack the function call data
	txData, err := contractABI.Pack(
		"transferWithAuthorization",
		common.HexToAddress(p.Authorization.From),
		common.HexToAddress(p.Authorization.To),
		authValue,
		validAfter,
		validBefore,
		authNonce,
		authSignatureV,
		authSignatureR,
		authSignatureS,
	)
	if err != nil {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonInvalidAuthorizationMessage,
		}, nil
	}

	if c.RPCURL == "" {
		return types.SettleResult{}, fmt.Errorf("relay RPC URL is not set")
	}

	// Dial the Ethereum RPC client
	client, err := clients.NewEthClient(c.RPCURL)
	if err != nil {
		return types.SettleResult{}, fmt.Errorf("failed to dial Ethereum RPC client: %v", err)
	}

	if c.PrivateKey == "" {
		return types.SettleResult{}, fmt.Errorf("relay private key is not set")
	}

	// Parse the relay private key
	relayPrivateKey, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
	if err != nil {
		return types.SettleResult{}, fmt.Errorf("failed to parse relay private key: %v", err)
	}
	relayAddress := crypto.PubkeyToAddress(relayPrivateKey.PublicKey)

	// Get the pending nonce for the relay account
	txNonce, err := client.PendingNonceAt(ctx, relayAddress)
	if err != nil {
		return types.SettleResult{}, fmt.Errorf("failed to get pending nonce: %v", err)
	}

	// Get the suggested gas tip cap
	gasTipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return types.SettleResult{}, fmt.Errorf("failed to suggest gas tip cap: %v", err)
	}

	// Get the latest block header to get the base fee
	blockHeader, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return types.SettleResult{}, fmt.Errorf("failed to get block header: %v", err)
	}
	if blockHeader.BaseFee == nil {
		return types.SettleResult{}, fmt.Errorf("block header missing base fee: network may not support EIP-1559")
	}

	// Determine the gas fee cap (2x base fee + gas tip cap)
	gasFeeCap := new(big.Int).Add(
		new(big.Int).Mul(blockHeader.BaseFee, big.NewInt(2)),
		gasTipCap,
	)

	// Get the estimated gas limit to set the gas amount
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: relayAddress,
		To:   &contractAddress,
		Data: txData,
	})
	if err != nil {
		return types.SettleResult{}, fmt.Errorf("failed to estimate gas: %v", err)
	}

	// Add 20% buffer to the gas estimate for safety
	gasLimit = gasLimit * 120 / 100

	// Ensure gas limit does not exceed the allowed gas limit
	if c.MaxGasLimit > 0 && gasLimit > c.MaxGasLimit {
		return types.SettleResult{
			Success:     false,
			ErrorReason: types.ErrorReasonSubmissionFailed,
		}, nil
	}

	// Create the transaction using EIP-1559
	transaction := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     txNonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &contractAddress,
		Value:     big.NewInt(0),
		Data:      txData,
	})

	// Sign the wrapping transaction with the relay's key
	signer := ethtypes.NewLondonSigner(chainID)
	signedTx, err := ethtypes.SignTx(transaction, signer, relayPrivateKey)
	if err != nil {
		return types.SettleResult{}, fmt.Errorf("failed to sign transaction: %v", err)
	}

	// Send the signed transaction
	err = client.SendTransaction(ctx, signedTx)
	if err != nil {
		return types.SettleResult{}, fmt.Errorf("failed to send transaction: %v", err)
	}

	return types.SettleResult{
		Success:     true,
		Transaction: signedTx.Hash().Hex(),
	}, nil
}

// Status reports the on-chain state of a settlement transaction.
func (c *ChainRelay) Status(ctx context.Context, txHash string) (types.SettlementState, error) {
	if c.RPCURL == "" {
		return "", fmt.Errorf("relay RPC URL is not set")
	}

	client, err := clients.NewEthClient(c.RPCURL)
	if err != nil {
		return "", fmt.Errorf("failed to dial Ethereum RPC client: %v", err)
	}

	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err == ethereum.NotFound {
		// Not mined yet: the submission is still in flight.
		return types.SettlementSubmitted, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get transaction receipt: %v", err)
	}

	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return types.SettlementConfirmed, nil
	}
	return types.SettlementFailed, nil
}
