package builder

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmeta/newsgate/clients"
)

// TokenMetadata is the EIP-712 domain name and version of a token contract.
type TokenMetadata struct {
	Name    string
	Version string
}

// MetadataResolver resolves the domain metadata of a token contract.
type MetadataResolver interface {
	Resolve(ctx context.Context, token string) (TokenMetadata, error)
}

// StaticMetadata returns a resolver with fixed metadata for every token.
// Used when the deployment's token is known up front (e.g. USDC from config).
func StaticMetadata(name, version string) MetadataResolver {
	return staticResolver{md: TokenMetadata{Name: name, Version: version}}
}

type staticResolver struct {
	md TokenMetadata
}

func (r staticResolver) Resolve(ctx context.Context, token string) (TokenMetadata, error) {
	return r.md, nil
}

// Raw JSON for the metadata getters of EIP-3009 tokens.
const metadataJSON = `[
	{
		"type": "function",
		"name": "name",
		"inputs": [],
		"outputs": [{"name": "", "type": "string"}],
		"constant": true
	},
	{
		"type": "function",
		"name": "version",
		"inputs": [],
		"outputs": [{"name": "", "type": "string"}],
		"constant": true
	}
]`

// ChainResolver resolves token metadata with eth_call and caches it per token
// address. Name and version are immutable per deployment, so the cache never
// expires.
type ChainResolver struct {
	rpcURL string

	mu    sync.Mutex
	cache map[string]TokenMetadata
}

// NewChainResolver creates a resolver backed by the RPC endpoint.
func NewChainResolver(rpcURL string) *ChainResolver {
	return &ChainResolver{
		rpcURL: rpcURL,
		cache:  make(map[string]TokenMetadata),
	}
}

// Resolve fetches the token's name and version, consulting the cache first.
func (r *ChainResolver) Resolve(ctx context.Context, token string) (TokenMetadata, error) {
	key := strings.ToLower(token)

	r.mu.Lock()
	md, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return md, nil
	}

	metadataABI, err := abi.JSON(strings.NewReader(metadataJSON))
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("parse metadata ABI: %v", err)
	}

	client, err := clients.NewEthClient(r.rpcURL)
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("dial RPC client: %v", err)
	}

	tokenAddress := common.HexToAddress(token)

	name, err := callString(ctx, client, metadataABI, tokenAddress, "name")
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("fetch token name: %w", err)
	}

	version, err := callString(ctx, client, metadataABI, tokenAddress, "version")
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("fetch token version: %w", err)
	}

	md = TokenMetadata{Name: name, Version: version}

	r.mu.Lock()
	r.cache[key] = md
	r.mu.Unlock()

	return md, nil
}

func callString(ctx context.Context, client clients.EthClientInterface, contractABI abi.ABI, to common.Address, method string) (string, error) {
	data, err := contractABI.Pack(method)
	if err != nil {
		return "", fmt.Errorf("pack %s call data: %v", method, err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return "", err
	}

	values, err := contractABI.Unpack(method, result)
	if err != nil {
		return "", fmt.Errorf("unpack %s result: %v", method, err)
	}
	if len(values) != 1 {
		return "", fmt.Errorf("unexpected %s result arity %d", method, len(values))
	}

	value, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s result type %T", method, values[0])
	}
	return value, nil
}
