package builder

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/0xmeta/newsgate/clients"
)

// metadataEthClient answers name()/version() calls with fixed values and
// counts how many calls it served.
type metadataEthClient struct {
	mu      sync.Mutex
	calls   int
	name    string
	version string
}

func (m *metadataEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	metadataABI, err := abi.JSON(strings.NewReader(metadataJSON))
	if err != nil {
		return nil, err
	}
	for _, method := range []string{"name", "version"} {
		if bytes.Equal(msg.Data, metadataABI.Methods[method].ID) {
			value := m.name
			if method == "version" {
				value = m.version
			}
			return metadataABI.Methods[method].Outputs.Pack(value)
		}
	}
	return nil, errors.New("unexpected call data")
}

func (m *metadataEthClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *metadataEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, errors.New("not implemented")
}

func (m *metadataEthClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("not implemented")
}

func (m *metadataEthClient) HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
	return nil, errors.New("not implemented")
}

func (m *metadataEthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 0, errors.New("not implemented")
}

func (m *metadataEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	return errors.New("not implemented")
}

func (m *metadataEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return nil, errors.New("not implemented")
}

func TestStaticMetadata(t *testing.T) {
	md, err := StaticMetadata("USDC", "2").Resolve(context.Background(), builderToken)
	if err != nil {
		t.Fatal(err)
	}
	if md.Name != "USDC" || md.Version != "2" {
		t.Errorf("unexpected metadata: %+v", md)
	}
}

func TestChainResolverCachesPerToken(t *testing.T) {
	mock := &metadataEthClient{name: "USD Coin", version: "2"}

	orig := clients.NewEthClient
	clients.NewEthClient = func(rpcURL string) (clients.EthClientInterface, error) {
		return mock, nil
	}
	defer func() { clients.NewEthClient = orig }()

	r := NewChainResolver("http://localhost:8545")

	md, err := r.Resolve(context.Background(), builderToken)
	if err != nil {
		t.Fatal(err)
	}
	if md.Name != "USD Coin" || md.Version != "2" {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if got := mock.callCount(); got != 2 {
		t.Fatalf("expected 2 eth_calls (name, version), got %d", got)
	}

	// A second resolve hits the cache, regardless of address casing.
	if _, err := r.Resolve(context.Background(), strings.ToLower(builderToken)); err != nil {
		t.Fatal(err)
	}
	if got := mock.callCount(); got != 2 {
		t.Fatalf("cached resolve must not call the chain again, got %d calls", got)
	}
}
