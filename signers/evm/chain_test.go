package evm

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	relaypay "github.com/reserve-vault/relaypay/go"
	relayevm "github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

const (
	testToken   = "0xd6806a129E91077cCdbe055ec48b3FE3cdc9Ab5A"
	testReserve = "0x4920E3E1E7c4D13c01188CfC7723873eef6639Bc"
	testVault   = "0x7695b38d2A3308Cf45BFfdD8c297015F82708787"
)

func mustABI(t *testing.T, raw []byte) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("Failed to parse ABI: %v", err)
	}
	return parsed
}

// fakeBackend answers contract reads from canned outputs and records sent transactions
type fakeBackend struct {
	t    *testing.T
	abis []abi.ABI

	mu       sync.Mutex
	outputs  map[string][]interface{}
	callErr  error
	sendErr  error
	sent     []*types.Transaction
	head     uint64
	minedAt  uint64
	reverted bool
	notFound int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:       t,
		abis:    []abi.ABI{mustABI(t, relayevm.ERC20ABI), mustABI(t, relayevm.EIP5267DomainABI)},
		outputs: make(map[string][]interface{}),
		head:    100,
		minedAt: 100,
	}
}

func (b *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callErr != nil {
		return nil, b.callErr
	}
	for _, parsed := range b.abis {
		for name, method := range parsed.Methods {
			if bytes.Equal(method.ID, msg.Data[:4]) {
				return method.Outputs.Pack(b.outputs[name]...)
			}
		}
	}
	b.t.Fatalf("unexpected call data %x", msg.Data)
	return nil, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (b *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(int64(b.head)), BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 50_000, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notFound > 0 {
		b.notFound--
		return nil, ethereum.NotFound
	}
	status := types.ReceiptStatusSuccessful
	if b.reverted {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, TxHash: txHash, BlockNumber: new(big.Int).SetUint64(b.minedAt)}, nil
}

// BlockNumber advances the head by one block per call
func (b *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	head := b.head
	b.head++
	return head, nil
}

func newTestChainClient(t *testing.T, backend *fakeBackend) (*ChainClient, *ClientSigner) {
	signer, err := NewClientSignerFromPrivateKey(testPrivateKey)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	client := NewChainClient(backend, signer, big.NewInt(11155111),
		WithPollInterval(time.Millisecond),
		WithLogger(quiet),
	)
	return client, signer
}

func TestChainClientReads(t *testing.T) {
	backend := newFakeBackend(t)
	backend.outputs[relayevm.FunctionDecimals] = []interface{}{uint8(6)}
	backend.outputs[relayevm.FunctionAllowance] = []interface{}{big.NewInt(5000000)}
	backend.outputs[relayevm.FunctionBalanceOf] = []interface{}{big.NewInt(20000000)}
	backend.outputs[relayevm.FunctionEIP712Domain] = []interface{}{
		[1]byte{0x0f},
		"Wrapped Token",
		"1",
		big.NewInt(11155111),
		common.HexToAddress(testToken),
		[32]byte{},
		[]*big.Int{},
	}
	client, signer := newTestChainClient(t, backend)
	ctx := context.Background()

	decimals, err := client.Precision(ctx, testReserve)
	if err != nil || decimals != 6 {
		t.Errorf("Expected 6 decimals, got %d (%v)", decimals, err)
	}

	allowance, err := client.Allowance(ctx, testReserve, signer.Address(), testVault)
	if err != nil || allowance.Cmp(big.NewInt(5000000)) != 0 {
		t.Errorf("Expected allowance 5000000, got %v (%v)", allowance, err)
	}

	balance, err := client.Balance(ctx, testToken, signer.Address())
	if err != nil || balance.Cmp(big.NewInt(20000000)) != 0 {
		t.Errorf("Expected balance 20000000, got %v (%v)", balance, err)
	}

	domain, err := client.DomainParams(ctx, testToken)
	if err != nil {
		t.Fatalf("DomainParams failed: %v", err)
	}
	if domain.Name != "Wrapped Token" || domain.Version != "1" {
		t.Errorf("Unexpected domain %+v", domain)
	}
	if domain.ChainID.Cmp(big.NewInt(11155111)) != 0 {
		t.Errorf("Expected chain id 11155111, got %s", domain.ChainID)
	}
	if domain.VerifyingContract != testToken {
		t.Errorf("Expected verifying contract %s, got %s", testToken, domain.VerifyingContract)
	}

	backend.callErr = errors.New("execution reverted")
	if _, err := client.Precision(ctx, testReserve); err == nil {
		t.Error("Expected read error")
	}
}

func TestChainClientSubmitTransaction(t *testing.T) {
	backend := newFakeBackend(t)
	client, signer := newTestChainClient(t, backend)

	txHash, err := client.SubmitTransaction(context.Background(), relaypay.ContractCall{
		Contract: testReserve,
		ABI:      relayevm.ERC20ABI,
		Method:   relayevm.FunctionApprove,
		Args:     []interface{}{testVault, big.NewInt(10000000)},
	})
	if err != nil {
		t.Fatalf("SubmitTransaction failed: %v", err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("Expected 1 sent transaction, got %d", len(backend.sent))
	}

	tx := backend.sent[0]
	if tx.Hash().Hex() != txHash {
		t.Errorf("Expected hash %s, got %s", tx.Hash().Hex(), txHash)
	}
	if *tx.To() != common.HexToAddress(testReserve) {
		t.Errorf("Expected tx to reserve, got %s", tx.To().Hex())
	}
	if tx.Nonce() != 7 || tx.Gas() != 50000 {
		t.Errorf("Unexpected nonce/gas %d/%d", tx.Nonce(), tx.Gas())
	}
	if tx.GasFeeCap().Cmp(big.NewInt(21_000_000_000)) != 0 {
		t.Errorf("Expected fee cap tip + 2*base, got %s", tx.GasFeeCap())
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155111)), tx)
	if err != nil {
		t.Fatalf("Failed to recover sender: %v", err)
	}
	if sender.Hex() != signer.Address() {
		t.Errorf("Expected sender %s, got %s", signer.Address(), sender.Hex())
	}

	erc20 := mustABI(t, relayevm.ERC20ABI)
	args, err := erc20.Methods[relayevm.FunctionApprove].Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		t.Fatalf("Failed to unpack approve args: %v", err)
	}
	if args[0].(common.Address) != common.HexToAddress(testVault) {
		t.Errorf("Expected spender %s, got %v", testVault, args[0])
	}
	if args[1].(*big.Int).Cmp(big.NewInt(10000000)) != 0 {
		t.Errorf("Expected amount 10000000, got %v", args[1])
	}
}

func TestChainClientSubmitTransactionErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Invalid address argument", func(t *testing.T) {
		client, _ := newTestChainClient(t, newFakeBackend(t))
		_, err := client.SubmitTransaction(ctx, relaypay.ContractCall{
			Contract: testReserve,
			ABI:      relayevm.ERC20ABI,
			Method:   relayevm.FunctionApprove,
			Args:     []interface{}{"vault", big.NewInt(1)},
		})
		if err == nil {
			t.Error("Expected error for invalid address")
		}
	})

	t.Run("Unknown method", func(t *testing.T) {
		client, _ := newTestChainClient(t, newFakeBackend(t))
		_, err := client.SubmitTransaction(ctx, relaypay.ContractCall{
			Contract: testVault,
			ABI:      relayevm.VaultABI,
			Method:   "withdrawAll",
		})
		if err == nil {
			t.Error("Expected error for unknown method")
		}
	})

	t.Run("Read-only client", func(t *testing.T) {
		client := NewChainClient(newFakeBackend(t), nil, big.NewInt(1))
		_, err := client.SubmitTransaction(ctx, relaypay.ContractCall{})
		if !errors.Is(err, relaypay.ErrNotReady) {
			t.Errorf("Expected not ready, got %v", err)
		}
	})

	t.Run("Send failure is classified", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.sendErr = errors.New("insufficient funds for gas * price + value")
		client, _ := newTestChainClient(t, backend)
		_, err := client.SubmitTransaction(ctx, relaypay.ContractCall{
			Contract: testVault,
			ABI:      relayevm.VaultABI,
			Method:   relayevm.FunctionMint,
			Args:     []interface{}{big.NewInt(1)},
		})
		if !errors.Is(err, relaypay.ErrTransactionFailed) {
			t.Errorf("Expected transaction failure, got %v", err)
		}
		if relaypay.MessageOf(err) != "insufficient ETH to pay gas fees" {
			t.Errorf("Unexpected message %q", relaypay.MessageOf(err))
		}
	})
}

func TestChainClientAwaitConfirmations(t *testing.T) {
	backend := newFakeBackend(t)
	backend.notFound = 2
	client, _ := newTestChainClient(t, backend)
	hash := common.HexToHash("0x01").Hex()

	receipt, err := client.AwaitConfirmations(context.Background(), hash, 3)
	if err != nil {
		t.Fatalf("AwaitConfirmations failed: %v", err)
	}
	if receipt.Status != relayevm.TxStatusSuccess {
		t.Errorf("Expected success status, got %d", receipt.Status)
	}
	if receipt.Confirmations < 3 {
		t.Errorf("Expected at least 3 confirmations, got %d", receipt.Confirmations)
	}
	if receipt.BlockNumber != 100 {
		t.Errorf("Expected block 100, got %d", receipt.BlockNumber)
	}

	backend.reverted = true
	receipt, err = client.AwaitConfirmations(context.Background(), hash, 1)
	if err != nil {
		t.Fatalf("AwaitConfirmations failed: %v", err)
	}
	if receipt.Status != relayevm.TxStatusFailed {
		t.Errorf("Expected failed status, got %d", receipt.Status)
	}
}

func TestChainClientAwaitConfirmationsCancelled(t *testing.T) {
	backend := newFakeBackend(t)
	backend.notFound = 1 << 30
	client, _ := newTestChainClient(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.AwaitConfirmations(ctx, common.HexToHash("0x01").Hex(), 1)
	if !errors.Is(err, relaypay.ErrTransactionFailed) {
		t.Errorf("Expected timeout failure, got %v", err)
	}
}
