package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	relaypay "github.com/reserve-vault/relaypay/go"
	relayevm "github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// Backend is the subset of *ethclient.Client used by ChainClient
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// DefaultPollInterval is how often AwaitConfirmations checks the chain
const DefaultPollInterval = 2 * time.Second

// ChainClient implements relaypay.ChainClient over a JSON-RPC backend,
// signing transactions with the ClientSigner's key.
type ChainClient struct {
	backend      Backend
	signer       *ClientSigner
	chainID      *big.Int
	pollInterval time.Duration
	logger       logrus.FieldLogger
}

// ChainOption configures a ChainClient
type ChainOption func(*ChainClient)

// WithPollInterval sets the receipt polling interval
func WithPollInterval(d time.Duration) ChainOption {
	return func(c *ChainClient) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) ChainOption {
	return func(c *ChainClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChainClient creates a chain client. signer may be nil for read-only use.
func NewChainClient(backend Backend, signer *ClientSigner, chainID *big.Int, opts ...ChainOption) *ChainClient {
	c := &ChainClient{
		backend:      backend,
		signer:       signer,
		chainID:      chainID,
		pollInterval: DefaultPollInterval,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "chain")
	return c
}

// ============================================================================
// Reads
// ============================================================================

// Precision implements relaypay.ChainClient
func (c *ChainClient) Precision(ctx context.Context, asset string) (int, error) {
	out, err := c.call(ctx, asset, relayevm.ERC20ABI, relayevm.FunctionDecimals)
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", out[0])
	}
	return int(decimals), nil
}

// Allowance implements relaypay.ChainClient
func (c *ChainClient) Allowance(ctx context.Context, asset, owner, spender string) (*big.Int, error) {
	out, err := c.call(ctx, asset, relayevm.ERC20ABI, relayevm.FunctionAllowance,
		common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, err
	}
	return asBigInt(out[0])
}

// Balance implements relaypay.ChainClient
func (c *ChainClient) Balance(ctx context.Context, asset, owner string) (*big.Int, error) {
	out, err := c.call(ctx, asset, relayevm.ERC20ABI, relayevm.FunctionBalanceOf, common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	return asBigInt(out[0])
}

// DomainParams implements relaypay.ChainClient using EIP-5267
func (c *ChainClient) DomainParams(ctx context.Context, asset string) (relayevm.TypedDataDomain, error) {
	out, err := c.call(ctx, asset, relayevm.EIP5267DomainABI, relayevm.FunctionEIP712Domain)
	if err != nil {
		return relayevm.TypedDataDomain{}, err
	}
	if len(out) < 5 {
		return relayevm.TypedDataDomain{}, fmt.Errorf("unexpected eip712Domain output length %d", len(out))
	}

	name, _ := out[1].(string)
	version, _ := out[2].(string)
	chainID, err := asBigInt(out[3])
	if err != nil {
		return relayevm.TypedDataDomain{}, err
	}
	verifyingContract, ok := out[4].(common.Address)
	if !ok {
		return relayevm.TypedDataDomain{}, fmt.Errorf("unexpected verifyingContract type %T", out[4])
	}

	return relayevm.TypedDataDomain{
		Name:              name,
		Version:           version,
		ChainID:           chainID,
		VerifyingContract: verifyingContract.Hex(),
	}, nil
}

func (c *ChainClient) call(ctx context.Context, contract string, abiBytes []byte, method string, args ...interface{}) ([]interface{}, error) {
	contractABI, err := abi.JSON(strings.NewReader(string(abiBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	addr := common.HexToAddress(contract)
	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	outputs, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return outputs, nil
}

// ============================================================================
// Writes
// ============================================================================

// SubmitTransaction implements relaypay.ChainClient. The call is signed as
// an EIP-1559 transaction from the signer's address.
func (c *ChainClient) SubmitTransaction(ctx context.Context, call relaypay.ContractCall) (string, error) {
	if c.signer == nil {
		return "", relaypay.NewProtocolError(relaypay.ErrCodeNotReady, "wallet is not available", nil)
	}

	contractABI, err := abi.JSON(strings.NewReader(string(call.ABI)))
	if err != nil {
		return "", fmt.Errorf("failed to parse ABI: %w", err)
	}
	method, ok := contractABI.Methods[call.Method]
	if !ok {
		return "", fmt.Errorf("method %s not found in ABI", call.Method)
	}
	args, err := convertArgs(method.Inputs, call.Args)
	if err != nil {
		return "", err
	}
	data, err := contractABI.Pack(call.Method, args...)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s: %w", call.Method, err)
	}

	to := common.HexToAddress(call.Contract)
	from := c.signer.address

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return "", ClassifyChainError(err, "failed to read account nonce")
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return "", ClassifyChainError(err, "failed to estimate gas price")
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", ClassifyChainError(err, "failed to read latest block")
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      from,
		To:        &to,
		GasFeeCap: feeCap,
		GasTipCap: tip,
		Data:      data,
	})
	if err != nil {
		return "", ClassifyChainError(err, "transaction would fail")
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.signer.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", ClassifyChainError(err, "failed to send transaction")
	}

	c.logger.WithFields(logrus.Fields{
		"tx":     signed.Hash().Hex(),
		"method": call.Method,
		"nonce":  nonce,
	}).Debug("transaction sent")
	return signed.Hash().Hex(), nil
}

// AwaitConfirmations implements relaypay.ChainClient. It polls until the
// receipt is n blocks deep or ctx is done.
func (c *ChainClient) AwaitConfirmations(ctx context.Context, txHash string, n uint64) (*relayevm.TransactionReceipt, error) {
	if n == 0 {
		n = 1
	}
	hash := common.HexToHash(txHash)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case errors.Is(err, ethereum.NotFound):
		case err != nil:
			return nil, ClassifyChainError(err, "failed to read transaction receipt")
		default:
			head, err := c.backend.BlockNumber(ctx)
			if err != nil {
				return nil, ClassifyChainError(err, "failed to read block number")
			}
			mined := receipt.BlockNumber.Uint64()
			var depth uint64
			if head >= mined {
				depth = head - mined + 1
			}
			if depth >= n {
				return &relayevm.TransactionReceipt{
					Status:        receipt.Status,
					BlockNumber:   mined,
					TxHash:        receipt.TxHash.Hex(),
					Confirmations: depth,
				}, nil
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ClassifyChainError(ctx.Err(), "transaction confirmation was cancelled")
		}
	}
}

// convertArgs turns string addresses into common.Address where the ABI expects one
func convertArgs(inputs abi.Arguments, args []interface{}) ([]interface{}, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args))
	}
	out := make([]interface{}, len(args))
	for i, arg := range args {
		if inputs[i].Type.T == abi.AddressTy {
			if s, ok := arg.(string); ok {
				if !relayevm.IsValidAddress(s) {
					return nil, fmt.Errorf("invalid address argument %q", s)
				}
				out[i] = common.HexToAddress(s)
				continue
			}
		}
		out[i] = arg
	}
	return out, nil
}

func asBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case uint8:
		return big.NewInt(int64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	}
	return nil, fmt.Errorf("unexpected numeric type %T", v)
}
