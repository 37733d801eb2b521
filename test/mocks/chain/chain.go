package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	relaypay "github.com/reserve-vault/relaypay/go"
	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// ============================================================================
// In-memory Chain Client
// ============================================================================

// Client is an in-memory relaypay.ChainClient. It applies approve and
// transfer calls to its own ledger and records every call it receives.
type Client struct {
	mu sync.Mutex

	// owner is the account whose transactions are applied to the ledger
	owner string

	decimals   map[string]int
	allowances map[string]*big.Int
	balances   map[string]*big.Int
	domains    map[string]evm.TypedDataDomain

	// Failure injection
	PrecisionErr error
	AllowanceErr error
	DomainErr    error
	SubmitErr    error
	ConfirmErr   error
	Revert       bool

	// OnAllowanceRead runs after the n-th allowance read (1-based), before the
	// value is returned, and may mutate the ledger.
	OnAllowanceRead func(c *Client, n int)

	calls          int
	allowanceReads int
	submitted      []relaypay.ContractCall
	confirmations  []uint64
}

// NewClient creates an empty ledger whose submitted transactions come from owner
func NewClient(owner string) *Client {
	return &Client{
		owner:      owner,
		decimals:   make(map[string]int),
		allowances: make(map[string]*big.Int),
		balances:   make(map[string]*big.Int),
		domains:    make(map[string]evm.TypedDataDomain),
	}
}

func key(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "|")
}

// SetDecimals sets the precision reported for asset
func (c *Client) SetDecimals(asset string, decimals int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decimals[key(asset)] = decimals
}

// SetAllowance sets how much spender may move from owner's asset balance
func (c *Client) SetAllowance(asset, owner, spender string, value *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowances[key(asset, owner, spender)] = new(big.Int).Set(value)
}

// SetBalance sets owner's balance of asset
func (c *Client) SetBalance(asset, owner string, value *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[key(asset, owner)] = new(big.Int).Set(value)
}

// SetDomain sets the EIP-712 domain reported for asset
func (c *Client) SetDomain(asset string, domain evm.TypedDataDomain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.domains[key(asset)] = domain
}

// AllowanceOf returns the current allowance without counting as a call
func (c *Client) AllowanceOf(asset, owner, spender string) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowance(asset, owner, spender)
}

// Calls returns the number of remote calls made, reads included
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Submitted returns the submitted contract calls in order
func (c *Client) Submitted() []relaypay.ContractCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]relaypay.ContractCall, len(c.submitted))
	copy(out, c.submitted)
	return out
}

// Confirmations returns the confirmation depth requested for each awaited tx
func (c *Client) Confirmations() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, len(c.confirmations))
	copy(out, c.confirmations)
	return out
}

// ============================================================================
// relaypay.ChainClient
// ============================================================================

// Precision implements relaypay.ChainClient
func (c *Client) Precision(ctx context.Context, asset string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.PrecisionErr != nil {
		return 0, c.PrecisionErr
	}
	if d, ok := c.decimals[key(asset)]; ok {
		return d, nil
	}
	return evm.DefaultDecimals, nil
}

// Allowance implements relaypay.ChainClient
func (c *Client) Allowance(ctx context.Context, asset, owner, spender string) (*big.Int, error) {
	c.mu.Lock()
	c.calls++
	c.allowanceReads++
	n := c.allowanceReads
	hook := c.OnAllowanceRead
	if c.AllowanceErr != nil {
		err := c.AllowanceErr
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if hook != nil {
		hook(c, n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowance(asset, owner, spender), nil
}

// Balance implements relaypay.ChainClient
func (c *Client) Balance(ctx context.Context, asset, owner string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if b, ok := c.balances[key(asset, owner)]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// DomainParams implements relaypay.ChainClient
func (c *Client) DomainParams(ctx context.Context, asset string) (evm.TypedDataDomain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.DomainErr != nil {
		return evm.TypedDataDomain{}, c.DomainErr
	}
	if d, ok := c.domains[key(asset)]; ok {
		return d, nil
	}
	return evm.TypedDataDomain{}, fmt.Errorf("no domain for %s", asset)
}

// SubmitTransaction implements relaypay.ChainClient
func (c *Client) SubmitTransaction(ctx context.Context, call relaypay.ContractCall) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.SubmitErr != nil {
		return "", c.SubmitErr
	}
	c.submitted = append(c.submitted, call)
	c.apply(call)
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("tx-%d", len(c.submitted)))).Hex(), nil
}

// AwaitConfirmations implements relaypay.ChainClient
func (c *Client) AwaitConfirmations(ctx context.Context, txHash string, n uint64) (*evm.TransactionReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.confirmations = append(c.confirmations, n)
	if c.ConfirmErr != nil {
		return nil, c.ConfirmErr
	}
	status := uint64(evm.TxStatusSuccess)
	if c.Revert {
		status = evm.TxStatusFailed
	}
	return &evm.TransactionReceipt{
		Status:        status,
		BlockNumber:   uint64(len(c.submitted)),
		TxHash:        txHash,
		Confirmations: n,
	}, nil
}

func (c *Client) apply(call relaypay.ContractCall) {
	switch call.Method {
	case evm.FunctionApprove:
		spender, _ := call.Args[0].(string)
		value, _ := call.Args[1].(*big.Int)
		c.allowances[key(call.Contract, c.owner, spender)] = new(big.Int).Set(value)
	case evm.FunctionTransfer:
		to, _ := call.Args[0].(string)
		value, _ := call.Args[1].(*big.Int)
		from := key(call.Contract, c.owner)
		if b, ok := c.balances[from]; ok {
			c.balances[from] = new(big.Int).Sub(b, value)
		}
		dest := key(call.Contract, to)
		prev := c.balances[dest]
		if prev == nil {
			prev = new(big.Int)
		}
		c.balances[dest] = new(big.Int).Add(prev, value)
	}
}

func (c *Client) allowance(asset, owner, spender string) *big.Int {
	if a, ok := c.allowances[key(asset, owner, spender)]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}
