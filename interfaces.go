package relaypay

import (
	"context"
	"math/big"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// ============================================================================
// Collaborator Interfaces
// ============================================================================

// ChainClient gives read/write access to the remote ledger.
// Implementations classify raw failures into *ProtocolError at the boundary.
type ChainClient interface {
	// Precision returns the token's decimals
	Precision(ctx context.Context, asset string) (int, error)

	// Allowance returns how much spender may move from owner's balance of asset
	Allowance(ctx context.Context, asset string, owner string, spender string) (*big.Int, error)

	// Balance returns owner's balance of asset in the smallest unit
	Balance(ctx context.Context, asset string, owner string) (*big.Int, error)

	// DomainParams returns the EIP-712 domain of asset (EIP-5267)
	DomainParams(ctx context.Context, asset string) (evm.TypedDataDomain, error)

	// SubmitTransaction signs and broadcasts a contract call, returning its hash
	SubmitTransaction(ctx context.Context, call ContractCall) (string, error)

	// AwaitConfirmations blocks until txHash has n confirmations.
	// A mined-but-reverted transaction is reported as an error.
	AwaitConfirmations(ctx context.Context, txHash string, n uint64) (*evm.TransactionReceipt, error)
}

// Signer holds a key and produces EIP-712 signatures
type Signer interface {
	// Address returns the signer's Ethereum address
	Address() string

	// SignTypedData signs EIP-712 typed data, returning a 65-byte r || s || v signature
	SignTypedData(ctx context.Context, domain evm.TypedDataDomain, types map[string][]evm.TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error)
}

// RelayerClient talks to the relayer that verifies and settles authorizations.
//
// A returned error means the exchange itself failed (transport, non-2xx) and
// may be retried. A response with Success=false is the relayer's verdict.
type RelayerClient interface {
	Verify(ctx context.Context, request PaymentRequest) (*RelayerResponse, error)
	Settle(ctx context.Context, request PaymentRequest) (*RelayerResponse, error)
}

// ContractCall describes one state-changing contract invocation
type ContractCall struct {
	Contract string        // contract address
	ABI      []byte        // JSON ABI containing Method
	Method   string        // function name
	Args     []interface{} // ABI-typed arguments
}
