package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferWithAuthorization represents the EIP-3009 TransferWithAuthorization data
type TransferWithAuthorization struct {
	From        string   // Ethereum address (hex)
	To          string   // Ethereum address (hex)
	Value       *big.Int // Amount in the token's smallest unit
	ValidAfter  int64    // Unix timestamp, inclusive
	ValidBefore int64    // Unix timestamp, exclusive
	Nonce       [32]byte // Random per authorization
}

// TypedMessage converts the authorization to the message map expected by
// EIP-712 hashing. Addresses are checksummed.
func (a TransferWithAuthorization) TypedMessage() map[string]interface{} {
	value := a.Value
	if value == nil {
		value = new(big.Int)
	}
	return map[string]interface{}{
		"from":        common.HexToAddress(a.From).Hex(),
		"to":          common.HexToAddress(a.To).Hex(),
		"value":       new(big.Int).Set(value),
		"validAfter":  big.NewInt(a.ValidAfter),
		"validBefore": big.NewInt(a.ValidBefore),
		"nonce":       a.Nonce[:],
	}
}

// Validate checks the structural invariants of an authorization
func (a TransferWithAuthorization) Validate() error {
	if !IsValidAddress(a.From) {
		return fmt.Errorf("invalid from address: %s", a.From)
	}
	if !IsValidAddress(a.To) {
		return fmt.Errorf("invalid to address: %s", a.To)
	}
	if a.Value == nil || a.Value.Sign() <= 0 {
		return fmt.Errorf("value must be positive")
	}
	if a.ValidAfter >= a.ValidBefore {
		return fmt.Errorf("validAfter (%d) must be before validBefore (%d)", a.ValidAfter, a.ValidBefore)
	}
	return nil
}

// TypedDataDomain represents the EIP-712 domain separator
type TypedDataDomain struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	ChainID           *big.Int `json:"chainId"`
	VerifyingContract string   `json:"verifyingContract"`
}

// TypedDataField represents a field in EIP-712 typed data
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TransactionReceipt represents the receipt of a mined transaction
type TransactionReceipt struct {
	Status        uint64 `json:"status"`
	BlockNumber   uint64 `json:"blockNumber"`
	TxHash        string `json:"transactionHash"`
	Confirmations uint64 `json:"confirmations"`
}

// Signature is a 65-byte secp256k1 signature split into its components
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// Bytes reassembles the signature as r || s || v
func (s Signature) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[0:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

// ContractSet is the deployed contract set for one chain
type ContractSet struct {
	Token   string
	Reserve string
	Vault   string
}

// NetworkConfig contains network-specific configuration
type NetworkConfig struct {
	ChainID   *big.Int
	Contracts ContractSet
}
