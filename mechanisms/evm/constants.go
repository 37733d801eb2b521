package evm

import (
	"math/big"
)

const (
	// Default token decimals when the contract cannot be queried
	DefaultDecimals = 6

	// AuthorizationValidity is the fixed width of the validAfter/validBefore window
	AuthorizationValidity = 900 // seconds

	// EIP-3009 primary type
	PrimaryTypeTransferWithAuthorization = "TransferWithAuthorization"

	// ERC-20 function names
	FunctionDecimals  = "decimals"
	FunctionBalanceOf = "balanceOf"
	FunctionAllowance = "allowance"
	FunctionApprove   = "approve"
	FunctionTransfer  = "transfer"

	// EIP-5267 domain introspection
	FunctionEIP712Domain = "eip712Domain"

	// Vault function names
	FunctionMint            = "mint"
	FunctionBurnAndWithdraw = "burnAndWithdraw"

	// Transaction status
	TxStatusSuccess = 1
	TxStatusFailed  = 0

	// Confirmation depths
	ResetApprovalConfirmations = 1
	ApprovalConfirmations      = 2
	MintConfirmations          = 2
	RedeemConfirmations        = 2
	TransferConfirmations      = 2
)

var (
	// Network chain IDs
	ChainIDMainnet = big.NewInt(1)
	ChainIDSepolia = big.NewInt(11155111)

	// NetworkConfigs holds the deployed contract set per chain.
	// Token is the wrapped (EIP-3009) token, Reserve the asset it is minted
	// against and Vault the contract that mints and redeems.
	NetworkConfigs = map[string]NetworkConfig{
		"eip155:1": {
			ChainID: ChainIDMainnet,
			Contracts: ContractSet{
				Token:   "0xba08Bbc0ed9D61238353629d06d55F89bA9F0ba3",
				Reserve: "0xdAC17F958D2ee523a2206206994597C13D831ec7", // USDT
				Vault:   "0x09568402dF3D4b8233eCf00b70FA34823C57C9B5",
			},
		},
		"eip155:11155111": {
			ChainID: ChainIDSepolia,
			Contracts: ContractSet{
				Token:   "0xd6806a129E91077cCdbe055ec48b3FE3cdc9Ab5A",
				Reserve: "0x4920E3E1E7c4D13c01188CfC7723873eef6639Bc", // mock USDT
				Vault:   "0x7695b38d2A3308Cf45BFfdD8c297015F82708787",
			},
		},
	}

	// ERC20ABI covers the subset of ERC-20 used by the engines
	ERC20ABI = []byte(`[
		{
			"inputs": [],
			"name": "decimals",
			"outputs": [{"name": "", "type": "uint8"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [{"name": "account", "type": "address"}],
			"name": "balanceOf",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"name": "allowance",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"name": "approve",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "to", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"name": "transfer",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		}
	]`)

	// EIP5267DomainABI for reading the EIP-712 domain of a token
	EIP5267DomainABI = []byte(`[
		{
			"inputs": [],
			"name": "eip712Domain",
			"outputs": [
				{"name": "fields", "type": "bytes1"},
				{"name": "name", "type": "string"},
				{"name": "version", "type": "string"},
				{"name": "chainId", "type": "uint256"},
				{"name": "verifyingContract", "type": "address"},
				{"name": "salt", "type": "bytes32"},
				{"name": "extensions", "type": "uint256[]"}
			],
			"stateMutability": "view",
			"type": "function"
		}
	]`)

	// VaultABI for minting against the reserve and redeeming back
	VaultABI = []byte(`[
		{
			"inputs": [{"name": "amount", "type": "uint256"}],
			"name": "mint",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [{"name": "amount", "type": "uint256"}],
			"name": "burnAndWithdraw",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		}
	]`)

	// EIP712DomainTypes is the standard four-field EIP-712 domain
	EIP712DomainTypes = []TypedDataField{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}

	// TransferWithAuthorizationTypes defines the EIP-3009 message.
	// Field order MUST match the on-chain TRANSFER_WITH_AUTHORIZATION_TYPEHASH.
	TransferWithAuthorizationTypes = []TypedDataField{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	}
)

// GetTransferWithAuthorizationTypes returns the complete EIP-712 types map for
// EIP-3009 signing, including the EIP712Domain entry.
func GetTransferWithAuthorizationTypes() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"EIP712Domain":                       EIP712DomainTypes,
		PrimaryTypeTransferWithAuthorization: TransferWithAuthorizationTypes,
	}
}
