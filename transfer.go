package relaypay

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// TransferEngine sends the wrapped token directly, with the holder paying gas
type TransferEngine struct {
	chain  ChainClient
	owner  string
	token  string
	logger logrus.FieldLogger
}

// NewTransferEngine creates a direct transfer engine acting for owner
func NewTransferEngine(chain ChainClient, owner, token string, opts ...Option) *TransferEngine {
	o := applyOptions(opts)
	return &TransferEngine{
		chain:  chain,
		owner:  owner,
		token:  token,
		logger: o.logger.WithField("component", "transfer"),
	}
}

// Transfer sends amount of the token to recipient and returns the tx hash
func (e *TransferEngine) Transfer(ctx context.Context, recipient, amount, knownBalance string) (string, error) {
	if !evm.IsValidAddress(recipient) {
		return "", NewProtocolError(ErrCodeInvalidAddress, "please enter a valid recipient address", nil)
	}
	d, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	balance, hasBalance, err := parseBalanceHint(knownBalance)
	if err != nil {
		return "", err
	}
	if hasBalance && d.GreaterThan(balance) {
		return "", NewProtocolError(ErrCodeInsufficientBalance, "insufficient balance", nil)
	}
	if e.chain == nil {
		return "", notReady("chain client")
	}
	if !evm.IsValidAddress(e.owner) {
		return "", notReady("wallet")
	}
	if !evm.IsValidAddress(e.token) {
		return "", notReady("token contract")
	}

	log := e.logger.WithFields(logrus.Fields{
		"recipient": recipient,
		"amount":    d.String(),
	})

	decimals := resolvePrecision(ctx, e.chain, e.token, log)
	value, err := toSmallestUnit(d, decimals)
	if err != nil {
		return "", err
	}

	call := ContractCall{
		Contract: e.token,
		ABI:      evm.ERC20ABI,
		Method:   evm.FunctionTransfer,
		Args:     []interface{}{recipient, value},
	}
	receipt, err := submitAndConfirm(ctx, e.chain, call, evm.TransferConfirmations, log)
	if err != nil {
		return "", err
	}

	log.Info("transfer confirmed")
	return receipt.TxHash, nil
}
