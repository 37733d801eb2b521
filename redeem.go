package relaypay

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// RedeemEngine burns the wrapped token and withdraws the reserve asset
type RedeemEngine struct {
	chain     ChainClient
	owner     string
	contracts evm.ContractSet
	logger    logrus.FieldLogger
}

// NewRedeemEngine creates a redeem engine acting for owner
func NewRedeemEngine(chain ChainClient, owner string, contracts evm.ContractSet, opts ...Option) *RedeemEngine {
	o := applyOptions(opts)
	return &RedeemEngine{
		chain:     chain,
		owner:     owner,
		contracts: contracts,
		logger:    o.logger.WithField("component", "redeem"),
	}
}

// Redeem burns amount of the wrapped token through the vault
func (e *RedeemEngine) Redeem(ctx context.Context, amount string, knownBalance string) error {
	d, err := parseAmount(amount)
	if err != nil {
		return err
	}
	balance, hasBalance, err := parseBalanceHint(knownBalance)
	if err != nil {
		return err
	}
	if hasBalance && d.GreaterThan(balance) {
		return NewProtocolError(ErrCodeInsufficientBalance, "insufficient balance", nil)
	}
	if e.chain == nil {
		return notReady("chain client")
	}
	if !evm.IsValidAddress(e.owner) {
		return notReady("wallet")
	}
	if !evm.IsValidAddress(e.contracts.Token) || !evm.IsValidAddress(e.contracts.Vault) {
		return notReady("contract")
	}

	log := e.logger.WithField("amount", d.String())

	decimals := resolvePrecision(ctx, e.chain, e.contracts.Token, log)
	value, err := toSmallestUnit(d, decimals)
	if err != nil {
		return err
	}

	call := ContractCall{
		Contract: e.contracts.Vault,
		ABI:      evm.VaultABI,
		Method:   evm.FunctionBurnAndWithdraw,
		Args:     []interface{}{value},
	}
	if _, err := submitAndConfirm(ctx, e.chain, call, evm.RedeemConfirmations, log); err != nil {
		return err
	}

	log.Info("redeem confirmed")
	return nil
}
