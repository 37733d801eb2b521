package relaypay

import (
	"context"
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// resolvePrecision reads the asset's decimals, falling back to the default
func resolvePrecision(ctx context.Context, chain ChainClient, asset string, logger logrus.FieldLogger) int {
	decimals, err := chain.Precision(ctx, asset)
	if err != nil || decimals < 0 {
		logger.WithError(err).WithField("asset", asset).
			Warnf("failed to read token decimals, using %d", evm.DefaultDecimals)
		return evm.DefaultDecimals
	}
	return decimals
}

// submitAndConfirm sends call and waits for the given confirmation depth
func submitAndConfirm(ctx context.Context, chain ChainClient, call ContractCall, confirmations uint64, logger logrus.FieldLogger) (*evm.TransactionReceipt, error) {
	log := logger.WithFields(logrus.Fields{
		"contract": call.Contract,
		"method":   call.Method,
	})

	txHash, err := chain.SubmitTransaction(ctx, call)
	if err != nil {
		log.WithError(err).Error("transaction submission failed")
		return nil, chainFailure(err, "transaction submission failed")
	}

	log = log.WithField("tx", txHash)
	log.Infof("transaction submitted, awaiting %d confirmation(s)", confirmations)

	receipt, err := chain.AwaitConfirmations(ctx, txHash, confirmations)
	if err != nil {
		log.WithError(err).Error("transaction confirmation failed")
		return nil, chainFailure(err, "transaction confirmation failed")
	}
	if receipt == nil {
		receipt = &evm.TransactionReceipt{Status: evm.TxStatusSuccess, TxHash: txHash}
	}
	if receipt.TxHash == "" {
		receipt.TxHash = txHash
	}
	if receipt.Status != evm.TxStatusSuccess {
		log.Error("transaction reverted")
		return nil, NewProtocolError(ErrCodeTransactionFailed, "transaction reverted", nil)
	}

	log.Info("transaction confirmed")
	return receipt, nil
}

// chainFailure keeps boundary classifications and maps anything else to TransactionFailed
func chainFailure(err error, message string) error {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	return NewProtocolError(ErrCodeTransactionFailed, message, err)
}

// parseAmount validates a user amount before any remote call
func parseAmount(amount string) (decimal.Decimal, error) {
	d, err := evm.ParsePositiveDecimal(amount)
	if err != nil {
		return decimal.Zero, NewProtocolError(ErrCodeInvalidInput, "please enter a valid amount greater than zero", err)
	}
	return d, nil
}

// parseBalanceHint parses an optional decimal balance hint; ok is false when absent
func parseBalanceHint(knownBalance string) (balance decimal.Decimal, ok bool, err error) {
	if knownBalance == "" {
		return decimal.Zero, false, nil
	}
	d, err := evm.ParseDecimal(knownBalance)
	if err != nil {
		return decimal.Zero, false, NewProtocolError(ErrCodeInvalidInput, "invalid balance", err)
	}
	return d, true, nil
}

// toSmallestUnit converts d at the given precision, as InvalidInput on excess precision
func toSmallestUnit(d decimal.Decimal, decimals int) (*big.Int, error) {
	value, err := evm.ToSmallestUnit(d, decimals)
	if err != nil {
		return nil, NewProtocolError(ErrCodeInvalidInput, "amount has too many decimal places", err)
	}
	return value, nil
}

func notReady(what string) error {
	return NewProtocolError(ErrCodeNotReady, what+" is not available", nil)
}
