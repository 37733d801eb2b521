package evm

import (
	"context"
	"errors"
	"strings"

	relaypay "github.com/reserve-vault/relaypay/go"
)

// chainErrorRule maps a lower-cased message fragment to a classified error
type chainErrorRule struct {
	patterns []string
	code     relaypay.ErrorCode
	message  string
}

// chainErrorRules are checked in order; the first match wins
var chainErrorRules = []chainErrorRule{
	{[]string{"user rejected", "user denied"}, relaypay.ErrCodeUserRejected, "transaction was rejected"},
	{[]string{"insufficient funds for gas"}, relaypay.ErrCodeTransactionFailed, "insufficient ETH to pay gas fees"},
	{[]string{"insufficient", "balance"}, relaypay.ErrCodeInsufficientBalance, "insufficient token balance"},
	{[]string{"notallowedtoburn"}, relaypay.ErrCodeTransactionFailed, "this account is not allowed to redeem"},
	{[]string{"nonce"}, relaypay.ErrCodeTransactionFailed, "transaction nonce error, please try again"},
	{[]string{"timeout", "timed out", "deadline exceeded"}, relaypay.ErrCodeTransactionFailed, "transaction timed out, please try again later"},
	{[]string{"network", "connection"}, relaypay.ErrCodeTransientNetwork, "network connection error, please check your connection"},
}

// ClassifyChainError converts a raw RPC or transaction error into a
// *relaypay.ProtocolError with a stable message. fallback is used when no
// rule matches.
func ClassifyChainError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var pe *relaypay.ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return relaypay.NewProtocolError(relaypay.ErrCodeTransactionFailed, "transaction timed out, please try again later", err)
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range chainErrorRules {
		for _, p := range rule.patterns {
			if strings.Contains(msg, p) {
				return relaypay.NewProtocolError(rule.code, rule.message, err)
			}
		}
	}
	return relaypay.NewProtocolError(relaypay.ErrCodeTransactionFailed, fallback, err)
}
