package relaypay_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relaypay "github.com/reserve-vault/relaypay/go"
	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

func TestRedeem(t *testing.T) {
	f := newFixture(t)
	engine := relaypay.NewRedeemEngine(f.chain, f.owner, testContracts, relaypay.WithLogger(quietLogger()))
	ctx := context.Background()

	err := engine.Redeem(ctx, "30", "20")
	assert.ErrorIs(t, err, relaypay.ErrInsufficientBalance)
	assert.ErrorIs(t, engine.Redeem(ctx, "-5", ""), relaypay.ErrInvalidInput)
	assert.Equal(t, 0, f.chain.Calls())

	require.NoError(t, engine.Redeem(ctx, "5.5", "20"))
	submitted := f.chain.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, vaultAddress, submitted[0].Contract)
	assert.Equal(t, evm.FunctionBurnAndWithdraw, submitted[0].Method)
	assert.Equal(t, "5500000", submitted[0].Args[0].(*big.Int).String())
	assert.Equal(t, []uint64{evm.RedeemConfirmations}, f.chain.Confirmations())

	f.chain.ConfirmErr = assert.AnError
	assert.ErrorIs(t, engine.Redeem(ctx, "1", ""), relaypay.ErrTransactionFailed)
}

func TestDirectTransfer(t *testing.T) {
	f := newFixture(t)
	f.chain.SetBalance(tokenAddress, f.owner, units(20))
	engine := relaypay.NewTransferEngine(f.chain, f.owner, tokenAddress, relaypay.WithLogger(quietLogger()))
	ctx := context.Background()

	_, err := engine.Transfer(ctx, "not-an-address", "1", "")
	assert.ErrorIs(t, err, relaypay.ErrInvalidAddress)
	_, err = engine.Transfer(ctx, recipientAddress, "21", "20")
	assert.ErrorIs(t, err, relaypay.ErrInsufficientBalance)
	assert.Equal(t, 0, f.chain.Calls())

	txHash, err := engine.Transfer(ctx, recipientAddress, "5", "20")
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)

	tracker := relaypay.NewBalanceTracker(f.chain, tokenAddress, f.owner, relaypay.WithLogger(quietLogger()))
	require.NoError(t, tracker.Refresh(ctx))
	assert.Equal(t, "15", tracker.KnownBalance())

	recipient := relaypay.NewBalanceTracker(f.chain, tokenAddress, recipientAddress, relaypay.WithLogger(quietLogger()))
	require.NoError(t, recipient.Refresh(ctx))
	assert.Equal(t, "5", recipient.KnownBalance())
}

func TestBalanceTracker(t *testing.T) {
	f := newFixture(t)
	f.chain.SetBalance(tokenAddress, f.owner, big.NewInt(12345678))
	tracker := relaypay.NewBalanceTracker(f.chain, tokenAddress, f.owner, relaypay.WithLogger(quietLogger()))

	assert.Equal(t, "", tracker.KnownBalance())

	require.NoError(t, tracker.Refresh(context.Background()))
	assert.Equal(t, "12.345678", tracker.KnownBalance())

	raw, decimals := tracker.Raw()
	assert.Equal(t, "12345678", raw.String())
	assert.Equal(t, 6, decimals)

	f.chain.SetDecimals(tokenAddress, 2)
	require.NoError(t, tracker.Refresh(context.Background()))
	assert.Equal(t, "123456.78", tracker.KnownBalance())

	missing := relaypay.NewBalanceTracker(nil, tokenAddress, f.owner)
	assert.ErrorIs(t, missing.Refresh(context.Background()), relaypay.ErrNotReady)
}
