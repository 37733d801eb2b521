package relaypay_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relaypay "github.com/reserve-vault/relaypay/go"
	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

func TestRelayerResponseVerdict(t *testing.T) {
	var missing *relaypay.RelayerResponse
	assert.False(t, missing.IsValid())
	assert.False(t, missing.HasPayload())

	assert.True(t, (&relaypay.RelayerResponse{Success: true}).IsValid())
	assert.True(t, (&relaypay.RelayerResponse{Success: true, Data: map[string]interface{}{"isValid": true}}).IsValid())
	assert.False(t, (&relaypay.RelayerResponse{Success: true, Data: map[string]interface{}{"isValid": false}}).IsValid())
	assert.False(t, (&relaypay.RelayerResponse{Success: false, Data: map[string]interface{}{"isValid": true}}).IsValid())

	assert.False(t, (&relaypay.RelayerResponse{Success: false, Message: "busy"}).HasPayload())
	assert.True(t, (&relaypay.RelayerResponse{Data: map[string]interface{}{"reason": "x"}}).HasPayload())
}

func TestNewSettlementResult(t *testing.T) {
	result := relaypay.NewSettlementResult(map[string]interface{}{
		"transaction": "0x3",
		"txHash":      "0x2",
		"txReference": "0x1",
	})
	assert.Equal(t, "0x1", result.TxHash)

	result = relaypay.NewSettlementResult(map[string]interface{}{"transaction": "0x3", "txHash": ""})
	assert.Equal(t, "0x3", result.TxHash)

	result = relaypay.NewSettlementResult(nil)
	assert.Empty(t, result.TxHash)
}

func TestPaymentMessageRoundTrip(t *testing.T) {
	nonce, err := evm.CreateNonce()
	require.NoError(t, err)

	auth := &relaypay.TransferAuthorization{
		From:        "0x1234567890123456789012345678901234567890",
		To:          recipientAddress,
		Value:       big.NewInt(12000000),
		ValidAfter:  100,
		ValidBefore: 1000,
		Nonce:       evm.BytesToHex(nonce[:]),
	}

	request := auth.PaymentRequest()
	assert.Equal(t, "12000000", request.Message.Value)

	decoded, err := request.Message.Authorization()
	require.NoError(t, err)
	assert.Equal(t, nonce, decoded.Nonce)
	assert.Equal(t, 0, decoded.Value.Cmp(auth.Value))
	assert.Equal(t, int64(1000), decoded.ValidBefore)

	request.Message.Value = "12.5"
	_, err = request.Message.Authorization()
	assert.Error(t, err)
}
