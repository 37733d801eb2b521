package relaypay

import (
	"fmt"
	"math/big"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// TransferAuthorization is a signed EIP-3009 authorization, ready for the relayer
type TransferAuthorization struct {
	Domain      evm.TypedDataDomain `json:"domain"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Value       *big.Int            `json:"value"`
	ValidAfter  int64               `json:"validAfter"`
	ValidBefore int64               `json:"validBefore"`
	Nonce       string              `json:"nonce"`     // 0x-prefixed 32 bytes
	Signature   string              `json:"signature"` // 0x-prefixed 65 bytes
	V           uint8               `json:"v"`
	R           string              `json:"r"`
	S           string              `json:"s"`
}

// PaymentRequest converts the authorization into the relayer request body
func (a *TransferAuthorization) PaymentRequest() PaymentRequest {
	value := "0"
	if a.Value != nil {
		value = a.Value.String()
	}
	return PaymentRequest{
		Domain: a.Domain,
		Message: PaymentMessage{
			From:        a.From,
			To:          a.To,
			Value:       value,
			ValidAfter:  a.ValidAfter,
			ValidBefore: a.ValidBefore,
			Nonce:       a.Nonce,
			Signature:   a.Signature,
			V:           a.V,
			R:           a.R,
			S:           a.S,
		},
	}
}

// PaymentRequest is the body of POST /payment/verify and /payment/settle
type PaymentRequest struct {
	Domain  evm.TypedDataDomain `json:"domain"`
	Message PaymentMessage      `json:"message"`
}

// PaymentMessage is the authorization as sent over the wire
type PaymentMessage struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  int64  `json:"validAfter"`
	ValidBefore int64  `json:"validBefore"`
	Nonce       string `json:"nonce"`
	Signature   string `json:"signature"`
	V           uint8  `json:"v"`
	R           string `json:"r"`
	S           string `json:"s"`
}

// Authorization decodes the message back into its typed form
func (m PaymentMessage) Authorization() (evm.TransferWithAuthorization, error) {
	value, ok := new(big.Int).SetString(m.Value, 10)
	if !ok {
		return evm.TransferWithAuthorization{}, fmt.Errorf("invalid value: %s", m.Value)
	}
	nonce, err := evm.HexToBytes32(m.Nonce)
	if err != nil {
		return evm.TransferWithAuthorization{}, fmt.Errorf("invalid nonce: %w", err)
	}
	return evm.TransferWithAuthorization{
		From:        m.From,
		To:          m.To,
		Value:       value,
		ValidAfter:  m.ValidAfter,
		ValidBefore: m.ValidBefore,
		Nonce:       nonce,
	}, nil
}

// RelayerResponse is the relayer's answer to verify or settle
type RelayerResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// IsValid reports the verify verdict. A missing data.isValid counts as valid.
func (r *RelayerResponse) IsValid() bool {
	if r == nil || !r.Success {
		return false
	}
	if v, ok := r.Data["isValid"].(bool); ok {
		return v
	}
	return true
}

// HasPayload reports whether the relayer returned a definitive body
func (r *RelayerResponse) HasPayload() bool {
	return r != nil && len(r.Data) > 0
}

// SettlementResult is the data returned by a successful settle
type SettlementResult struct {
	TxHash string                 `json:"txHash,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// txReferenceKeys are the payload keys that may carry the transaction hash, by precedence
var txReferenceKeys = []string{"txReference", "txHash", "transaction"}

// NewSettlementResult extracts the transaction reference from a settle payload
func NewSettlementResult(data map[string]interface{}) *SettlementResult {
	result := &SettlementResult{Data: data}
	for _, key := range txReferenceKeys {
		if s, ok := data[key].(string); ok && s != "" {
			result.TxHash = s
			break
		}
	}
	return result
}

// AttemptOutcome classifies one settle attempt
type AttemptOutcome string

const (
	OutcomeSuccess          AttemptOutcome = "success"
	OutcomeBusinessRejected AttemptOutcome = "business_rejected"
	OutcomeTransientError   AttemptOutcome = "transient_error"
)

// SettlementAttempt records one try of the settle exchange
type SettlementAttempt struct {
	Number   int
	Outcome  AttemptOutcome
	Response *RelayerResponse
	Err      error
}
