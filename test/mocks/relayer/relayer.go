package relayer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	relaypay "github.com/reserve-vault/relaypay/go"
	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// Outcome is one scripted relayer answer. Err set means a transport failure.
type Outcome struct {
	Response *relaypay.RelayerResponse
	Err      error
}

// Succeed returns a success outcome carrying data
func Succeed(data map[string]interface{}) Outcome {
	return Outcome{Response: &relaypay.RelayerResponse{Success: true, Data: data}}
}

// Reject returns a definitive business rejection
func Reject(message string, data map[string]interface{}) Outcome {
	if data == nil {
		data = map[string]interface{}{"reason": message}
	}
	return Outcome{Response: &relaypay.RelayerResponse{Success: false, Message: message, Data: data}}
}

// Unavailable returns a failure without a payload
func Unavailable(message string) Outcome {
	return Outcome{Response: &relaypay.RelayerResponse{Success: false, Message: message}}
}

// Transient returns a transport failure
func Transient(err error) Outcome {
	if err == nil {
		err = errors.New("connection reset by peer")
	}
	return Outcome{Err: err}
}

// ============================================================================
// Relayer
// ============================================================================

// Relayer is an in-memory relaypay.RelayerClient. Queued outcomes are served
// first; once the queue is empty it verifies the authorization for real
// (signature, validity window, nonce) and settles it once per nonce.
type Relayer struct {
	mu sync.Mutex

	verifyQueue []Outcome
	settleQueue []Outcome

	verifyCalls []relaypay.PaymentRequest
	settleCalls []relaypay.PaymentRequest
	settleTimes []time.Time

	ledger *NonceLedger
	now    func() time.Time
}

// New creates a relayer with an empty nonce ledger
func New() *Relayer {
	return &Relayer{
		ledger: NewNonceLedger(),
		now:    time.Now,
	}
}

// QueueVerify appends scripted verify outcomes
func (r *Relayer) QueueVerify(outcomes ...Outcome) *Relayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifyQueue = append(r.verifyQueue, outcomes...)
	return r
}

// QueueSettle appends scripted settle outcomes
func (r *Relayer) QueueSettle(outcomes ...Outcome) *Relayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settleQueue = append(r.settleQueue, outcomes...)
	return r
}

// VerifyCalls returns the number of verify calls received
func (r *Relayer) VerifyCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.verifyCalls)
}

// SettleCalls returns the number of settle calls received
func (r *Relayer) SettleCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.settleCalls)
}

// SettleTimes returns when each settle call arrived
func (r *Relayer) SettleTimes() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Time, len(r.settleTimes))
	copy(out, r.settleTimes)
	return out
}

// LastSettleRequest returns the most recent settle request
func (r *Relayer) LastSettleRequest() (relaypay.PaymentRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.settleCalls) == 0 {
		return relaypay.PaymentRequest{}, false
	}
	return r.settleCalls[len(r.settleCalls)-1], true
}

// Verify implements relaypay.RelayerClient
func (r *Relayer) Verify(ctx context.Context, request relaypay.PaymentRequest) (*relaypay.RelayerResponse, error) {
	r.mu.Lock()
	r.verifyCalls = append(r.verifyCalls, request)
	if len(r.verifyQueue) > 0 {
		next := r.verifyQueue[0]
		r.verifyQueue = r.verifyQueue[1:]
		r.mu.Unlock()
		return next.Response, next.Err
	}
	r.mu.Unlock()

	if reason := r.check(request); reason != "" {
		return invalid(reason), nil
	}
	if r.ledger.Used(request.Message.Nonce) {
		return invalid("nonce_already_used"), nil
	}
	return &relaypay.RelayerResponse{
		Success: true,
		Data:    map[string]interface{}{"isValid": true, "payer": request.Message.From},
	}, nil
}

// Settle implements relaypay.RelayerClient
func (r *Relayer) Settle(ctx context.Context, request relaypay.PaymentRequest) (*relaypay.RelayerResponse, error) {
	r.mu.Lock()
	r.settleCalls = append(r.settleCalls, request)
	r.settleTimes = append(r.settleTimes, time.Now())
	if len(r.settleQueue) > 0 {
		next := r.settleQueue[0]
		r.settleQueue = r.settleQueue[1:]
		r.mu.Unlock()
		return next.Response, next.Err
	}
	r.mu.Unlock()

	if reason := r.check(request); reason != "" {
		return rejected(reason), nil
	}

	nonce := request.Message.Nonce
	status, _, done := r.ledger.CheckAndMark(nonce)
	switch status {
	case NonceSettled:
		return rejected("nonce_already_used"), nil
	case NonceInFlight:
		return rejected("settlement_in_progress"), nil
	}

	nonceBytes, err := evm.HexToBytes(nonce)
	if err != nil {
		r.ledger.Fail(nonce, done)
		return rejected("invalid_nonce"), nil
	}
	response := &relaypay.RelayerResponse{
		Success: true,
		Message: "payment settled",
		Data: map[string]interface{}{
			"txReference": crypto.Keccak256Hash(nonceBytes).Hex(),
			"payer":       request.Message.From,
		},
	}
	r.ledger.Complete(nonce, response, done)
	return response, nil
}

// check validates the authorization the way a relayer would before submitting it
func (r *Relayer) check(request relaypay.PaymentRequest) string {
	auth, err := request.Message.Authorization()
	if err != nil {
		return "invalid_payload"
	}
	if err := auth.Validate(); err != nil {
		return "invalid_payload"
	}

	now := r.now().Unix()
	if now < auth.ValidAfter {
		return "authorization_not_yet_valid"
	}
	if now >= auth.ValidBefore {
		return "authorization_expired"
	}

	sig, err := evm.HexToBytes(request.Message.Signature)
	if err != nil {
		return "invalid_signature"
	}
	ok, err := evm.VerifyTransferSignature(request.Domain, auth, sig)
	if err != nil || !ok {
		return "invalid_signature"
	}
	return ""
}

func invalid(reason string) *relaypay.RelayerResponse {
	return &relaypay.RelayerResponse{
		Success: true,
		Message: reason,
		Data:    map[string]interface{}{"isValid": false, "invalidReason": reason},
	}
}

func rejected(reason string) *relaypay.RelayerResponse {
	return &relaypay.RelayerResponse{
		Success: false,
		Message: reason,
		Data:    map[string]interface{}{"success": false, "errorReason": reason},
	}
}
