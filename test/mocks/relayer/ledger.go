package relayer

import (
	"strings"
	"sync"

	relaypay "github.com/reserve-vault/relaypay/go"
)

// NonceStatus is the result of checking a nonce against the ledger
type NonceStatus int

const (
	// NonceUnused means the nonce has not been settled and is now marked in-flight
	NonceUnused NonceStatus = iota
	// NonceSettled means a settlement with this nonce already succeeded
	NonceSettled
	// NonceInFlight means another request is settling this nonce
	NonceInFlight
)

// NonceLedger tracks which authorization nonces have been consumed
type NonceLedger struct {
	mu       sync.Mutex
	settled  map[string]*relaypay.RelayerResponse
	inFlight map[string]chan struct{}
}

// NewNonceLedger creates an empty ledger
func NewNonceLedger() *NonceLedger {
	return &NonceLedger{
		settled:  make(map[string]*relaypay.RelayerResponse),
		inFlight: make(map[string]chan struct{}),
	}
}

// CheckAndMark atomically checks nonce and marks it in-flight when unused.
// The returned channel is closed by Complete or Fail.
func (l *NonceLedger) CheckAndMark(nonce string) (NonceStatus, *relaypay.RelayerResponse, chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := strings.ToLower(nonce)
	if result, ok := l.settled[k]; ok {
		return NonceSettled, result, nil
	}
	if done, ok := l.inFlight[k]; ok {
		return NonceInFlight, nil, done
	}

	done := make(chan struct{})
	l.inFlight[k] = done
	return NonceUnused, nil, done
}

// Used reports whether nonce has been settled
func (l *NonceLedger) Used(nonce string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.settled[strings.ToLower(nonce)]
	return ok
}

// Complete records a successful settlement and releases waiters
func (l *NonceLedger) Complete(nonce string, response *relaypay.RelayerResponse, done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := strings.ToLower(nonce)
	l.settled[k] = response
	delete(l.inFlight, k)
	close(done)
}

// Fail releases the nonce for another attempt
func (l *NonceLedger) Fail(nonce string, done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inFlight, strings.ToLower(nonce))
	close(done)
}
