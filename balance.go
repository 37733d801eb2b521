package relaypay

import (
	"context"
	"math/big"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// BalanceSource supplies a balance hint and can be refreshed after a transfer
type BalanceSource interface {
	// KnownBalance returns the last read balance as a decimal string, or ""
	// when nothing has been loaded yet.
	KnownBalance() string
	Refresh(ctx context.Context) error
}

// BalanceTracker caches one holder's balance of one asset
type BalanceTracker struct {
	chain  ChainClient
	asset  string
	owner  string
	logger logrus.FieldLogger

	mu       sync.RWMutex
	raw      *big.Int
	decimals int
	loaded   bool
}

// NewBalanceTracker creates a tracker for owner's balance of asset
func NewBalanceTracker(chain ChainClient, asset, owner string, opts ...Option) *BalanceTracker {
	o := applyOptions(opts)
	return &BalanceTracker{
		chain:    chain,
		asset:    asset,
		owner:    owner,
		logger:   o.logger.WithField("component", "balance"),
		decimals: evm.DefaultDecimals,
	}
}

// Refresh re-reads the balance and precision from the chain
func (t *BalanceTracker) Refresh(ctx context.Context) error {
	if t.chain == nil {
		return notReady("chain client")
	}
	if !evm.IsValidAddress(t.owner) || !evm.IsValidAddress(t.asset) {
		return notReady("wallet")
	}

	raw, err := t.chain.Balance(ctx, t.asset, t.owner)
	if err != nil {
		t.logger.WithError(err).Error("failed to read balance")
		return chainFailure(err, "failed to read balance")
	}
	decimals := resolvePrecision(ctx, t.chain, t.asset, t.logger)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.raw = raw
	t.decimals = decimals
	t.loaded = true
	return nil
}

// KnownBalance returns the formatted balance, or "" before the first refresh
func (t *BalanceTracker) KnownBalance() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.loaded {
		return ""
	}
	return evm.FormatUnits(t.raw, t.decimals)
}

// Raw returns the balance in the smallest unit and the token precision
func (t *BalanceTracker) Raw() (*big.Int, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.raw == nil {
		return new(big.Int), t.decimals
	}
	return new(big.Int).Set(t.raw), t.decimals
}
