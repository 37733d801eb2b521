package relaypay

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultTransferFee is the relayer fee folded into every gasless transfer
	DefaultTransferFee = "2"

	// DefaultSettleAttempts bounds the settle retry loop
	DefaultSettleAttempts = 3

	// DefaultSettleDelay is the fixed pause between settle attempts
	DefaultSettleDelay = time.Second
)

type options struct {
	logger         logrus.FieldLogger
	now            func() time.Time
	fee            string
	settleAttempts int
	settleDelay    time.Duration
	balance        BalanceSource
}

func defaultOptions() options {
	return options{
		logger:         logrus.StandardLogger(),
		now:            time.Now,
		fee:            DefaultTransferFee,
		settleAttempts: DefaultSettleAttempts,
		settleDelay:    DefaultSettleDelay,
	}
}

// Option configures an engine or the coordinator. Options that do not apply
// to a component are ignored by it.
type Option func(*options)

// WithLogger sets the logger used for diagnostics
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for validity windows
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTransferFee sets the decimal fee added to each gasless transfer
func WithTransferFee(fee string) Option {
	return func(o *options) {
		o.fee = fee
	}
}

// WithSettleRetry sets the settle attempt bound and the delay between attempts
func WithSettleRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.settleAttempts = attempts
		}
		if delay >= 0 {
			o.settleDelay = delay
		}
	}
}

// WithBalanceSource supplies the balance hint and post-settlement refresh
func WithBalanceSource(source BalanceSource) Option {
	return func(o *options) {
		o.balance = source
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
