package relaypay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrFlowAbandoned is returned by a transfer flow that a newer ExecuteTransfer
// or ResetState superseded. Its outcome is not reflected in the coordinator state.
var ErrFlowAbandoned = errors.New("transfer flow was superseded by a newer request")

// Snapshot is a read-only view of the coordinator state
type Snapshot struct {
	Flow          uint64                 `json:"flow"`
	State         ProtocolState          `json:"state"`
	Error         string                 `json:"error,omitempty"`
	ErrorCode     ErrorCode              `json:"errorCode,omitempty"`
	Authorization *TransferAuthorization `json:"authorization,omitempty"`
	Result        *SettlementResult      `json:"result,omitempty"`
	Attempts      int                    `json:"attempts"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// SettlementCoordinator drives one gasless transfer at a time through
// signing, relayer verification and settlement.
type SettlementCoordinator struct {
	signer  *AuthorizationSigner
	relayer RelayerClient
	balance BalanceSource
	fee     string

	settleAttempts int
	settleDelay    time.Duration

	logger logrus.FieldLogger
	now    func() time.Time

	// notifyMu serialises transitions together with their delivery so
	// observers see them in order.
	notifyMu sync.Mutex

	mu           sync.Mutex
	generation   uint64
	snapshot     Snapshot
	subscribers  []subscriber
	nextSubID    int
	stateHooks   []StateChangeHook
	attemptHooks []SettleAttemptHook
}

// NewSettlementCoordinator creates a coordinator in the idle state
func NewSettlementCoordinator(signer *AuthorizationSigner, relayer RelayerClient, opts ...Option) *SettlementCoordinator {
	o := applyOptions(opts)
	return &SettlementCoordinator{
		signer:         signer,
		relayer:        relayer,
		balance:        o.balance,
		fee:            o.fee,
		settleAttempts: o.settleAttempts,
		settleDelay:    o.settleDelay,
		logger:         o.logger.WithField("component", "coordinator"),
		now:            o.now,
		snapshot:       Snapshot{State: StateIdle, UpdatedAt: o.now()},
	}
}

// ============================================================================
// Observers
// ============================================================================

// Snapshot returns the current state view
func (c *SettlementCoordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// State returns the current protocol state
func (c *SettlementCoordinator) State() ProtocolState {
	return c.Snapshot().State
}

// LastError returns the user-readable message of the last failure, or ""
func (c *SettlementCoordinator) LastError() string {
	return c.Snapshot().Error
}

// Authorization returns the authorization of the current flow, or nil
func (c *SettlementCoordinator) Authorization() *TransferAuthorization {
	return c.Snapshot().Authorization
}

// Result returns the settlement result of the current flow, or nil
func (c *SettlementCoordinator) Result() *SettlementResult {
	return c.Snapshot().Result
}

// Subscribe registers fn to receive every snapshot after a transition and
// returns a function that removes it. fn runs synchronously and must not call
// ExecuteTransfer or ResetState.
func (c *SettlementCoordinator) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subscribers {
				if s.id == id {
					c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// ============================================================================
// Flow
// ============================================================================

// ResetState abandons the current flow, if any, and returns to idle
func (c *SettlementCoordinator) ResetState() {
	c.reset(context.Background())
}

// ExecuteTransfer signs, verifies and settles a gasless transfer of amount to
// recipient. A nil error means the relayer settled the transfer; the result
// is then available from Result. Calling it while another flow is pending
// abandons that flow.
func (c *SettlementCoordinator) ExecuteTransfer(ctx context.Context, recipient, amount string) error {
	flow := c.reset(ctx)
	log := c.logger.WithField("flow", flow)

	if strings.TrimSpace(recipient) == "" || strings.TrimSpace(amount) == "" {
		return c.fail(ctx, flow, NewProtocolError(ErrCodeMissingInput, "please enter both recipient and amount", nil))
	}
	if c.signer == nil {
		return c.fail(ctx, flow, notReady("signer"))
	}
	if c.relayer == nil {
		return c.fail(ctx, flow, notReady("relayer"))
	}

	if !c.transition(ctx, flow, EventStart, nil) {
		return ErrFlowAbandoned
	}

	knownBalance := ""
	if c.balance != nil {
		knownBalance = c.balance.KnownBalance()
	}

	auth, err := c.signer.SignTransferAuthorization(ctx, recipient, amount, c.fee, knownBalance)
	if err != nil {
		return c.fail(ctx, flow, err)
	}
	if !c.transition(ctx, flow, EventSigned, func(s *Snapshot) { s.Authorization = auth }) {
		return ErrFlowAbandoned
	}

	request := auth.PaymentRequest()

	verify, err := c.relayer.Verify(ctx, request)
	if err != nil {
		return c.fail(ctx, flow, transientFailure(err, "payment verification request failed"))
	}
	if !verify.IsValid() {
		return c.fail(ctx, flow, businessRejection(verify, "payment verification failed"))
	}
	log.Info("payment verified")

	if !c.transition(ctx, flow, EventVerified, nil) {
		return ErrFlowAbandoned
	}

	result, err := c.settle(ctx, flow, request)
	if err != nil {
		return c.fail(ctx, flow, err)
	}
	if !c.transition(ctx, flow, EventSettled, func(s *Snapshot) { s.Result = result }) {
		return ErrFlowAbandoned
	}
	log.WithField("tx", result.TxHash).Info("payment settled")

	if c.balance != nil {
		if err := c.balance.Refresh(ctx); err != nil {
			log.WithError(err).Warn("failed to refresh balance after settlement")
		}
	}
	return nil
}

// settle calls the relayer until it settles, rejects, or attempts run out
func (c *SettlementCoordinator) settle(ctx context.Context, flow uint64, request PaymentRequest) (*SettlementResult, error) {
	log := c.logger.WithField("flow", flow)

	var lastErr error
	for attempt := 1; attempt <= c.settleAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.settleDelay):
			case <-ctx.Done():
				return nil, NewProtocolError(ErrCodeTransientNetwork, "settlement was cancelled", ctx.Err())
			}
		}
		if !c.current(flow) {
			return nil, ErrFlowAbandoned
		}

		start := time.Now()
		response, err := c.relayer.Settle(ctx, request)
		a := SettlementAttempt{Number: attempt, Response: response}

		switch {
		case err != nil:
			a.Outcome = OutcomeTransientError
			a.Err = transientFailure(err, "payment settlement request failed")
		case response == nil:
			a.Outcome = OutcomeTransientError
			a.Err = NewProtocolError(ErrCodeTransientNetwork, "relayer returned an empty response", nil)
		case response.Success:
			a.Outcome = OutcomeSuccess
		case response.HasPayload():
			a.Outcome = OutcomeBusinessRejected
			a.Err = businessRejection(response, "payment settlement failed")
		default:
			a.Outcome = OutcomeTransientError
			a.Err = NewProtocolError(ErrCodeTransientNetwork, messageOr(response.Message, "payment settlement failed"), nil)
		}

		c.recordAttempt(ctx, flow, a, time.Since(start))

		switch a.Outcome {
		case OutcomeSuccess:
			return NewSettlementResult(response.Data), nil
		case OutcomeBusinessRejected:
			log.WithField("attempt", attempt).WithError(a.Err).Warn("settlement rejected by relayer")
			return nil, a.Err
		}

		lastErr = a.Err
		log.WithField("attempt", attempt).WithError(a.Err).Warn("settlement attempt failed")
	}
	return nil, lastErr
}

// reset starts a new flow generation in the idle state
func (c *SettlementCoordinator) reset(ctx context.Context) uint64 {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.generation++
	flow := c.generation
	from := c.snapshot.State
	c.snapshot = Snapshot{Flow: flow, State: StateIdle, UpdatedAt: c.now()}
	snap := c.snapshot
	subs, hooks := c.observers()
	c.mu.Unlock()

	if c.signer != nil {
		c.signer.ClearLastAuthorization()
	}
	c.publish(ctx, from, EventReset, snap, subs, hooks)
	return flow
}

// transition applies event to flow's state; it reports false when flow has
// been superseded and nothing was changed.
func (c *SettlementCoordinator) transition(ctx context.Context, flow uint64, event Event, mutate func(*Snapshot)) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if flow != c.generation {
		c.mu.Unlock()
		return false
	}
	from := c.snapshot.State
	to, err := Transition(from, event)
	if err != nil {
		c.mu.Unlock()
		c.logger.WithField("flow", flow).WithError(err).Error("rejected state transition")
		return false
	}
	c.snapshot.State = to
	if mutate != nil {
		mutate(&c.snapshot)
	}
	c.snapshot.UpdatedAt = c.now()
	snap := c.snapshot
	subs, hooks := c.observers()
	c.mu.Unlock()

	c.publish(ctx, from, event, snap, subs, hooks)
	return true
}

// fail moves flow to the error state carrying err's user message
func (c *SettlementCoordinator) fail(ctx context.Context, flow uint64, err error) error {
	if errors.Is(err, ErrFlowAbandoned) {
		return err
	}
	cause := errors.Unwrap(err)
	if cause == nil {
		cause = err
	}
	c.logger.WithField("flow", flow).WithField("code", CodeOf(err)).
		WithError(cause).Error(MessageOf(err))

	ok := c.transition(ctx, flow, EventFail, func(s *Snapshot) {
		s.Error = MessageOf(err)
		s.ErrorCode = CodeOf(err)
	})
	if !ok {
		return ErrFlowAbandoned
	}
	return err
}

func (c *SettlementCoordinator) current(flow uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return flow == c.generation
}

func (c *SettlementCoordinator) recordAttempt(ctx context.Context, flow uint64, a SettlementAttempt, d time.Duration) {
	c.mu.Lock()
	if flow != c.generation {
		c.mu.Unlock()
		return
	}
	c.snapshot.Attempts = a.Number
	hooks := make([]SettleAttemptHook, len(c.attemptHooks))
	copy(hooks, c.attemptHooks)
	c.mu.Unlock()

	for _, hook := range hooks {
		hook(SettleAttemptContext{
			Ctx:       ctx,
			Flow:      flow,
			Attempt:   a,
			Timestamp: c.now(),
			Duration:  d,
		})
	}
}

// observers copies the subscriber and hook lists; callers hold c.mu
func (c *SettlementCoordinator) observers() ([]subscriber, []StateChangeHook) {
	subs := make([]subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	hooks := make([]StateChangeHook, len(c.stateHooks))
	copy(hooks, c.stateHooks)
	return subs, hooks
}

func (c *SettlementCoordinator) publish(ctx context.Context, from ProtocolState, event Event, snap Snapshot, subs []subscriber, hooks []StateChangeHook) {
	for _, hook := range hooks {
		hook(StateChangeContext{
			Ctx:       ctx,
			Flow:      snap.Flow,
			From:      from,
			To:        snap.State,
			Event:     event,
			Snapshot:  snap,
			Timestamp: snap.UpdatedAt,
		})
	}
	for _, s := range subs {
		s.fn(snap)
	}
}

// transientFailure keeps boundary classifications and maps anything else to TransientNetwork
func transientFailure(err error, message string) error {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	return NewProtocolError(ErrCodeTransientNetwork, message, err)
}

func businessRejection(response *RelayerResponse, fallback string) error {
	pe := NewProtocolError(ErrCodeBusinessRejected, fallback, nil)
	if response != nil {
		pe.Message = messageOr(response.Message, fallback)
		pe.Details = response.Data
	}
	return pe
}

func messageOr(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
