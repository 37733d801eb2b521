package relaypay

import (
	"context"
	"time"
)

// ============================================================================
// Coordinator Hook Context Types
// ============================================================================

// StateChangeContext is passed to state change hooks after every transition
type StateChangeContext struct {
	Ctx       context.Context
	Flow      uint64
	From      ProtocolState
	To        ProtocolState
	Event     Event
	Snapshot  Snapshot
	Timestamp time.Time
}

// SettleAttemptContext is passed to settle attempt hooks after every try
type SettleAttemptContext struct {
	Ctx       context.Context
	Flow      uint64
	Attempt   SettlementAttempt
	Timestamp time.Time
	Duration  time.Duration
}

// ============================================================================
// Hook Function Types
// ============================================================================

// StateChangeHook observes transitions. Hooks run synchronously in
// transition order and must not call back into the coordinator's
// mutating methods.
type StateChangeHook func(StateChangeContext)

// SettleAttemptHook observes each settle attempt, including retries
type SettleAttemptHook func(SettleAttemptContext)

// OnStateChange registers a hook called after every state transition
func (c *SettlementCoordinator) OnStateChange(hook StateChangeHook) *SettlementCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateHooks = append(c.stateHooks, hook)
	return c
}

// OnSettleAttempt registers a hook called after every settle attempt
func (c *SettlementCoordinator) OnSettleAttempt(hook SettleAttemptHook) *SettlementCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attemptHooks = append(c.attemptHooks, hook)
	return c
}
