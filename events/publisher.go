package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"

	relaypay "github.com/reserve-vault/relaypay/go"
)

const (
	// TopicTransferState receives one message per coordinator transition
	TopicTransferState = "relaypay.transfer.state"

	// TopicSettleAttempt receives one message per settle attempt
	TopicSettleAttempt = "relaypay.transfer.settle_attempt"
)

// StateEvent is the payload published on TopicTransferState
type StateEvent struct {
	Flow      uint64                 `json:"flow"`
	From      relaypay.ProtocolState `json:"from"`
	To        relaypay.ProtocolState `json:"to"`
	Event     relaypay.Event         `json:"event"`
	Error     string                 `json:"error,omitempty"`
	ErrorCode relaypay.ErrorCode     `json:"errorCode,omitempty"`
	TxHash    string                 `json:"txHash,omitempty"`
	Nonce     string                 `json:"nonce,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// AttemptEvent is the payload published on TopicSettleAttempt
type AttemptEvent struct {
	Flow       uint64                  `json:"flow"`
	Attempt    int                     `json:"attempt"`
	Outcome    relaypay.AttemptOutcome `json:"outcome"`
	Error      string                  `json:"error,omitempty"`
	DurationMs int64                   `json:"durationMs"`
	Timestamp  time.Time               `json:"timestamp"`
}

// WatermillPublisher publishes coordinator activity through Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	logger    logrus.FieldLogger
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher, logger logrus.FieldLogger) *WatermillPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WatermillPublisher{
		publisher: publisher,
		logger:    logger.WithField("component", "events"),
	}
}

// Attach registers the publisher's hooks on the coordinator
func (p *WatermillPublisher) Attach(coordinator *relaypay.SettlementCoordinator) {
	coordinator.
		OnStateChange(func(c relaypay.StateChangeContext) {
			if err := p.PublishStateChange(c.Ctx, c); err != nil {
				p.logger.WithError(err).Warn("failed to publish state event")
			}
		}).
		OnSettleAttempt(func(c relaypay.SettleAttemptContext) {
			if err := p.PublishSettleAttempt(c.Ctx, c); err != nil {
				p.logger.WithError(err).Warn("failed to publish settle attempt event")
			}
		})
}

// PublishStateChange publishes one transition
func (p *WatermillPublisher) PublishStateChange(ctx context.Context, change relaypay.StateChangeContext) error {
	event := StateEvent{
		Flow:      change.Flow,
		From:      change.From,
		To:        change.To,
		Event:     change.Event,
		Error:     change.Snapshot.Error,
		ErrorCode: change.Snapshot.ErrorCode,
		Timestamp: change.Timestamp,
	}
	if change.Snapshot.Result != nil {
		event.TxHash = change.Snapshot.Result.TxHash
	}
	if change.Snapshot.Authorization != nil {
		event.Nonce = change.Snapshot.Authorization.Nonce
	}
	return p.publish(ctx, TopicTransferState, event)
}

// PublishSettleAttempt publishes one settle attempt
func (p *WatermillPublisher) PublishSettleAttempt(ctx context.Context, attempt relaypay.SettleAttemptContext) error {
	event := AttemptEvent{
		Flow:       attempt.Flow,
		Attempt:    attempt.Attempt.Number,
		Outcome:    attempt.Attempt.Outcome,
		Error:      relaypay.MessageOf(attempt.Attempt.Err),
		DurationMs: attempt.Duration.Milliseconds(),
		Timestamp:  attempt.Timestamp,
	}
	return p.publish(ctx, TopicSettleAttempt, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if ctx != nil {
		msg.SetContext(ctx)
	}

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the underlying publisher
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
