// Package requests feeds calculation requests from a message topic into the
// ranking service.
package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	service "github.com/mvanderlyn27/odyssey-backend-sub003/internal/app"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
)

// DefaultTopic is the topic requests are consumed from.
const DefaultTopic = "calculation_requests"

// DefaultRetryDelay is how long a rejected message waits before it is nacked.
const DefaultRetryDelay = 50 * time.Millisecond

// Submitter queues one request, returning its request id.
type Submitter func(ctx context.Context, req model.CalculationRequest) (string, error)

// Consumer decodes JSON requests and hands them to a Submitter.
type Consumer struct {
	sub        message.Subscriber
	submit     Submitter
	topic      string
	retryDelay time.Duration
	logger     logger.Logger
}

// Option applies a configuration option to the Consumer.
type Option func(*Consumer)

// WithTopic overrides the source topic.
func WithTopic(topic string) Option {
	return func(c *Consumer) {
		if topic != "" {
			c.topic = topic
		}
	}
}

// WithRetryDelay sets the pause before a rejected message is nacked.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Consumer) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithLogger sets the consumer logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConsumer wraps a watermill subscriber.
func NewConsumer(sub message.Subscriber, submit Submitter, opts ...Option) *Consumer {
	c := &Consumer{
		sub:        sub,
		submit:     submit,
		topic:      DefaultTopic,
		retryDelay: DefaultRetryDelay,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMessage encodes a request for publishing. The request id doubles as the
// message id so redeliveries are deduplicated by the service.
func NewMessage(req model.CalculationRequest) (*message.Message, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	id := req.RequestID
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, payload)
	msg.Metadata.Set("user_id", req.UserID)
	return msg, nil
}

// Run consumes until ctx is done or the subscription closes.
//
// Submitted, duplicate, invalid and undecodable messages are acked. Anything
// else, backpressure included, is nacked after the retry delay.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.sub.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if c.handle(ctx, msg) {
				msg.Ack()
				continue
			}
			select {
			case <-ctx.Done():
				msg.Nack()
				return nil
			case <-time.After(c.retryDelay):
				msg.Nack()
			}
		}
	}
}

// handle reports whether msg is done with.
func (c *Consumer) handle(ctx context.Context, msg *message.Message) bool {
	var req model.CalculationRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.logger.Warn(ctx, "dropping undecodable request",
			logger.String("message_id", msg.UUID),
			logger.Error(err))
		return true
	}
	if req.RequestID == "" {
		req.RequestID = msg.UUID
	}

	id, err := c.submit(ctx, req)
	switch {
	case err == nil:
		c.logger.Debug(ctx, "request queued",
			logger.String("request_id", id),
			logger.String("user_id", req.UserID))
		return true
	case errors.Is(err, service.ErrDuplicate):
		return true
	case errors.Is(err, service.ErrInvalidRequest):
		c.logger.Warn(ctx, "dropping invalid request",
			logger.String("request_id", req.RequestID),
			logger.Error(err))
		return true
	default:
		c.logger.Debug(ctx, "request rejected, will retry",
			logger.String("request_id", req.RequestID),
			logger.Error(err))
		return false
	}
}
