// Package feed publishes rank-up events to the social feed topic.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/metrics"
)

// DefaultTopic is the topic rank-ups are published to.
const DefaultTopic = "rank_ups"

// ErrPublish wraps failures from the underlying publisher.
var ErrPublish = errors.New("publish rank-ups failed")

// Metadata keys set on every message.
const (
	MetadataKind   = "kind"
	MetadataUserID = "user_id"
)

// Publisher encodes rank-ups as JSON messages.
type Publisher struct {
	pub    message.Publisher
	topic  string
	logger logger.Logger
}

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(p *Publisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPublisher wraps a watermill publisher.
func NewPublisher(pub message.Publisher, opts ...Option) *Publisher {
	p := &Publisher{pub: pub, topic: DefaultTopic, logger: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// Publish sends one message per event in order.
func (p *Publisher) Publish(ctx context.Context, events []ranking.RankUp) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]*message.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("%w: marshal: %w", ErrPublish, err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(MetadataKind, string(ev.Kind))
		msg.Metadata.Set(MetadataUserID, ev.UserID)
		msg.SetContext(ctx)
		msgs = append(msgs, msg)
	}

	if err := p.pub.Publish(p.topic, msgs...); err != nil {
		for range events {
			metrics.RecordFeedPublish(err)
		}
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	for _, ev := range events {
		metrics.RecordFeedPublish(nil)
		metrics.RecordRankUp(string(ev.Kind))
	}
	p.logger.Debug(ctx, "published rank-ups",
		logger.String("topic", p.topic),
		logger.Int("count", len(events)))
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}
