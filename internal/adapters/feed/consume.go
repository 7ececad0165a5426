package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
)

// Handler receives one decoded rank-up.
type Handler func(ctx context.Context, ev ranking.RankUp) error

// Consume subscribes to topic and hands every rank-up to handle until ctx is
// done or the subscription closes. Undecodable messages are acked and
// dropped; messages whose handler fails are nacked for redelivery.
func Consume(ctx context.Context, sub message.Subscriber, topic string, handle Handler) error {
	msgs, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev ranking.RankUp
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				msg.Ack()
				continue
			}
			if err := handle(msg.Context(), ev); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}
