package feed_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/feed"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
)

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker down") }
func (failingPublisher) Close() error                              { return nil }

func TestPublisher(t *testing.T) {
	Convey("Given a publisher over an in-process pub/sub", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
		defer pubsub.Close()

		messages, err := pubsub.Subscribe(ctx, "feed_test")
		So(err, ShouldBeNil)

		pub := feed.NewPublisher(pubsub, feed.WithTopic("feed_test"))
		So(pub.Topic(), ShouldEqual, "feed_test")

		Convey("When publishing rank-ups", func() {
			events := []ranking.RankUp{
				{UserID: "u1", Kind: model.EntityUser, NewTier: "Silver", NewSubTier: "Silver I"},
				{UserID: "u1", Kind: model.EntityExercise, EntityID: "bench", DisplayName: "Bench Press", OldTier: "Silver", NewTier: "Gold", NewSubTier: "Gold I"},
			}
			So(pub.Publish(ctx, events), ShouldBeNil)

			Convey("Then each event arrives as a JSON message", func() {
				got := make(map[model.EntityKind]ranking.RankUp)
				for range events {
					var msg *message.Message
					select {
					case msg = <-messages:
					case <-ctx.Done():
						t.Fatal("timed out waiting for message")
					}
					msg.Ack()

					var ev ranking.RankUp
					So(json.Unmarshal(msg.Payload, &ev), ShouldBeNil)
					So(msg.Metadata.Get(feed.MetadataKind), ShouldEqual, string(ev.Kind))
					So(msg.Metadata.Get(feed.MetadataUserID), ShouldEqual, "u1")
					got[ev.Kind] = ev
				}
				for _, want := range events {
					So(got[want.Kind], ShouldResemble, want)
				}
			})
		})

		Convey("When there is nothing to publish", func() {
			So(pub.Publish(ctx, nil), ShouldBeNil)
		})
	})

	Convey("Given a failing broker", t, func() {
		pub := feed.NewPublisher(failingPublisher{})

		Convey("Then errors wrap ErrPublish", func() {
			err := pub.Publish(context.Background(), []ranking.RankUp{{UserID: "u1", Kind: model.EntityUser}})
			So(errors.Is(err, feed.ErrPublish), ShouldBeTrue)
			So(pub.Topic(), ShouldEqual, feed.DefaultTopic)
		})
	})
}
