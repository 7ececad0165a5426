package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/mq/queue"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/mq/worker"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
)

type mockProcessor struct {
	mu     sync.Mutex
	seen   map[string][]string
	errors map[string]error
	delay  time.Duration
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{seen: make(map[string][]string), errors: make(map[string]error)}
}

func (m *mockProcessor) Process(_ context.Context, req model.CalculationRequest) (ranking.Result, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[req.UserID] = append(m.seen[req.UserID], req.RequestID)
	if err, ok := m.errors[req.RequestID]; ok {
		return ranking.Result{}, err
	}
	return ranking.Result{Skipped: ranking.SkipNone}, nil
}

func (m *mockProcessor) processed(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen[userID]...)
}

func (m *mockProcessor) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ids := range m.seen {
		n += len(ids)
	}
	return n
}

func request(userID, requestID string) model.CalculationRequest {
	return model.CalculationRequest{RequestID: requestID, UserID: userID, Source: model.SourceWorkout}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over one queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		proc := newMockProcessor()
		w := worker.NewInMemoryWorker(q, proc, worker.WithName("test-worker"))
		go w.Run(ctx)

		convey.Convey("When a job with a reply channel is processed", func() {
			reply := make(chan queue.Reply, 1)
			convey.So(q.Enqueue(ctx, queue.Job{Request: request("u1", "r1"), Reply: reply}), convey.ShouldBeNil)

			convey.Convey("Then the reply is delivered", func() {
				select {
				case r := <-reply:
					convey.So(r.Err, convey.ShouldBeNil)
				case <-time.After(2 * time.Second):
					t.Fatal("no reply")
				}
				convey.So(proc.processed("u1"), convey.ShouldResemble, []string{"r1"})
			})
		})

		convey.Convey("When processing fails", func() {
			proc.mu.Lock()
			proc.errors["bad"] = errors.New("store down")
			proc.mu.Unlock()

			reply := make(chan queue.Reply, 1)
			convey.So(q.Enqueue(ctx, queue.Job{Request: request("u1", "bad"), Reply: reply}), convey.ShouldBeNil)

			convey.Convey("Then the error is replied and the worker keeps running", func() {
				r := <-reply
				convey.So(r.Err, convey.ShouldNotBeNil)

				again := make(chan queue.Reply, 1)
				convey.So(q.Enqueue(ctx, queue.Job{Request: request("u1", "good"), Reply: again}), convey.ShouldBeNil)
				convey.So((<-again).Err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When shut down", func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()

			convey.Convey("Then it stops and a second shutdown is safe", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a sharded queue", t, func() {
		ctx := context.Background()
		q := queue.NewSharded(4, queue.WithCapacity(200))
		proc := newMockProcessor()
		pool := worker.NewPool(q, proc, nil)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		convey.Convey("When many users submit jobs and the pool drains", func() {
			users := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
			for i := 0; i < 20; i++ {
				for _, u := range users {
					convey.So(q.Enqueue(ctx, queue.Job{Request: request(u, fmt.Sprintf("%s-%02d", u, i))}), convey.ShouldBeNil)
				}
			}
			pool.Start(ctx)
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then every job ran once, in order per user", func() {
				convey.So(proc.total(), convey.ShouldEqual, 120)
				for _, u := range users {
					got := proc.processed(u)
					convey.So(len(got), convey.ShouldEqual, 20)
					for i, id := range got {
						convey.So(id, convey.ShouldEqual, fmt.Sprintf("%s-%02d", u, i))
					}
				}
			})

			convey.Convey("Then the queue refuses new work", func() {
				err := q.Enqueue(ctx, queue.Job{Request: request("alice", "late")})
				convey.So(errors.Is(err, queue.ErrClosed), convey.ShouldBeTrue)
			})
		})
	})
}
