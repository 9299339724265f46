package promise_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/repository"
	"github.com/okian/repute/internal/domain/model"
)

// rejectingChat answers every completion with the same API error.
type rejectingChat struct {
	mu     sync.Mutex
	status int
	calls  int
}

func (r *rejectingChat) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: r.status, Message: "Incorrect API key provided"}
}

func (r *rejectingChat) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestRejectedCredentials(t *testing.T) {
	ctx := context.Background()

	Convey("Given a classifier whose API key is rejected", t, func() {
		store := repository.NewMemStore()
		chat := &rejectingChat{status: http.StatusUnauthorized}
		cls, err := classifier.NewOpenAI("bad", classifier.WithClient(chat), classifier.WithMaxRetries(0))
		So(err, ShouldBeNil)

		Convey("When due promises are verified", func() {
			var ids []int64
			for i := 0; i < 4; i++ {
				ids = append(ids, seedPromise(ctx, store, 1, 3, 7))
			}
			sum, err := newTracker(store, cls, later).Verify(ctx, later)

			Convey("Then the run halts with no promise resolved", func() {
				So(err, ShouldBeNil)
				So(sum.Halted, ShouldBeTrue)
				So(sum.Due, ShouldEqual, 4)
				So(sum.Processed, ShouldEqual, 0)
				So(sum.Failed, ShouldEqual, 0)
				So(sum.Errored, ShouldEqual, 4)
				So(chat.Calls(), ShouldEqual, 1)

				for _, id := range ids {
					p, err := store.GetPromise(ctx, id)
					So(err, ShouldBeNil)
					So(p.Status, ShouldEqual, model.StatusPending)
					So(p.OutcomeScore, ShouldBeNil)
				}
				adj, _ := store.ListAdjustments(ctx, 1, 10)
				So(adj, ShouldBeEmpty)
			})
		})

		Convey("When the key is forbidden instead", func() {
			chat.status = http.StatusForbidden
			pid := seedPromise(ctx, store, 2, 1, 2)
			sum, err := newTracker(store, cls, later).Verify(ctx, later)

			So(err, ShouldBeNil)
			So(sum.Halted, ShouldBeTrue)
			p, _ := store.GetPromise(ctx, pid)
			So(p.Status, ShouldEqual, model.StatusPending)
		})

		Convey("When pending announcements are taken in", func() {
			for _, official := range []int64{3, 4} {
				_, err := store.InsertEvent(ctx, announcement(official, 10))
				So(err, ShouldBeNil)
			}
			sum, err := newTracker(store, cls, announced).IntakePending(ctx)

			Convey("Then intake halts and the events stay pending", func() {
				So(err, ShouldBeNil)
				So(sum.Halted, ShouldBeTrue)
				So(sum.Processed, ShouldEqual, 0)
				So(sum.Fallbacks, ShouldEqual, 0)

				pending, err := store.ListPendingEvents(ctx, 0, 10)
				So(err, ShouldBeNil)
				So(pending, ShouldHaveLength, 2)
				_, err = store.GetRunningScore(ctx, 3)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
