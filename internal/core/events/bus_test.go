package events

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var _ = Describe("EventBus", func() {
	var (
		bus *EventBus
		ctx context.Context
	)

	BeforeEach(func() {
		bus = NewEventBus(testLogger)
		ctx = context.Background()
	})

	Describe("Publish", func() {
		It("should fan the event out to every subscriber", func() {
			var (
				mu   sync.Mutex
				seen []string
			)
			record := func(tag string) Handler {
				return func(_ context.Context, event Event) error {
					mu.Lock()
					defer mu.Unlock()
					seen = append(seen, tag+":"+event.EventType())
					return nil
				}
			}
			bus.Subscribe(TypeMutationRecorded, record("a"))
			bus.Subscribe(TypeMutationRecorded, record("b"))
			bus.Subscribe(TypeSessionChanged, record("c"))

			bus.Publish(ctx, NewBaseEvent(TypeMutationRecorded, map[string]interface{}{"action": "employee.create"}))

			Eventually(func() []string {
				mu.Lock()
				defer mu.Unlock()
				return append([]string(nil), seen...)
			}).Should(ConsistOf("a:mutation.recorded", "b:mutation.recorded"))
		})

		It("should swallow handler failures", func() {
			delivered := make(chan struct{}, 1)
			bus.Subscribe(TypeSyncDegraded, func(context.Context, Event) error {
				return errors.New("sink offline")
			})
			bus.Subscribe(TypeSyncDegraded, func(context.Context, Event) error {
				delivered <- struct{}{}
				return nil
			})

			bus.Publish(ctx, NewBaseEvent(TypeSyncDegraded, nil))

			Eventually(delivered).Should(Receive())
		})

		It("should do nothing without subscribers", func() {
			bus.Publish(ctx, NewBaseEvent(TypeNotificationAdded, nil))
		})
	})

	Describe("PublishSync", func() {
		It("should run handlers in order and in the caller's goroutine", func() {
			var seen []string
			bus.Subscribe(TypeMutationRecorded, func(context.Context, Event) error {
				seen = append(seen, "first")
				return nil
			})
			bus.Subscribe(TypeMutationRecorded, func(context.Context, Event) error {
				seen = append(seen, "second")
				return nil
			})

			Expect(bus.PublishSync(ctx, NewBaseEvent(TypeMutationRecorded, nil))).To(Succeed())
			Expect(seen).To(Equal([]string{"first", "second"}))
		})

		It("should stop at the first failing handler", func() {
			var reachedSecond bool
			bus.Subscribe(TypeMutationRecorded, func(context.Context, Event) error {
				return errors.New("sink offline")
			})
			bus.Subscribe(TypeMutationRecorded, func(context.Context, Event) error {
				reachedSecond = true
				return nil
			})

			err := bus.PublishSync(ctx, NewBaseEvent(TypeMutationRecorded, nil))
			Expect(err).To(MatchError(ContainSubstring("sink offline")))
			Expect(reachedSecond).To(BeFalse())
		})
	})

	Describe("NewBaseEvent", func() {
		It("should stamp identity and time", func() {
			event := NewBaseEvent(TypeSessionChanged, map[string]interface{}{"signed_in": true})
			Expect(event.EventID()).NotTo(BeEmpty())
			Expect(event.EventType()).To(Equal("session.changed"))
			Expect(event.OccurredAt()).NotTo(BeZero())
			Expect(event.Payload()).To(HaveKeyWithValue("signed_in", true))
		})

		It("should give every event its own id", func() {
			Expect(NewBaseEvent(TypeSessionChanged, nil).EventID()).NotTo(Equal(NewBaseEvent(TypeSessionChanged, nil).EventID()))
		})
	})
})
