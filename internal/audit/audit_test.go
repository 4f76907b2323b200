package audit

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/core/events"
	"github.com/staffsync/staff-management/internal/docstore"
)

func TestAudit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var _ = Describe("FieldDiff", func() {
	It("should render scalar changes as old -> new", func() {
		diff := FieldDiff(
			map[string]any{"name": "Mara"},
			map[string]any{"name": "Jonas"},
		)
		Expect(diff).To(Equal("name: Mara -> Jonas"))
	})

	It("should render absent and nil values as empty", func() {
		Expect(FieldDiff(nil, map[string]any{"name": "Mara"})).To(Equal("name: empty -> Mara"))
		Expect(FieldDiff(
			map[string]any{"team_id": nil},
			map[string]any{"team_id": int64(4)},
		)).To(Equal("team_id: empty -> 4"))
		Expect(FieldDiff(
			map[string]any{"code": ""},
			map[string]any{"code": "EMP7"},
		)).To(Equal("code: empty -> EMP7"))
	})

	It("should summarize container changes without dumping them", func() {
		diff := FieldDiff(
			map[string]any{"members": []any{int64(1)}},
			map[string]any{"members": []any{int64(1), int64(2)}},
		)
		Expect(diff).To(Equal("members updated"))
	})

	It("should skip unchanged fields, comparing numbers numerically", func() {
		diff := FieldDiff(
			map[string]any{"id": int64(3), "name": "Mara"},
			map[string]any{"id": float64(3), "name": "Mara"},
		)
		Expect(diff).To(BeEmpty())
	})

	It("should list changed fields in sorted order", func() {
		diff := FieldDiff(nil, map[string]any{"b": "two", "a": "one"})
		Expect(diff).To(Equal("a: empty -> one, b: empty -> two"))
	})
})

var _ = Describe("Center", func() {
	var (
		bus    *events.EventBus
		center *Center
	)

	BeforeEach(func() {
		bus = events.NewEventBus(testLogger)
		center = NewCenter(time.Minute, bus, testLogger)
	})

	It("should hold pushed notifications until dismissed", func() {
		n := center.Push(SeveritySuccess, "employee Mara created")
		Expect(n.ID).NotTo(BeEmpty())
		Expect(center.Active()).To(HaveLen(1))

		center.Dismiss(n.ID)
		Expect(center.Active()).To(BeEmpty())
	})

	It("should order active notifications oldest first", func() {
		center.Push(SeverityInfo, "first")
		time.Sleep(2 * time.Millisecond)
		center.Push(SeverityError, "second")

		active := center.Active()
		Expect(active).To(HaveLen(2))
		Expect(active[0].Message).To(Equal("first"))
		Expect(active[1].Message).To(Equal("second"))
	})

	It("should expire notifications after the TTL", func() {
		center = NewCenter(30*time.Millisecond, bus, testLogger)
		center.Push(SeverityInfo, "short lived")

		Eventually(center.Active, time.Second).Should(BeEmpty())
	})

	It("should announce every push on the event bus", func() {
		received := make(chan events.Event, 1)
		bus.Subscribe(events.TypeNotificationAdded, func(ctx context.Context, e events.Event) error {
			received <- e
			return nil
		})

		center.Push(SeverityError, "sync degraded")

		var event events.Event
		Eventually(received).Should(Receive(&event))
		payload, ok := event.Payload().(map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(payload["severity"]).To(Equal("error"))
		Expect(payload["message"]).To(Equal("sync degraded"))
	})
})

var _ = Describe("Sink", func() {
	var (
		store  *docstore.MemStore
		bus    *events.EventBus
		center *Center
		sink   *Sink
		ctx    context.Context
	)

	BeforeEach(func() {
		store = docstore.NewMemStore()
		bus = events.NewEventBus(testLogger)
		center = NewCenter(time.Minute, bus, testLogger)
		sink = NewSink(store, center, bus, testLogger)
		ctx = context.Background()
	})

	auditEntries := func() []datamodel.AuditEntry {
		docs, err := store.List(ctx, docstore.CollectionAuditLog, 0)
		Expect(err).NotTo(HaveOccurred())
		out := make([]datamodel.AuditEntry, 0, len(docs))
		for _, doc := range docs {
			entry, err := datamodel.DecodeAuditEntry(doc.Handle, doc.Data)
			Expect(err).NotTo(HaveOccurred())
			out = append(out, entry)
		}
		return out
	}

	Describe("Success", func() {
		It("should append an audit entry attributed to the context actor", func() {
			actorCtx := internal.ContextWithActor(ctx, "mara@example.com")
			sink.Success(actorCtx, "employee.create", "employee Mara created")

			entries := auditEntries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Actor).To(Equal("mara@example.com"))
			Expect(entries[0].Action).To(Equal("employee.create"))
			Expect(entries[0].Detail).To(Equal("employee Mara created"))
			Expect(entries[0].At).NotTo(BeZero())
		})

		It("should attribute unattributed actions to the system", func() {
			sink.Success(ctx, "account.bootstrap", "account mara provisioned with role admin")

			entries := auditEntries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Actor).To(Equal("system"))
		})

		It("should push a success notification and publish the mutation", func() {
			received := make(chan events.Event, 1)
			bus.Subscribe(events.TypeMutationRecorded, func(ctx context.Context, e events.Event) error {
				received <- e
				return nil
			})

			sink.Success(ctx, "team.update", "team Front Office updated")

			active := center.Active()
			Expect(active).To(HaveLen(1))
			Expect(active[0].Severity).To(Equal(SeveritySuccess))

			var event events.Event
			Eventually(received).Should(Receive(&event))
			payload := event.Payload().(map[string]interface{})
			Expect(payload["action"]).To(Equal("team.update"))
		})

		It("should swallow a failed audit append after the action happened", func() {
			store.InjectError("add", docstore.ErrUnavailable)

			sink.Success(ctx, "employee.create", "employee Mara created")

			Expect(auditEntries()).To(BeEmpty())
			// the user-facing confirmation still appears
			Expect(center.Active()).To(HaveLen(1))
		})
	})

	Describe("Failure", func() {
		It("should push an error notification without touching the audit log", func() {
			sink.Failure(ctx, "account.update", "At least one active administrator account must remain")

			Expect(auditEntries()).To(BeEmpty())
			active := center.Active()
			Expect(active).To(HaveLen(1))
			Expect(active[0].Severity).To(Equal(SeverityError))
		})
	})

	Describe("Info", func() {
		It("should push a neutral notification only", func() {
			sink.Info(ctx, "synchronization restored")

			Expect(auditEntries()).To(BeEmpty())
			active := center.Active()
			Expect(active).To(HaveLen(1))
			Expect(active[0].Severity).To(Equal(SeverityInfo))
		})
	})
})
