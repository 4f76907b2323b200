package training

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/core/events"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/resolver"
)

func TestTraining(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Training Module Suite")
}

var _ = Describe("Service", func() {
	var (
		store     *docstore.MemStore
		trainings *mirror.Mirror[datamodel.Training]
		service   *Service
		ctx       context.Context
		cancel    context.CancelFunc
	)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ptr := func(v int64) *int64 { return &v }
	strPtr := func(v string) *string { return &v }

	loadTraining := func(id int64) datamodel.Training {
		docs, err := store.QueryEquals(context.Background(), docstore.CollectionTrainings, "id", id)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		tr, err := datamodel.DecodeTraining(docs[0].Handle, docs[0].Data)
		Expect(err).NotTo(HaveOccurred())
		return tr
	}

	auditActions := func() []string {
		docs, err := store.List(context.Background(), docstore.CollectionAuditLog, 0)
		Expect(err).NotTo(HaveOccurred())
		actions := make([]string, 0, len(docs))
		for _, doc := range docs {
			entry, err := datamodel.DecodeAuditEntry(doc.Handle, doc.Data)
			Expect(err).NotTo(HaveOccurred())
			actions = append(actions, entry.Action)
		}
		return actions
	}

	BeforeEach(func() {
		store = docstore.NewMemStore()
		status := mirror.NewStatus(logger)
		registry := mirror.NewRegistry(status, logger)

		trainings = mirror.New(docstore.CollectionTrainings, store,
			func(doc docstore.Document) (datamodel.Training, error) {
				return datamodel.DecodeTraining(doc.Handle, doc.Data)
			},
			func(t datamodel.Training) int64 { return t.ID },
			status, logger)
		registry.Register(trainings)

		bus := events.NewEventBus(logger)
		sink := audit.NewSink(store, audit.NewCenter(time.Minute, bus, logger), bus, logger)

		service = NewService(store, resolver.New(store, registry, logger), trainings, sink, logger)

		ctx, cancel = context.WithCancel(context.Background())

		onboarding := datamodel.Training{ID: 1, Title: "Onboarding", Status: datamodel.TrainingScheduled, EmployeeID: ptr(4)}
		Expect(store.Set(ctx, docstore.CollectionTrainings, "1", onboarding.Document())).To(Succeed())

		registry.StartAll(ctx)
		waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
		Expect(trainings.WaitReady(waitCtx)).To(Succeed())
		waitCancel()
	})

	AfterEach(func() {
		cancel()
	})

	Describe("Create", func() {
		It("should default a blank status to planned", func() {
			created, err := service.Create(ctx, CreateTrainingDTO{Title: "First Aid"})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal(int64(2)))
			Expect(created.Status).To(Equal(datamodel.TrainingPlanned))

			Expect(loadTraining(2).Status).To(Equal(datamodel.TrainingPlanned))
			Expect(auditActions()).To(ContainElement(ActionCreate))
		})

		It("should accept an explicit status", func() {
			created, err := service.Create(ctx, CreateTrainingDTO{Title: "Fire Safety", Status: "done"})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Status).To(Equal(datamodel.TrainingDone))
		})

		It("should reject an unknown status", func() {
			_, err := service.Create(ctx, CreateTrainingDTO{Title: "Fire Safety", Status: "postponed"})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidStatus))
		})

		It("should reject a blank title", func() {
			_, err := service.Create(ctx, CreateTrainingDTO{Title: "  "})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})
	})

	Describe("Update", func() {
		It("should record a status move under its own action", func() {
			updated, err := service.Update(ctx, 1, UpdateTrainingDTO{Status: strPtr("done")})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(datamodel.TrainingDone))

			Expect(auditActions()).To(ContainElement(ActionStatusChange))
			Expect(auditActions()).NotTo(ContainElement(ActionUpdate))
		})

		It("should record a plain field edit as an update", func() {
			_, err := service.Update(ctx, 1, UpdateTrainingDTO{Title: strPtr("Onboarding Week")})
			Expect(err).NotTo(HaveOccurred())

			Expect(loadTraining(1).Title).To(Equal("Onboarding Week"))
			Expect(auditActions()).To(ContainElement(ActionUpdate))
			Expect(auditActions()).NotTo(ContainElement(ActionStatusChange))
		})

		It("should clear the employee link when the id is zero", func() {
			_, err := service.Update(ctx, 1, UpdateTrainingDTO{EmployeeID: ptr(0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(loadTraining(1).EmployeeID).To(BeNil())
		})

		It("should report a missing training", func() {
			_, err := service.Update(ctx, 99, UpdateTrainingDTO{Title: strPtr("Ghost")})
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("should remove the training document", func() {
			Expect(service.Delete(ctx, 1)).To(Succeed())

			docs, err := store.List(ctx, docstore.CollectionTrainings, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
			Expect(auditActions()).To(ContainElement(ActionDelete))
		})

		It("should stay silent when the training is unknown", func() {
			Expect(internal.IsNotFound(service.Delete(ctx, 99))).To(BeTrue())
		})
	})

	Describe("Get and List", func() {
		It("should serve reads from the mirror", func() {
			Expect(service.List(ctx)).To(HaveLen(1))

			tr, err := service.Get(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Title).To(Equal("Onboarding"))

			_, err = service.Get(ctx, 99)
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})
})
