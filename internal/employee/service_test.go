package employee

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/core/events"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/integrity"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/resolver"
)

func TestEmployee(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Employee Module Suite")
}

var _ = Describe("Service", func() {
	var (
		store     *docstore.MemStore
		employees *mirror.Mirror[datamodel.Employee]
		service   *Service
		ctx       context.Context
		cancel    context.CancelFunc
	)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ptr := func(v int64) *int64 { return &v }
	strPtr := func(v string) *string { return &v }

	day := func(s string) time.Time {
		t, err := time.Parse(datamodel.DateLayout, s)
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	loadEmployee := func(id int64) datamodel.Employee {
		docs, err := store.QueryEquals(context.Background(), docstore.CollectionEmployees, "id", id)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		e, err := datamodel.DecodeEmployee(docs[0].Handle, docs[0].Data)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	loadTeam := func(id int64) datamodel.Team {
		docs, err := store.QueryEquals(context.Background(), docstore.CollectionTeams, "id", id)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		team, err := datamodel.DecodeTeam(docs[0].Handle, docs[0].Data)
		Expect(err).NotTo(HaveOccurred())
		return team
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

		employees = mirror.New(docstore.CollectionEmployees, store,
			func(doc docstore.Document) (datamodel.Employee, error) {
				return datamodel.DecodeEmployee(doc.Handle, doc.Data)
			},
			func(e datamodel.Employee) int64 { return e.ID },
			status, logger)
		teams := mirror.New(docstore.CollectionTeams, store,
			func(doc docstore.Document) (datamodel.Team, error) {
				return datamodel.DecodeTeam(doc.Handle, doc.Data)
			},
			func(t datamodel.Team) int64 { return t.ID },
			status, logger)
		bonuses := mirror.New(docstore.CollectionBonuses, store,
			func(doc docstore.Document) (datamodel.Bonus, error) {
				return datamodel.DecodeBonus(doc.Handle, doc.Data)
			},
			nil, status, logger)
		planning := mirror.New(docstore.CollectionPlanning, store,
			func(doc docstore.Document) (datamodel.PlanningEntry, error) {
				return datamodel.DecodePlanningEntry(doc.Handle, doc.Data)
			},
			nil, status, logger)

		registry.Register(employees)
		registry.Register(teams)
		registry.Register(bonuses)
		registry.Register(planning)

		res := resolver.New(store, registry, logger)
		engine := integrity.NewEngine(store, res, employees, teams, bonuses, planning, logger)

		bus := events.NewEventBus(logger)
		sink := audit.NewSink(store, audit.NewCenter(time.Minute, bus, logger), bus, logger)

		service = NewService(store, res, employees, engine, sink, logger)

		ctx, cancel = context.WithCancel(context.Background())

		seed := func(collection, handle string, doc map[string]any) {
			Expect(store.Set(ctx, collection, handle, doc)).To(Succeed())
		}
		mara := datamodel.Employee{ID: 1, Code: "EMP1", Name: "Mara", TeamID: ptr(10)}
		jonas := datamodel.Employee{ID: 2, Code: "EMP2", Name: "Jonas", TeamID: ptr(10)}
		seed(docstore.CollectionEmployees, "1", mara.Document())
		seed(docstore.CollectionEmployees, "2", jonas.Document())
		team := datamodel.Team{ID: 10, Name: "Front Office", LeaderID: ptr(1), MemberIDs: []int64{1, 2}}
		seed(docstore.CollectionTeams, "10", team.Document())
		maraBonus := datamodel.Bonus{EmployeeID: 1, Month: "2026-01", Amount: decimal.NewFromInt(100)}
		jonasBonus := datamodel.Bonus{EmployeeID: 2, Month: "2026-01", Amount: decimal.NewFromInt(80)}
		seed(docstore.CollectionBonuses, maraBonus.Key(), maraBonus.Document())
		seed(docstore.CollectionBonuses, jonasBonus.Key(), jonasBonus.Document())
		maraShift := datamodel.PlanningEntry{EmployeeID: 1, Date: day("2026-01-05"), Shift: "early"}
		seed(docstore.CollectionPlanning, maraShift.Key(), maraShift.Document())

		registry.StartAll(ctx)
		for _, m := range []interface{ WaitReady(context.Context) error }{employees, teams, bonuses, planning} {
			waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
			Expect(m.WaitReady(waitCtx)).To(Succeed())
			waitCancel()
		}
	})

	AfterEach(func() {
		cancel()
	})

	Describe("Create", func() {
		It("should mint the next identifier and persist the employee", func() {
			created, err := service.Create(ctx, CreateEmployeeDTO{Code: "EMP3", Name: "Ines", TeamID: ptr(10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal(int64(3)))

			stored := loadEmployee(3)
			Expect(stored.Code).To(Equal("EMP3"))
			Expect(stored.Name).To(Equal("Ines"))
			Expect(auditActions()).To(ContainElement("employee.create"))
		})

		It("should parse the exit date", func() {
			created, err := service.Create(ctx, CreateEmployeeDTO{Code: "EMP3", Name: "Ines", ExitDate: strPtr("2026-03-31")})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ExitDate).NotTo(BeNil())

			stored := loadEmployee(3)
			Expect(stored.ExitDate).NotTo(BeNil())
			Expect(stored.ExitDate.Format(datamodel.DateLayout)).To(Equal("2026-03-31"))
		})

		It("should reject a code already in use, ignoring case", func() {
			_, err := service.Create(ctx, CreateEmployeeDTO{Code: "emp1", Name: "Impostor"})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateCode))
		})

		It("should reject a malformed code", func() {
			_, err := service.Create(ctx, CreateEmployeeDTO{Code: "EMP 3", Name: "Ines"})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMalformedCode))
		})
	})

	Describe("Update", func() {
		It("should merge changed fields into the persisted document", func() {
			updated, err := service.Update(ctx, 2, UpdateEmployeeDTO{Name: strPtr("Jonas B")})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Jonas B"))
			Expect(loadEmployee(2).Name).To(Equal("Jonas B"))
		})

		It("should clear the team link when the id is zero", func() {
			_, err := service.Update(ctx, 2, UpdateEmployeeDTO{TeamID: ptr(0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(loadEmployee(2).TeamID).To(BeNil())
		})

		It("should clear the exit date when the string is empty", func() {
			_, err := service.Update(ctx, 2, UpdateEmployeeDTO{ExitDate: strPtr("2026-05-01")})
			Expect(err).NotTo(HaveOccurred())
			Eventually(func() *time.Time {
				e, _ := employees.Get(2)
				return e.ExitDate
			}).ShouldNot(BeNil())

			_, err = service.Update(ctx, 2, UpdateEmployeeDTO{ExitDate: strPtr("")})
			Expect(err).NotTo(HaveOccurred())
			Expect(loadEmployee(2).ExitDate).To(BeNil())
		})

		It("should let an employee keep their own code", func() {
			_, err := service.Update(ctx, 1, UpdateEmployeeDTO{Code: strPtr("emp1")})
			Expect(err).NotTo(HaveOccurred())
			Expect(loadEmployee(1).Code).To(Equal("emp1"))
		})

		It("should reject a code collision with another employee", func() {
			_, err := service.Update(ctx, 2, UpdateEmployeeDTO{Code: strPtr("EMP1")})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateCode))
			Expect(loadEmployee(2).Code).To(Equal("EMP2"))
		})

		It("should report a missing employee", func() {
			_, err := service.Update(ctx, 99, UpdateEmployeeDTO{Name: strPtr("Ghost")})
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("should remove the employee and repair every reference", func() {
			Expect(service.Delete(ctx, 1)).To(Succeed())

			docs, err := store.QueryEquals(ctx, docstore.CollectionEmployees, "id", int64(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())

			team := loadTeam(10)
			Expect(team.MemberIDs).To(Equal([]int64{2}))
			Expect(team.LeaderID).To(BeNil())

			bonusDocs, err := store.List(ctx, docstore.CollectionBonuses, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(bonusDocs).To(HaveLen(1))
			Expect(bonusDocs[0].Handle).To(Equal("2_2026-01"))

			planningDocs, err := store.List(ctx, docstore.CollectionPlanning, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(planningDocs).To(BeEmpty())

			Expect(auditActions()).To(ContainElement("employee.delete"))
		})

		It("should stay silent when the employee is unknown", func() {
			err := service.Delete(ctx, 99)
			Expect(internal.IsNotFound(err)).To(BeTrue())
			Expect(auditActions()).To(BeEmpty())
		})
	})

	Describe("Get and List", func() {
		It("should serve reads from the mirror", func() {
			Expect(service.List(ctx)).To(HaveLen(2))

			e, err := service.Get(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Name).To(Equal("Mara"))

			_, err = service.Get(ctx, 99)
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})
})
