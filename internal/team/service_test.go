package team

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
	"github.com/staffsync/staff-management/internal/integrity"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/resolver"
)

func TestTeam(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Team Module Suite")
}

var _ = Describe("Service", func() {
	var (
		store   *docstore.MemStore
		teams   *mirror.Mirror[datamodel.Team]
		service *Service
		ctx     context.Context
		cancel  context.CancelFunc
	)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ptr := func(v int64) *int64 { return &v }
	strPtr := func(v string) *string { return &v }
	membersPtr := func(v []int64) *[]int64 { return &v }

	loadTeam := func(id int64) datamodel.Team {
		docs, err := store.QueryEquals(context.Background(), docstore.CollectionTeams, "id", id)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		team, err := datamodel.DecodeTeam(docs[0].Handle, docs[0].Data)
		Expect(err).NotTo(HaveOccurred())
		return team
	}

	loadEmployee := func(id int64) datamodel.Employee {
		docs, err := store.QueryEquals(context.Background(), docstore.CollectionEmployees, "id", id)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		e, err := datamodel.DecodeEmployee(docs[0].Handle, docs[0].Data)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		store = docstore.NewMemStore()
		status := mirror.NewStatus(logger)
		registry := mirror.NewRegistry(status, logger)

		employees := mirror.New(docstore.CollectionEmployees, store,
			func(doc docstore.Document) (datamodel.Employee, error) {
				return datamodel.DecodeEmployee(doc.Handle, doc.Data)
			},
			func(e datamodel.Employee) int64 { return e.ID },
			status, logger)
		teams = mirror.New(docstore.CollectionTeams, store,
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

		service = NewService(store, res, teams, engine, sink, logger)

		ctx, cancel = context.WithCancel(context.Background())

		mara := datamodel.Employee{ID: 1, Code: "EMP1", Name: "Mara", TeamID: ptr(10)}
		jonas := datamodel.Employee{ID: 2, Code: "EMP2", Name: "Jonas", TeamID: ptr(10)}
		ines := datamodel.Employee{ID: 3, Code: "EMP3", Name: "Ines"}
		Expect(store.Set(ctx, docstore.CollectionEmployees, "1", mara.Document())).To(Succeed())
		Expect(store.Set(ctx, docstore.CollectionEmployees, "2", jonas.Document())).To(Succeed())
		Expect(store.Set(ctx, docstore.CollectionEmployees, "3", ines.Document())).To(Succeed())
		team := datamodel.Team{ID: 10, Name: "Front Office", LeaderID: ptr(1), MemberIDs: []int64{1, 2}}
		Expect(store.Set(ctx, docstore.CollectionTeams, "10", team.Document())).To(Succeed())

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
		It("should persist the team and stamp its members", func() {
			created, err := service.Create(ctx, CreateTeamDTO{Name: "Back Office", LeaderID: ptr(3), MemberIDs: []int64{3}})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal(int64(11)))

			stored := loadTeam(11)
			Expect(stored.Name).To(Equal("Back Office"))
			Expect(stored.MemberIDs).To(Equal([]int64{3}))

			ines := loadEmployee(3)
			Expect(ines.TeamID).NotTo(BeNil())
			Expect(*ines.TeamID).To(Equal(int64(11)))
		})

		It("should reject a blank name", func() {
			_, err := service.Create(ctx, CreateTeamDTO{Name: "   "})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})
	})

	Describe("Update", func() {
		It("should replace the member list wholesale and restamp employees", func() {
			_, err := service.Update(ctx, 10, UpdateTeamDTO{MemberIDs: membersPtr([]int64{2, 3})})
			Expect(err).NotTo(HaveOccurred())

			Expect(loadTeam(10).MemberIDs).To(Equal([]int64{2, 3}))

			mara := loadEmployee(1)
			Expect(mara.TeamID).To(BeNil())
			ines := loadEmployee(3)
			Expect(ines.TeamID).NotTo(BeNil())
			Expect(*ines.TeamID).To(Equal(int64(10)))
			jonas := loadEmployee(2)
			Expect(jonas.TeamID).NotTo(BeNil())
			Expect(*jonas.TeamID).To(Equal(int64(10)))
		})

		It("should clear the leader when the id is zero", func() {
			_, err := service.Update(ctx, 10, UpdateTeamDTO{LeaderID: ptr(0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(loadTeam(10).LeaderID).To(BeNil())
		})

		It("should rename without touching memberships", func() {
			_, err := service.Update(ctx, 10, UpdateTeamDTO{Name: strPtr("Reception")})
			Expect(err).NotTo(HaveOccurred())

			stored := loadTeam(10)
			Expect(stored.Name).To(Equal("Reception"))
			Expect(stored.MemberIDs).To(Equal([]int64{1, 2}))
			mara := loadEmployee(1)
			Expect(mara.TeamID).NotTo(BeNil())
		})

		It("should report a missing team", func() {
			_, err := service.Update(ctx, 99, UpdateTeamDTO{Name: strPtr("Ghost")})
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("should remove the team and detach its employees", func() {
			Expect(service.Delete(ctx, 10)).To(Succeed())

			docs, err := store.QueryEquals(ctx, docstore.CollectionTeams, "id", int64(10))
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())

			Expect(loadEmployee(1).TeamID).To(BeNil())
			Expect(loadEmployee(2).TeamID).To(BeNil())
		})

		It("should stay silent when the team is unknown", func() {
			Expect(internal.IsNotFound(service.Delete(ctx, 99))).To(BeTrue())
		})
	})

	Describe("Get and List", func() {
		It("should serve reads from the mirror", func() {
			Expect(service.List(ctx)).To(HaveLen(1))

			team, err := service.Get(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(team.Name).To(Equal("Front Office"))

			_, err = service.Get(ctx, 99)
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})
})
