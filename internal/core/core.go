// Package core assembles the synchronized data-store engine: store, mirrors,
// resolver, integrity cascades, audit sink and session lifecycle, exposed as
// one explicit context object with a defined init/teardown cycle instead of
// ambient globals.
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/staffsync/staff-management/internal/account"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/bonus"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/core/events"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/employee"
	"github.com/staffsync/staff-management/internal/identity"
	"github.com/staffsync/staff-management/internal/integrity"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/planning"
	"github.com/staffsync/staff-management/internal/resolver"
	"github.com/staffsync/staff-management/internal/session"
	"github.com/staffsync/staff-management/internal/settings"
	"github.com/staffsync/staff-management/internal/team"
	"github.com/staffsync/staff-management/internal/training"
)

type Config struct {
	Session         session.Config
	NotificationTTL time.Duration
}

// Core is the assembled engine. All fields are wired once in New and stay
// valid for the process lifetime; session state inside them follows the
// principal lifecycle.
type Core struct {
	Store    docstore.Store
	Provider identity.Provider
	Bus      *events.EventBus
	Status   *mirror.Status
	Registry *mirror.Registry

	Employees *mirror.Mirror[datamodel.Employee]
	Teams     *mirror.Mirror[datamodel.Team]
	Accounts  *mirror.Mirror[datamodel.Account]
	Trainings *mirror.Mirror[datamodel.Training]
	Planning  *mirror.Mirror[datamodel.PlanningEntry]
	Bonuses   *mirror.Mirror[datamodel.Bonus]
	AuditLog  *mirror.Mirror[datamodel.AuditEntry]

	Resolver      *resolver.Resolver
	Integrity     *integrity.Engine
	Notifications *audit.Center
	Sink          *audit.Sink
	Guard         *account.Guard

	Session         *session.Manager
	SettingsService *settings.Service
	AccountService  *account.Service
	EmployeeService *employee.Service
	TeamService     *team.Service
	PlanningService *planning.Service
	BonusService    *bonus.Service
	TrainingService *training.Service

	logger *slog.Logger
}

func New(store docstore.Store, provider identity.Provider, cfg Config, logger *slog.Logger) *Core {
	c := &Core{
		Store:    store,
		Provider: provider,
		logger:   logger,
	}

	c.Bus = events.NewEventBus(logger)
	c.Status = mirror.NewStatus(logger)
	c.Registry = mirror.NewRegistry(c.Status, logger)

	c.Employees = mirror.New(docstore.CollectionEmployees, store,
		func(doc docstore.Document) (datamodel.Employee, error) {
			return datamodel.DecodeEmployee(doc.Handle, doc.Data)
		},
		func(e datamodel.Employee) int64 { return e.ID },
		c.Status, logger)
	c.Teams = mirror.New(docstore.CollectionTeams, store,
		func(doc docstore.Document) (datamodel.Team, error) {
			return datamodel.DecodeTeam(doc.Handle, doc.Data)
		},
		func(t datamodel.Team) int64 { return t.ID },
		c.Status, logger)
	c.Accounts = mirror.New(docstore.CollectionAccounts, store,
		func(doc docstore.Document) (datamodel.Account, error) {
			return datamodel.DecodeAccount(doc.Handle, doc.Data)
		},
		func(a datamodel.Account) int64 { return a.ID },
		c.Status, logger)
	c.Trainings = mirror.New(docstore.CollectionTrainings, store,
		func(doc docstore.Document) (datamodel.Training, error) {
			return datamodel.DecodeTraining(doc.Handle, doc.Data)
		},
		func(t datamodel.Training) int64 { return t.ID },
		c.Status, logger)
	c.Planning = mirror.New(docstore.CollectionPlanning, store,
		func(doc docstore.Document) (datamodel.PlanningEntry, error) {
			return datamodel.DecodePlanningEntry(doc.Handle, doc.Data)
		},
		nil, c.Status, logger)
	c.Bonuses = mirror.New(docstore.CollectionBonuses, store,
		func(doc docstore.Document) (datamodel.Bonus, error) {
			return datamodel.DecodeBonus(doc.Handle, doc.Data)
		},
		nil, c.Status, logger)
	c.AuditLog = mirror.New(docstore.CollectionAuditLog, store,
		func(doc docstore.Document) (datamodel.AuditEntry, error) {
			return datamodel.DecodeAuditEntry(doc.Handle, doc.Data)
		},
		nil, c.Status, logger)

	c.Registry.Register(c.Employees)
	c.Registry.Register(c.Teams)
	c.Registry.Register(c.Accounts)
	c.Registry.Register(c.Trainings)
	c.Registry.Register(c.Planning)
	c.Registry.Register(c.Bonuses)
	c.Registry.Register(c.AuditLog)

	c.Notifications = audit.NewCenter(cfg.NotificationTTL, c.Bus, logger)
	c.Sink = audit.NewSink(store, c.Notifications, c.Bus, logger)
	c.Status.SetOnTransient(func(collection string, err error) {
		c.Notifications.Push(audit.SeverityError, "Synchronization of "+collection+" is temporarily degraded")
		c.Bus.Publish(context.Background(), events.NewBaseEvent(events.TypeSyncDegraded, map[string]interface{}{
			"collection": collection,
			"error":      err.Error(),
		}))
	})

	c.SettingsService = settings.NewService(store, c.Status, c.Sink, logger)
	c.Registry.Register(c.SettingsService)

	c.Resolver = resolver.New(store, c.Registry, logger)
	c.Integrity = integrity.NewEngine(store, c.Resolver, c.Employees, c.Teams, c.Bonuses, c.Planning, logger)
	c.Guard = account.NewGuard(c.Accounts)

	c.Session = session.NewManager(provider, store, c.Registry, c.Accounts, c.Sink, c.Bus, cfg.Session, logger)

	c.AccountService = account.NewService(store, c.Resolver, c.Accounts, c.Guard, c.Sink, c.Session, logger)
	c.EmployeeService = employee.NewService(store, c.Resolver, c.Employees, c.Integrity, c.Sink, logger)
	c.TeamService = team.NewService(store, c.Resolver, c.Teams, c.Integrity, c.Sink, logger)
	c.PlanningService = planning.NewService(store, c.Planning, c.Sink, logger)
	c.BonusService = bonus.NewService(store, c.Bonuses, c.Sink, logger)
	c.TrainingService = training.NewService(store, c.Resolver, c.Trainings, c.Sink, logger)

	return c
}

// Init starts listening for principal changes. Mirrors start on the first
// signed-in notification, not here.
func (c *Core) Init(ctx context.Context) {
	c.Session.Init(ctx)
	c.logger.Info("core initialized")
}

// Teardown stops every subscription and drops the local snapshots.
func (c *Core) Teardown() {
	c.Registry.StopAll()
	c.Registry.ClearAll()
	c.logger.Info("core torn down")
}
