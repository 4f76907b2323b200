// Package integrity propagates the side effects of mutating one entity onto
// the entities that reference it. The backing store offers no cross-document
// transactions or foreign keys, so every cascade is an independent
// best-effort write: a failed cascade is logged and skipped, never rolled
// back into the primary operation.
package integrity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/resolver"
)

type Engine struct {
	store     docstore.Store
	resolver  *resolver.Resolver
	employees *mirror.Mirror[datamodel.Employee]
	teams     *mirror.Mirror[datamodel.Team]
	bonuses   *mirror.Mirror[datamodel.Bonus]
	planning  *mirror.Mirror[datamodel.PlanningEntry]
	logger    *slog.Logger
}

func NewEngine(
	store docstore.Store,
	res *resolver.Resolver,
	employees *mirror.Mirror[datamodel.Employee],
	teams *mirror.Mirror[datamodel.Team],
	bonuses *mirror.Mirror[datamodel.Bonus],
	planning *mirror.Mirror[datamodel.PlanningEntry],
	logger *slog.Logger,
) *Engine {
	return &Engine{
		store:     store,
		resolver:  res,
		employees: employees,
		teams:     teams,
		bonuses:   bonuses,
		planning:  planning,
		logger:    logger,
	}
}

// EmployeeDeleted removes the employee from every team's member set, clears
// leader references to it, and deletes its bonuses and planning entries.
func (e *Engine) EmployeeDeleted(ctx context.Context, employeeID int64) {
	for _, team := range e.teams.Items() {
		updates := map[string]any{}
		if team.HasMember(employeeID) {
			updates["members"] = datamodel.EncodeIDs(team.WithoutMember(employeeID))
		}
		if team.LeaderID != nil && *team.LeaderID == employeeID {
			updates["leader_id"] = nil
		}
		if len(updates) == 0 {
			continue
		}
		e.updateTeam(ctx, team.ID, updates)
	}

	for _, entry := range e.bonuses.Entries() {
		if entry.Item.EmployeeID != employeeID {
			continue
		}
		e.deleteKeyed(ctx, docstore.CollectionBonuses, entry.Handle)
	}

	for _, entry := range e.planning.Entries() {
		if entry.Item.EmployeeID != employeeID {
			continue
		}
		e.deleteKeyed(ctx, docstore.CollectionPlanning, entry.Handle)
	}
}

// TeamDeleted clears the team reference of every employee pointing at it.
func (e *Engine) TeamDeleted(ctx context.Context, teamID int64) {
	for _, emp := range e.employees.Items() {
		if emp.TeamID == nil || *emp.TeamID != teamID {
			continue
		}
		e.updateEmployee(ctx, emp.ID, map[string]any{"team_id": nil})
	}
}

// SyncTeamMembers diffs the old and new member sets of a team: newly added
// members get their team reference set, removed members get it cleared.
func (e *Engine) SyncTeamMembers(ctx context.Context, teamID int64, oldMembers, newMembers []int64) {
	oldSet := idSet(oldMembers)
	newSet := idSet(newMembers)

	for id := range newSet {
		if _, ok := oldSet[id]; ok {
			continue
		}
		e.updateEmployee(ctx, id, map[string]any{"team_id": teamID})
	}
	for id := range oldSet {
		if _, ok := newSet[id]; ok {
			continue
		}
		e.updateEmployee(ctx, id, map[string]any{"team_id": nil})
	}
}

func (e *Engine) updateTeam(ctx context.Context, teamID int64, updates map[string]any) {
	handle, err := e.resolver.WriteTarget(ctx, docstore.CollectionTeams, teamID)
	if err != nil {
		e.logger.Warn("cascade skipped, team unresolvable", "team_id", teamID, "error", err)
		return
	}
	if err := e.store.Update(ctx, docstore.CollectionTeams, handle, updates); err != nil {
		e.logger.Warn("team cascade write failed", "team_id", teamID, "error", err)
	}
}

func (e *Engine) updateEmployee(ctx context.Context, employeeID int64, updates map[string]any) {
	handle, err := e.resolver.WriteTarget(ctx, docstore.CollectionEmployees, employeeID)
	if err != nil {
		e.logger.Warn("cascade skipped, employee unresolvable", "employee_id", employeeID, "error", err)
		return
	}
	if err := e.store.Update(ctx, docstore.CollectionEmployees, handle, updates); err != nil {
		e.logger.Warn("employee cascade write failed", "employee_id", employeeID, "error", err)
	}
}

func (e *Engine) deleteKeyed(ctx context.Context, collection, handle string) {
	err := e.store.Delete(ctx, collection, handle)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		e.logger.Warn("cascade delete failed", "collection", collection, "handle", handle, "error", err)
	}
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
