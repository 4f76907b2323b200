package team

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/integrity"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/resolver"
)

type Service struct {
	store    docstore.Store
	resolver *resolver.Resolver
	teams    *mirror.Mirror[datamodel.Team]
	engine   *integrity.Engine
	sink     *audit.Sink
	logger   *slog.Logger
}

func NewService(
	store docstore.Store,
	res *resolver.Resolver,
	teams *mirror.Mirror[datamodel.Team],
	engine *integrity.Engine,
	sink *audit.Sink,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    store,
		resolver: res,
		teams:    teams,
		engine:   engine,
		sink:     sink,
		logger:   logger,
	}
}

func (s *Service) List(ctx context.Context) []datamodel.Team {
	return s.teams.Items()
}

func (s *Service) Get(ctx context.Context, id int64) (datamodel.Team, error) {
	t, ok := s.teams.Get(id)
	if !ok {
		return datamodel.Team{}, internal.NotFound("team", id)
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, dto CreateTeamDTO) (datamodel.Team, error) {
	if err := dto.Validate(); err != nil {
		return datamodel.Team{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	t := datamodel.Team{
		ID:        s.teams.Mint(),
		Name:      dto.Name,
		LeaderID:  dto.LeaderID,
		MemberIDs: dto.MemberIDs,
	}
	doc := t.Document()
	if err := s.store.Set(ctx, docstore.CollectionTeams, strconv.FormatInt(t.ID, 10), doc); err != nil {
		s.logger.Error("team create write failed", "team_id", t.ID, "error", err)
		s.sink.Failure(ctx, "team.create", "Could not create the team")
		return datamodel.Team{}, internal.ErrSyncTransient.WithCause(err)
	}

	s.engine.SyncTeamMembers(ctx, t.ID, nil, t.MemberIDs)

	s.logger.Info("team created", "team_id", t.ID, "members", len(t.MemberIDs))
	s.sink.Success(ctx, "team.create", fmt.Sprintf("team %s created, %s", t.Name, audit.FieldDiff(nil, doc)))
	return t, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateTeamDTO) (datamodel.Team, error) {
	if err := dto.Validate(); err != nil {
		return datamodel.Team{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	target, ok := s.teams.Get(id)
	if !ok {
		return datamodel.Team{}, internal.NotFound("team", id)
	}

	updated := target
	if dto.Name != nil {
		updated.Name = *dto.Name
	}
	if dto.LeaderID != nil {
		if *dto.LeaderID == 0 {
			updated.LeaderID = nil
		} else {
			updated.LeaderID = dto.LeaderID
		}
	}
	if dto.MemberIDs != nil {
		updated.MemberIDs = *dto.MemberIDs
	}

	handle, err := s.resolver.WriteTarget(ctx, docstore.CollectionTeams, id)
	if err != nil {
		s.sink.Failure(ctx, "team.update", "Could not update the team")
		return datamodel.Team{}, internal.ErrSyncTransient.WithCause(err)
	}
	oldDoc, newDoc := target.Document(), updated.Document()
	if err := s.store.Update(ctx, docstore.CollectionTeams, handle, newDoc); err != nil {
		s.logger.Error("team update write failed", "team_id", id, "error", err)
		s.sink.Failure(ctx, "team.update", "Could not update the team")
		return datamodel.Team{}, internal.ErrSyncTransient.WithCause(err)
	}

	if dto.MemberIDs != nil {
		s.engine.SyncTeamMembers(ctx, id, target.MemberIDs, updated.MemberIDs)
	}

	s.logger.Info("team updated", "team_id", id)
	s.sink.Success(ctx, "team.update", fmt.Sprintf("team %s updated, %s", updated.Name, audit.FieldDiff(oldDoc, newDoc)))
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	target, ok := s.teams.Get(id)
	if !ok {
		return internal.NotFound("team", id)
	}

	removed, err := s.resolver.DeleteAll(ctx, docstore.CollectionTeams, id)
	if err != nil {
		s.logger.Error("team delete failed", "team_id", id, "error", err)
		s.sink.Failure(ctx, "team.delete", "Could not delete the team")
		return internal.ErrSyncTransient.WithCause(err)
	}
	if !removed {
		return internal.NotFound("team", id)
	}

	s.engine.TeamDeleted(ctx, id)

	s.logger.Info("team deleted", "team_id", id)
	s.sink.Success(ctx, "team.delete", fmt.Sprintf("team %s deleted", target.Name))
	return nil
}
