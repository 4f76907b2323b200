package training

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/resolver"
)

// ActionStatusChange tags the audit entry written when an update moves a
// training to a different status; plain field edits use ActionUpdate.
const (
	ActionCreate       = "training.create"
	ActionUpdate       = "training.update"
	ActionStatusChange = "training.status_change"
	ActionDelete       = "training.delete"
)

type Service struct {
	store     docstore.Store
	resolver  *resolver.Resolver
	trainings *mirror.Mirror[datamodel.Training]
	sink      *audit.Sink
	logger    *slog.Logger
}

func NewService(
	store docstore.Store,
	res *resolver.Resolver,
	trainings *mirror.Mirror[datamodel.Training],
	sink *audit.Sink,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		resolver:  res,
		trainings: trainings,
		sink:      sink,
		logger:    logger,
	}
}

func (s *Service) List(ctx context.Context) []datamodel.Training {
	return s.trainings.Items()
}

func (s *Service) Get(ctx context.Context, id int64) (datamodel.Training, error) {
	t, ok := s.trainings.Get(id)
	if !ok {
		return datamodel.Training{}, internal.NotFound("training", id)
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, dto CreateTrainingDTO) (datamodel.Training, error) {
	if err := dto.Validate(); err != nil {
		code := internal.ErrCodeValidationFailed
		if err == errInvalidStatus {
			code = internal.ErrCodeInvalidStatus
		}
		return datamodel.Training{}, internal.NewValidationError(err.Error(), code)
	}

	status := datamodel.TrainingStatus(dto.Status)
	if dto.Status == "" {
		status = datamodel.TrainingPlanned
	}
	t := datamodel.Training{
		ID:         s.trainings.Mint(),
		Title:      dto.Title,
		Status:     status,
		EmployeeID: dto.EmployeeID,
	}

	doc := t.Document()
	if err := s.store.Set(ctx, docstore.CollectionTrainings, strconv.FormatInt(t.ID, 10), doc); err != nil {
		s.logger.Error("training create write failed", "training_id", t.ID, "error", err)
		s.sink.Failure(ctx, ActionCreate, "Could not create the training")
		return datamodel.Training{}, internal.ErrSyncTransient.WithCause(err)
	}

	s.logger.Info("training created", "training_id", t.ID, "status", t.Status)
	s.sink.Success(ctx, ActionCreate, fmt.Sprintf("training %s created, %s", t.Title, audit.FieldDiff(nil, doc)))
	return t, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateTrainingDTO) (datamodel.Training, error) {
	if err := dto.Validate(); err != nil {
		code := internal.ErrCodeValidationFailed
		if err == errInvalidStatus {
			code = internal.ErrCodeInvalidStatus
		}
		return datamodel.Training{}, internal.NewValidationError(err.Error(), code)
	}

	target, ok := s.trainings.Get(id)
	if !ok {
		return datamodel.Training{}, internal.NotFound("training", id)
	}

	updated := target
	if dto.Title != nil {
		updated.Title = *dto.Title
	}
	if dto.Status != nil {
		updated.Status = datamodel.TrainingStatus(*dto.Status)
	}
	if dto.EmployeeID != nil {
		if *dto.EmployeeID == 0 {
			updated.EmployeeID = nil
		} else {
			updated.EmployeeID = dto.EmployeeID
		}
	}

	handle, err := s.resolver.WriteTarget(ctx, docstore.CollectionTrainings, id)
	if err != nil {
		s.sink.Failure(ctx, ActionUpdate, "Could not update the training")
		return datamodel.Training{}, internal.ErrSyncTransient.WithCause(err)
	}
	oldDoc, newDoc := target.Document(), updated.Document()
	if err := s.store.Update(ctx, docstore.CollectionTrainings, handle, newDoc); err != nil {
		s.logger.Error("training update write failed", "training_id", id, "error", err)
		s.sink.Failure(ctx, ActionUpdate, "Could not update the training")
		return datamodel.Training{}, internal.ErrSyncTransient.WithCause(err)
	}

	action := ActionUpdate
	if updated.Status != target.Status {
		action = ActionStatusChange
	}
	s.logger.Info("training updated", "training_id", id, "action", action)
	s.sink.Success(ctx, action, fmt.Sprintf("training %s updated, %s", updated.Title, audit.FieldDiff(oldDoc, newDoc)))
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	target, ok := s.trainings.Get(id)
	if !ok {
		return internal.NotFound("training", id)
	}

	removed, err := s.resolver.DeleteAll(ctx, docstore.CollectionTrainings, id)
	if err != nil {
		s.logger.Error("training delete failed", "training_id", id, "error", err)
		s.sink.Failure(ctx, ActionDelete, "Could not delete the training")
		return internal.ErrSyncTransient.WithCause(err)
	}
	if !removed {
		return internal.NotFound("training", id)
	}

	s.logger.Info("training deleted", "training_id", id)
	s.sink.Success(ctx, ActionDelete, fmt.Sprintf("training %s deleted", target.Title))
	return nil
}
