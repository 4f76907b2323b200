package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/mirror"
)

type Service struct {
	store   docstore.Store
	entries *mirror.Mirror[datamodel.PlanningEntry]
	sink    *audit.Sink
	logger  *slog.Logger
}

func NewService(
	store docstore.Store,
	entries *mirror.Mirror[datamodel.PlanningEntry],
	sink *audit.Sink,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		entries: entries,
		sink:    sink,
		logger:  logger,
	}
}

func (s *Service) List(ctx context.Context) []datamodel.PlanningEntry {
	return s.entries.Items()
}

// ForEmployee returns the mirrored entries belonging to one employee.
func (s *Service) ForEmployee(ctx context.Context, employeeID int64) []datamodel.PlanningEntry {
	var out []datamodel.PlanningEntry
	for _, e := range s.entries.Items() {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out
}

// Set assigns a shift to an employee on a day, replacing any previous
// assignment under the same key.
func (s *Service) Set(ctx context.Context, dto SetShiftDTO) (datamodel.PlanningEntry, error) {
	if err := dto.Validate(); err != nil {
		return datamodel.PlanningEntry{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	date, _ := time.Parse(datamodel.DateLayout, dto.Date)
	entry := datamodel.PlanningEntry{
		EmployeeID: dto.EmployeeID,
		Date:       date,
		Shift:      dto.Shift,
	}

	previous, existed := s.find(entry.EmployeeID, entry.Date)
	if err := s.store.Set(ctx, docstore.CollectionPlanning, entry.Key(), entry.Document()); err != nil {
		s.logger.Error("planning write failed", "key", entry.Key(), "error", err)
		s.sink.Failure(ctx, "planning.set", "Could not save the shift assignment")
		return datamodel.PlanningEntry{}, internal.ErrSyncTransient.WithCause(err)
	}

	var oldDoc map[string]any
	if existed {
		oldDoc = previous.Document()
	}
	s.logger.Info("shift assigned", "key", entry.Key(), "shift", entry.Shift)
	s.sink.Success(ctx, "planning.set", fmt.Sprintf("shift for %s set, %s", entry.Key(), audit.FieldDiff(oldDoc, entry.Document())))
	return entry, nil
}

// Clear removes the shift assignment for an employee on a day. Clearing an
// assignment that does not exist is a silent no-op.
func (s *Service) Clear(ctx context.Context, employeeID int64, date time.Time) error {
	key := datamodel.PlanningKey(employeeID, date)

	handles := map[string]struct{}{key: {}}
	for _, e := range s.entries.Entries() {
		if e.Item.EmployeeID == employeeID && e.Item.Date.Equal(date) {
			handles[e.Handle] = struct{}{}
		}
	}

	removed := false
	var lastErr error
	for handle := range handles {
		err := s.store.Delete(ctx, docstore.CollectionPlanning, handle)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, docstore.ErrNotFound):
		default:
			s.logger.Warn("planning delete failed", "handle", handle, "error", err)
			lastErr = err
		}
	}
	if !removed {
		if lastErr != nil {
			s.sink.Failure(ctx, "planning.clear", "Could not clear the shift assignment")
			return internal.ErrSyncTransient.WithCause(lastErr)
		}
		return internal.NewNotFoundError(fmt.Sprintf("no shift assigned under %s", key), internal.ErrCodeTargetNotFound)
	}

	s.logger.Info("shift cleared", "key", key)
	s.sink.Success(ctx, "planning.clear", fmt.Sprintf("shift for %s cleared", key))
	return nil
}

func (s *Service) find(employeeID int64, date time.Time) (datamodel.PlanningEntry, bool) {
	for _, e := range s.entries.Items() {
		if e.EmployeeID == employeeID && e.Date.Equal(date) {
			return e, true
		}
	}
	return datamodel.PlanningEntry{}, false
}
