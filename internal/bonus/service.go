package bonus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/mirror"
)

type Service struct {
	store   docstore.Store
	bonuses *mirror.Mirror[datamodel.Bonus]
	sink    *audit.Sink
	logger  *slog.Logger
}

func NewService(
	store docstore.Store,
	bonuses *mirror.Mirror[datamodel.Bonus],
	sink *audit.Sink,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		bonuses: bonuses,
		sink:    sink,
		logger:  logger,
	}
}

func (s *Service) List(ctx context.Context) []datamodel.Bonus {
	return s.bonuses.Items()
}

// ForEmployee returns the mirrored bonuses belonging to one employee.
func (s *Service) ForEmployee(ctx context.Context, employeeID int64) []datamodel.Bonus {
	var out []datamodel.Bonus
	for _, b := range s.bonuses.Items() {
		if b.EmployeeID == employeeID {
			out = append(out, b)
		}
	}
	return out
}

// Set stores an employee's bonus for a month. A zero amount deletes the
// record instead: a bonus of zero and no bonus at all are the same state,
// so nothing is kept for it.
func (s *Service) Set(ctx context.Context, dto SetBonusDTO) (datamodel.Bonus, error) {
	if err := dto.Validate(); err != nil {
		return datamodel.Bonus{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	b := datamodel.Bonus{
		EmployeeID: dto.EmployeeID,
		Month:      dto.Month,
		Amount:     dto.Amount,
	}

	if b.Amount.IsZero() {
		if err := s.remove(ctx, b); err != nil {
			return datamodel.Bonus{}, err
		}
		return b, nil
	}

	previous, existed := s.find(b.EmployeeID, b.Month)
	if err := s.store.Set(ctx, docstore.CollectionBonuses, b.Key(), b.Document()); err != nil {
		s.logger.Error("bonus write failed", "key", b.Key(), "error", err)
		s.sink.Failure(ctx, "bonus.set", "Could not save the bonus")
		return datamodel.Bonus{}, internal.ErrSyncTransient.WithCause(err)
	}

	var oldDoc map[string]any
	if existed {
		oldDoc = previous.Document()
	}
	s.logger.Info("bonus set", "key", b.Key(), "amount", b.Amount.String())
	s.sink.Success(ctx, "bonus.set", fmt.Sprintf("bonus for %s set, %s", b.Key(), audit.FieldDiff(oldDoc, b.Document())))
	return b, nil
}

// remove deletes the stored bonus under the canonical key plus any mirrored
// duplicates kept under drifted handles. Removing a bonus that does not
// exist is a silent no-op.
func (s *Service) remove(ctx context.Context, b datamodel.Bonus) error {
	handles := map[string]struct{}{b.Key(): {}}
	for _, e := range s.bonuses.Entries() {
		if e.Item.EmployeeID == b.EmployeeID && e.Item.Month == b.Month {
			handles[e.Handle] = struct{}{}
		}
	}

	removed := false
	var lastErr error
	for handle := range handles {
		err := s.store.Delete(ctx, docstore.CollectionBonuses, handle)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, docstore.ErrNotFound):
		default:
			s.logger.Warn("bonus delete failed", "handle", handle, "error", err)
			lastErr = err
		}
	}
	if !removed {
		if lastErr != nil {
			s.sink.Failure(ctx, "bonus.clear", "Could not remove the bonus")
			return internal.ErrSyncTransient.WithCause(lastErr)
		}
		return internal.NewNotFoundError(fmt.Sprintf("no bonus stored under %s", b.Key()), internal.ErrCodeTargetNotFound)
	}

	s.logger.Info("bonus removed", "key", b.Key())
	s.sink.Success(ctx, "bonus.clear", fmt.Sprintf("bonus for %s removed", b.Key()))
	return nil
}

func (s *Service) find(employeeID int64, month string) (datamodel.Bonus, bool) {
	for _, b := range s.bonuses.Items() {
		if b.EmployeeID == employeeID && b.Month == month {
			return b, true
		}
	}
	return datamodel.Bonus{}, false
}
