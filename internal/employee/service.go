package employee

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/integrity"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/resolver"
)

type Service struct {
	store     docstore.Store
	resolver  *resolver.Resolver
	employees *mirror.Mirror[datamodel.Employee]
	engine    *integrity.Engine
	sink      *audit.Sink
	logger    *slog.Logger
}

func NewService(
	store docstore.Store,
	res *resolver.Resolver,
	employees *mirror.Mirror[datamodel.Employee],
	engine *integrity.Engine,
	sink *audit.Sink,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		resolver:  res,
		employees: employees,
		engine:    engine,
		sink:      sink,
		logger:    logger,
	}
}

func (s *Service) List(ctx context.Context) []datamodel.Employee {
	return s.employees.Items()
}

func (s *Service) Get(ctx context.Context, id int64) (datamodel.Employee, error) {
	e, ok := s.employees.Get(id)
	if !ok {
		return datamodel.Employee{}, internal.NotFound("employee", id)
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, dto CreateEmployeeDTO) (datamodel.Employee, error) {
	if err := dto.Validate(); err != nil {
		code := internal.ErrCodeValidationFailed
		if err == errMalformedCode {
			code = internal.ErrCodeMalformedCode
		}
		return datamodel.Employee{}, internal.NewValidationError(err.Error(), code)
	}
	if other, taken := s.codeTaken(dto.Code, 0); taken {
		s.logger.Warn("employee code already in use", "code", dto.Code, "held_by", other.ID)
		return datamodel.Employee{}, internal.NewConflictError(
			fmt.Sprintf("code %q is already used by %s", dto.Code, other.Name),
			internal.ErrCodeDuplicateCode,
		)
	}

	e := datamodel.Employee{
		ID:     s.employees.Mint(),
		Code:   dto.Code,
		Name:   dto.Name,
		TeamID: dto.TeamID,
	}
	if dto.ExitDate != nil && *dto.ExitDate != "" {
		t, _ := time.Parse(datamodel.DateLayout, *dto.ExitDate)
		e.ExitDate = &t
	}

	doc := e.Document()
	if err := s.store.Set(ctx, docstore.CollectionEmployees, strconv.FormatInt(e.ID, 10), doc); err != nil {
		s.logger.Error("employee create write failed", "employee_id", e.ID, "error", err)
		s.sink.Failure(ctx, "employee.create", "Could not create the employee")
		return datamodel.Employee{}, internal.ErrSyncTransient.WithCause(err)
	}

	s.logger.Info("employee created", "employee_id", e.ID, "code", e.Code)
	s.sink.Success(ctx, "employee.create", fmt.Sprintf("employee %s created, %s", e.Name, audit.FieldDiff(nil, doc)))
	return e, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateEmployeeDTO) (datamodel.Employee, error) {
	if err := dto.Validate(); err != nil {
		code := internal.ErrCodeValidationFailed
		if err == errMalformedCode {
			code = internal.ErrCodeMalformedCode
		}
		return datamodel.Employee{}, internal.NewValidationError(err.Error(), code)
	}

	target, ok := s.employees.Get(id)
	if !ok {
		return datamodel.Employee{}, internal.NotFound("employee", id)
	}

	updated := target
	if dto.Code != nil {
		if other, taken := s.codeTaken(*dto.Code, id); taken {
			s.logger.Warn("employee code already in use", "code", *dto.Code, "held_by", other.ID)
			return datamodel.Employee{}, internal.NewConflictError(
				fmt.Sprintf("code %q is already used by %s", *dto.Code, other.Name),
				internal.ErrCodeDuplicateCode,
			)
		}
		updated.Code = *dto.Code
	}
	if dto.Name != nil {
		updated.Name = *dto.Name
	}
	if dto.TeamID != nil {
		if *dto.TeamID == 0 {
			updated.TeamID = nil
		} else {
			updated.TeamID = dto.TeamID
		}
	}
	if dto.ExitDate != nil {
		if *dto.ExitDate == "" {
			updated.ExitDate = nil
		} else {
			t, _ := time.Parse(datamodel.DateLayout, *dto.ExitDate)
			updated.ExitDate = &t
		}
	}

	handle, err := s.resolver.WriteTarget(ctx, docstore.CollectionEmployees, id)
	if err != nil {
		s.sink.Failure(ctx, "employee.update", "Could not update the employee")
		return datamodel.Employee{}, internal.ErrSyncTransient.WithCause(err)
	}
	oldDoc, newDoc := target.Document(), updated.Document()
	if err := s.store.Update(ctx, docstore.CollectionEmployees, handle, newDoc); err != nil {
		s.logger.Error("employee update write failed", "employee_id", id, "error", err)
		s.sink.Failure(ctx, "employee.update", "Could not update the employee")
		return datamodel.Employee{}, internal.ErrSyncTransient.WithCause(err)
	}

	s.logger.Info("employee updated", "employee_id", id)
	s.sink.Success(ctx, "employee.update", fmt.Sprintf("employee %s updated, %s", updated.Name, audit.FieldDiff(oldDoc, newDoc)))
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	target, ok := s.employees.Get(id)
	if !ok {
		return internal.NotFound("employee", id)
	}

	removed, err := s.resolver.DeleteAll(ctx, docstore.CollectionEmployees, id)
	if err != nil {
		s.logger.Error("employee delete failed", "employee_id", id, "error", err)
		s.sink.Failure(ctx, "employee.delete", "Could not delete the employee")
		return internal.ErrSyncTransient.WithCause(err)
	}
	if !removed {
		return internal.NotFound("employee", id)
	}

	s.engine.EmployeeDeleted(ctx, id)

	s.logger.Info("employee deleted", "employee_id", id)
	s.sink.Success(ctx, "employee.delete", fmt.Sprintf("employee %s deleted", target.Name))
	return nil
}

// codeTaken scans the mirror for another employee holding the same
// normalized code. Codes compare case-insensitively after trimming.
func (s *Service) codeTaken(code string, selfID int64) (datamodel.Employee, bool) {
	normalized := datamodel.NormalizeCode(code)
	for _, e := range s.employees.Items() {
		if e.ID == selfID {
			continue
		}
		if datamodel.NormalizeCode(e.Code) == normalized {
			return e, true
		}
	}
	return datamodel.Employee{}, false
}
