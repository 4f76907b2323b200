package account

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/identity"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/resolver"
)

// PrincipalSource exposes the signed-in principal; the session manager
// implements it. The service uses it to inject the virtual account while
// the principal's persisted profile has not propagated yet.
type PrincipalSource interface {
	Principal() (identity.Principal, bool)
}

type Service struct {
	store      docstore.Store
	resolver   *resolver.Resolver
	accounts   *mirror.Mirror[datamodel.Account]
	guard      *Guard
	sink       *audit.Sink
	principals PrincipalSource
	logger     *slog.Logger
}

func NewService(
	store docstore.Store,
	res *resolver.Resolver,
	accounts *mirror.Mirror[datamodel.Account],
	guard *Guard,
	sink *audit.Sink,
	principals PrincipalSource,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:      store,
		resolver:   res,
		accounts:   accounts,
		guard:      guard,
		sink:       sink,
		principals: principals,
		logger:     logger,
	}
}

// List returns the mirrored accounts, with the virtual account appended when
// the signed-in principal has no persisted profile yet.
func (s *Service) List(ctx context.Context) []datamodel.Account {
	accounts := s.accounts.Items()
	principal, signedIn := s.principals.Principal()
	if !signedIn {
		return accounts
	}
	for _, a := range accounts {
		if a.EmailEquals(principal.Email) {
			return accounts
		}
	}
	return append(accounts, datamodel.VirtualAccount(principal.Email, principal.Name))
}

// CurrentFor resolves the account shown for a principal: the persisted match
// by email, or the synthesized virtual account until one propagates.
func (s *Service) CurrentFor(principal identity.Principal) datamodel.Account {
	for _, a := range s.accounts.Items() {
		if a.EmailEquals(principal.Email) {
			return a
		}
	}
	return datamodel.VirtualAccount(principal.Email, principal.Name)
}

func (s *Service) Get(ctx context.Context, id int64) (datamodel.Account, error) {
	a, ok := s.accounts.Get(id)
	if !ok {
		return datamodel.Account{}, internal.NotFound("account", id)
	}
	return a, nil
}

func (s *Service) Create(ctx context.Context, dto CreateAccountDTO) (datamodel.Account, error) {
	if err := dto.Validate(); err != nil {
		return datamodel.Account{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	a := datamodel.Account{
		ID:         s.accounts.Mint(),
		Name:       dto.Name,
		Email:      dto.Email,
		Role:       datamodel.Role(dto.Role),
		Active:     dto.Active,
		EmployeeID: dto.EmployeeID,
	}
	doc := a.Document()
	if err := s.store.Set(ctx, docstore.CollectionAccounts, strconv.FormatInt(a.ID, 10), doc); err != nil {
		s.logger.Error("account create write failed", "account_id", a.ID, "error", err)
		s.sink.Failure(ctx, "account.create", "Could not create the account")
		return datamodel.Account{}, internal.ErrSyncTransient.WithCause(err)
	}

	s.logger.Info("account created", "account_id", a.ID, "role", a.Role)
	s.sink.Success(ctx, "account.create", fmt.Sprintf("account %s created, %s", a.Name, audit.FieldDiff(nil, doc)))
	return a, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateAccountDTO) (datamodel.Account, error) {
	if err := dto.Validate(); err != nil {
		return datamodel.Account{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	target, ok := s.accounts.Get(id)
	if !ok {
		return datamodel.Account{}, internal.NotFound("account", id)
	}

	updated := target
	if dto.Name != nil {
		updated.Name = *dto.Name
	}
	if dto.Role != nil {
		updated.Role = datamodel.Role(*dto.Role)
	}
	if dto.Active != nil {
		updated.Active = *dto.Active
	}
	if dto.EmployeeID != nil {
		if *dto.EmployeeID == 0 {
			updated.EmployeeID = nil
		} else {
			updated.EmployeeID = dto.EmployeeID
		}
	}

	if err := s.guard.CheckUpdate(target, updated.Role, updated.Active); err != nil {
		s.logger.Warn("account update rejected by invariant guard", "account_id", id)
		s.sink.Failure(ctx, "account.update", "At least one active administrator account must remain")
		return datamodel.Account{}, err
	}

	handle, err := s.resolver.WriteTarget(ctx, docstore.CollectionAccounts, id)
	if err != nil {
		s.sink.Failure(ctx, "account.update", "Could not update the account")
		return datamodel.Account{}, internal.ErrSyncTransient.WithCause(err)
	}
	oldDoc, newDoc := target.Document(), updated.Document()
	if err := s.store.Update(ctx, docstore.CollectionAccounts, handle, newDoc); err != nil {
		s.logger.Error("account update write failed", "account_id", id, "error", err)
		s.sink.Failure(ctx, "account.update", "Could not update the account")
		return datamodel.Account{}, internal.ErrSyncTransient.WithCause(err)
	}

	s.logger.Info("account updated", "account_id", id)
	s.sink.Success(ctx, "account.update", fmt.Sprintf("account %s updated, %s", updated.Name, audit.FieldDiff(oldDoc, newDoc)))
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	target, ok := s.accounts.Get(id)
	if !ok {
		return internal.NotFound("account", id)
	}

	if err := s.guard.CheckDelete(target); err != nil {
		s.logger.Warn("account delete rejected by invariant guard", "account_id", id)
		s.sink.Failure(ctx, "account.delete", "At least one active administrator account must remain")
		return err
	}

	removed, err := s.resolver.DeleteAll(ctx, docstore.CollectionAccounts, id)
	if err != nil {
		s.logger.Error("account delete failed", "account_id", id, "error", err)
		s.sink.Failure(ctx, "account.delete", "Could not delete the account")
		return internal.ErrSyncTransient.WithCause(err)
	}
	if !removed {
		return internal.NotFound("account", id)
	}

	s.logger.Info("account deleted", "account_id", id)
	s.sink.Success(ctx, "account.delete", fmt.Sprintf("account %s deleted", target.Name))
	return nil
}
