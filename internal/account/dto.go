package account

import (
	"errors"
	"strings"

	"github.com/staffsync/staff-management/internal/core/datamodel"
)

// CreateAccountDTO represents the request payload for creating an account
type CreateAccountDTO struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Active     bool   `json:"active"`
	EmployeeID *int64 `json:"employee_id,omitempty"`
}

// Validate validates the CreateAccountDTO
func (dto CreateAccountDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("name is required")
	}
	if !strings.Contains(dto.Email, "@") {
		return errors.New("a valid email is required")
	}
	if !datamodel.Role(dto.Role).Valid() {
		return errors.New("role must be admin, manager or viewer")
	}
	return nil
}

// UpdateAccountDTO represents the request payload for updating an account.
// Nil fields stay unchanged; an employee id of 0 clears the employee link
// (0 is reserved for the virtual account and never names a real employee).
type UpdateAccountDTO struct {
	Name       *string `json:"name,omitempty"`
	Role       *string `json:"role,omitempty"`
	Active     *bool   `json:"active,omitempty"`
	EmployeeID *int64  `json:"employee_id,omitempty"`
}

// Validate validates the UpdateAccountDTO
func (dto UpdateAccountDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if dto.Role != nil && !datamodel.Role(*dto.Role).Valid() {
		return errors.New("role must be admin, manager or viewer")
	}
	return nil
}
