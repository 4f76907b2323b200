package employee

import (
	"errors"
	"strings"
	"time"

	"github.com/staffsync/staff-management/internal/core/datamodel"
)

// CreateEmployeeDTO represents the request payload for creating an employee
type CreateEmployeeDTO struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	TeamID   *int64  `json:"team_id,omitempty"`
	ExitDate *string `json:"exit_date,omitempty"`
}

// Validate validates the CreateEmployeeDTO
func (dto CreateEmployeeDTO) Validate() error {
	if err := validateCode(dto.Code); err != nil {
		return err
	}
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("name is required")
	}
	if dto.ExitDate != nil && *dto.ExitDate != "" {
		if _, err := time.Parse(datamodel.DateLayout, *dto.ExitDate); err != nil {
			return errors.New("exit date must be formatted YYYY-MM-DD")
		}
	}
	return nil
}

// UpdateEmployeeDTO represents the request payload for updating an employee.
// Nil fields stay unchanged; a team id of 0 clears the team link and an
// empty exit date string clears the exit date.
type UpdateEmployeeDTO struct {
	Code     *string `json:"code,omitempty"`
	Name     *string `json:"name,omitempty"`
	TeamID   *int64  `json:"team_id,omitempty"`
	ExitDate *string `json:"exit_date,omitempty"`
}

// Validate validates the UpdateEmployeeDTO
func (dto UpdateEmployeeDTO) Validate() error {
	if dto.Code != nil {
		if err := validateCode(*dto.Code); err != nil {
			return err
		}
	}
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if dto.ExitDate != nil && *dto.ExitDate != "" {
		if _, err := time.Parse(datamodel.DateLayout, *dto.ExitDate); err != nil {
			return errors.New("exit date must be formatted YYYY-MM-DD")
		}
	}
	return nil
}

var errMalformedCode = errors.New("code must be non-empty and alphanumeric")

func validateCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errMalformedCode
	}
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return errMalformedCode
		}
	}
	return nil
}
