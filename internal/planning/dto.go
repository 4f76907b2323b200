package planning

import (
	"errors"
	"strings"
	"time"

	"github.com/staffsync/staff-management/internal/core/datamodel"
)

// SetShiftDTO represents the request payload for assigning a shift to an
// employee on a calendar day. The pair (employee_id, date) is the identity
// of the entry; setting it again replaces the previous shift.
type SetShiftDTO struct {
	EmployeeID int64  `json:"employee_id"`
	Date       string `json:"date"`
	Shift      string `json:"shift"`
}

// Validate validates the SetShiftDTO
func (dto SetShiftDTO) Validate() error {
	if dto.EmployeeID <= 0 {
		return errors.New("employee_id is required")
	}
	if _, err := time.Parse(datamodel.DateLayout, dto.Date); err != nil {
		return errors.New("date must be formatted YYYY-MM-DD")
	}
	if strings.TrimSpace(dto.Shift) == "" {
		return errors.New("shift is required")
	}
	return nil
}
