package bonus

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/staffsync/staff-management/internal/core/datamodel"
)

// SetBonusDTO represents the request payload for setting an employee's
// bonus for a month. An amount of zero removes the stored bonus instead
// of persisting a zero record.
type SetBonusDTO struct {
	EmployeeID int64           `json:"employee_id"`
	Month      string          `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
}

// Validate validates the SetBonusDTO
func (dto SetBonusDTO) Validate() error {
	if dto.EmployeeID <= 0 {
		return errors.New("employee_id is required")
	}
	if !datamodel.ValidMonth(dto.Month) {
		return errors.New("month must be formatted YYYY-MM")
	}
	if dto.Amount.IsNegative() {
		return errors.New("amount cannot be negative")
	}
	return nil
}
