package datamodel

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout formats the month component of bonus handles and documents.
const MonthLayout = "2006-01"

// Bonus is one monthly bonus amount for one employee. Like planning entries
// it has no logical id; its composite key is its identity, and a zero amount
// is equivalent to the bonus not existing.
type Bonus struct {
	EmployeeID int64           `json:"employee_id"`
	Month      string          `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
}

// BonusKey is the composite handle convention for bonus documents:
// "{employeeID}_{month}" with the month in MonthLayout.
func BonusKey(employeeID int64, month string) string {
	return fmt.Sprintf("%d_%s", employeeID, month)
}

func (b Bonus) Key() string {
	return BonusKey(b.EmployeeID, b.Month)
}

// ValidMonth reports whether s parses in MonthLayout.
func ValidMonth(s string) bool {
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}

func (b Bonus) Document() map[string]any {
	return map[string]any{
		"employee_id": b.EmployeeID,
		"month":       b.Month,
		"amount":      b.Amount.String(),
	}
}

// DecodeBonus reads the document fields and falls back to parsing the
// composite handle for records written by clients that stored the key alone.
func DecodeBonus(handle string, data map[string]any) (Bonus, error) {
	employeeID, okID := Int64Value(data["employee_id"])
	month := stringField(data, "month")
	if !okID || !ValidMonth(month) {
		keyID, keyMonth, err := splitCompositeKey(handle, MonthLayout)
		if err != nil {
			return Bonus{}, fmt.Errorf("bonus %q: unusable key fields", handle)
		}
		if !okID {
			employeeID = keyID
		}
		if !ValidMonth(month) {
			month = keyMonth.Format(MonthLayout)
		}
	}
	amount, err := decimalField(data, "amount")
	if err != nil {
		return Bonus{}, fmt.Errorf("bonus %q: %w", handle, err)
	}
	return Bonus{
		EmployeeID: employeeID,
		Month:      month,
		Amount:     amount,
	}, nil
}
