package datamodel

import (
	"fmt"
	"strings"
	"time"
)

// PlanningEntry is one shift assignment for one employee on one day. It has
// no logical id of its own; existence is presence of its composite key.
type PlanningEntry struct {
	EmployeeID int64     `json:"employee_id"`
	Date       time.Time `json:"date"`
	Shift      string    `json:"shift"`
}

// PlanningKey is the composite handle convention for planning documents:
// "{employeeID}_{date}" with the date in DateLayout. Writes keyed this way
// make a second assignment for the same employee and day overwrite the
// first instead of duplicating it.
func PlanningKey(employeeID int64, date time.Time) string {
	return fmt.Sprintf("%d_%s", employeeID, date.Format(DateLayout))
}

func (p PlanningEntry) Key() string {
	return PlanningKey(p.EmployeeID, p.Date)
}

func (p PlanningEntry) Document() map[string]any {
	return map[string]any{
		"employee_id": p.EmployeeID,
		"date":        p.Date.Format(DateLayout),
		"shift":       p.Shift,
	}
}

// DecodePlanningEntry reads the document fields and falls back to parsing
// the composite handle for records written by clients that stored the key
// alone.
func DecodePlanningEntry(handle string, data map[string]any) (PlanningEntry, error) {
	employeeID, okID := Int64Value(data["employee_id"])
	date, errDate := requireTimeField(data, "date", DateLayout)
	if !okID || errDate != nil {
		keyID, keyDate, err := splitCompositeKey(handle, DateLayout)
		if err != nil {
			return PlanningEntry{}, fmt.Errorf("planning entry %q: unusable key fields", handle)
		}
		if !okID {
			employeeID = keyID
		}
		if errDate != nil {
			date = keyDate
		}
	}
	return PlanningEntry{
		EmployeeID: employeeID,
		Date:       date,
		Shift:      stringField(data, "shift"),
	}, nil
}

// splitCompositeKey parses "{employeeID}_{datePart}" handles.
func splitCompositeKey(handle, layout string) (int64, time.Time, error) {
	parts := strings.SplitN(handle, "_", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("malformed composite key %q", handle)
	}
	id, ok := Int64Value(parts[0])
	if !ok {
		return 0, time.Time{}, fmt.Errorf("malformed composite key %q", handle)
	}
	t, err := time.Parse(layout, parts[1])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed composite key %q", handle)
	}
	return id, t, nil
}
