package datamodel

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Employee is a personnel record. Code is the human-assigned identifying
// code, unique across all employees when compared case-insensitively after
// trimming.
type Employee struct {
	ID       int64      `json:"id"`
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	TeamID   *int64     `json:"team_id,omitempty"`
	ExitDate *time.Time `json:"exit_date,omitempty"`
}

// NormalizeCode is the canonical form used for uniqueness comparison.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func (e Employee) Document() map[string]any {
	doc := map[string]any{
		"id":      e.ID,
		"code":    e.Code,
		"name":    e.Name,
		"team_id": EncodeOptionalID(e.TeamID),
	}
	if e.ExitDate != nil {
		doc["exit_date"] = e.ExitDate.Format(DateLayout)
	} else {
		doc["exit_date"] = nil
	}
	return doc
}

func DecodeEmployee(handle string, data map[string]any) (Employee, error) {
	id, err := requireID(data, "employee")
	if err != nil {
		return Employee{}, err
	}
	return Employee{
		ID:       id,
		Code:     stringField(data, "code"),
		Name:     stringField(data, "name"),
		TeamID:   optionalInt64Field(data, "team_id"),
		ExitDate: timeField(data, "exit_date", DateLayout),
	}, nil
}
