package datamodel

import "strings"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// VirtualAccountID is reserved for the synthesized account shown to a
// signed-in principal whose persisted profile has not propagated yet. No
// persisted account may ever carry it.
const VirtualAccountID int64 = 0

// Account is the application-level profile of a principal.
type Account struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Active     bool   `json:"active"`
	EmployeeID *int64 `json:"employee_id,omitempty"`
	// Virtual marks the synthesized, never-persisted account.
	Virtual bool `json:"virtual,omitempty"`
}

// QualifiesAsAdmin reports whether the account counts toward the set of
// active administrators.
func (a Account) QualifiesAsAdmin() bool {
	return a.Role == RoleAdmin && a.Active
}

// EmailEquals compares email addresses case-insensitively.
func (a Account) EmailEquals(email string) bool {
	return strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(email))
}

// VirtualAccount synthesizes the placeholder account for a signed-in
// principal whose profile document has not arrived yet. It is rendered with
// the least privileged role and is never written to the store.
func VirtualAccount(email, name string) Account {
	if name == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		} else {
			name = email
		}
	}
	return Account{
		ID:      VirtualAccountID,
		Name:    name,
		Email:   email,
		Role:    RoleViewer,
		Active:  false,
		Virtual: true,
	}
}

func (a Account) Document() map[string]any {
	return map[string]any{
		"id":          a.ID,
		"name":        a.Name,
		"email":       strings.ToLower(strings.TrimSpace(a.Email)),
		"role":        string(a.Role),
		"active":      a.Active,
		"employee_id": EncodeOptionalID(a.EmployeeID),
	}
}

func DecodeAccount(handle string, data map[string]any) (Account, error) {
	id, err := requireID(data, "account")
	if err != nil {
		return Account{}, err
	}
	return Account{
		ID:         id,
		Name:       stringField(data, "name"),
		Email:      stringField(data, "email"),
		Role:       Role(stringField(data, "role")),
		Active:     boolField(data, "active"),
		EmployeeID: optionalInt64Field(data, "employee_id"),
	}, nil
}
