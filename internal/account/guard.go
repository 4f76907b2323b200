package account

import (
	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/mirror"
)

// Guard enforces the standing safety rule that at least one active
// administrator remains whenever any account exists. It evaluates against
// the local mirror snapshot only; there is no server-side enforcement, so
// two racing demotions can still slip past it (an accepted weakness, the
// snapshot is the best truth this client has).
type Guard struct {
	accounts *mirror.Mirror[datamodel.Account]
}

func NewGuard(accounts *mirror.Mirror[datamodel.Account]) *Guard {
	return &Guard{accounts: accounts}
}

// CheckUpdate rejects a role or active change that would remove the last
// qualifying administrator.
func (g *Guard) CheckUpdate(target datamodel.Account, newRole datamodel.Role, newActive bool) error {
	if !target.QualifiesAsAdmin() {
		return nil
	}
	stillQualifies := newRole == datamodel.RoleAdmin && newActive
	if stillQualifies {
		return nil
	}
	if g.countQualifying() <= 1 {
		return internal.ErrLastAdmin
	}
	return nil
}

// CheckDelete rejects deleting the last qualifying administrator.
func (g *Guard) CheckDelete(target datamodel.Account) error {
	if !target.QualifiesAsAdmin() {
		return nil
	}
	if g.countQualifying() <= 1 {
		return internal.ErrLastAdmin
	}
	return nil
}

func (g *Guard) countQualifying() int {
	count := 0
	for _, a := range g.accounts.Items() {
		if a.QualifiesAsAdmin() {
			count++
		}
	}
	return count
}
