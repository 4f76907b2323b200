package datamodel

// Team groups employees under an optional leader. MemberIDs preserves the
// order in which members were added.
type Team struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	LeaderID  *int64  `json:"leader_id,omitempty"`
	MemberIDs []int64 `json:"member_ids"`
}

// HasMember reports whether employeeID is in the member set.
func (t Team) HasMember(employeeID int64) bool {
	for _, id := range t.MemberIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}

// WithoutMember returns a copy of the member list with employeeID removed,
// preserving the order of the remaining members.
func (t Team) WithoutMember(employeeID int64) []int64 {
	out := make([]int64, 0, len(t.MemberIDs))
	for _, id := range t.MemberIDs {
		if id != employeeID {
			out = append(out, id)
		}
	}
	return out
}

func (t Team) Document() map[string]any {
	return map[string]any{
		"id":        t.ID,
		"name":      t.Name,
		"leader_id": EncodeOptionalID(t.LeaderID),
		"members":   EncodeIDs(t.MemberIDs),
	}
}

func DecodeTeam(handle string, data map[string]any) (Team, error) {
	id, err := requireID(data, "team")
	if err != nil {
		return Team{}, err
	}
	return Team{
		ID:        id,
		Name:      stringField(data, "name"),
		LeaderID:  optionalInt64Field(data, "leader_id"),
		MemberIDs: int64SliceField(data, "members"),
	}, nil
}
