package team

import (
	"errors"
	"strings"
)

// CreateTeamDTO represents the request payload for creating a team
type CreateTeamDTO struct {
	Name      string  `json:"name"`
	LeaderID  *int64  `json:"leader_id,omitempty"`
	MemberIDs []int64 `json:"members,omitempty"`
}

// Validate validates the CreateTeamDTO
func (dto CreateTeamDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// UpdateTeamDTO represents the request payload for updating a team.
// Nil fields stay unchanged; a leader id of 0 clears the leader and a
// non-nil member list replaces the previous one wholesale.
type UpdateTeamDTO struct {
	Name      *string  `json:"name,omitempty"`
	LeaderID  *int64   `json:"leader_id,omitempty"`
	MemberIDs *[]int64 `json:"members,omitempty"`
}

// Validate validates the UpdateTeamDTO
func (dto UpdateTeamDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return errors.New("name cannot be empty")
	}
	return nil
}
