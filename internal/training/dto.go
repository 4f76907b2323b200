package training

import (
	"errors"
	"strings"

	"github.com/staffsync/staff-management/internal/core/datamodel"
)

var errInvalidStatus = errors.New("status must be planned, scheduled, done or cancelled")

// CreateTrainingDTO represents the request payload for creating a training.
// An empty status defaults to planned.
type CreateTrainingDTO struct {
	Title      string `json:"title"`
	Status     string `json:"status,omitempty"`
	EmployeeID *int64 `json:"employee_id,omitempty"`
}

// Validate validates the CreateTrainingDTO
func (dto CreateTrainingDTO) Validate() error {
	if strings.TrimSpace(dto.Title) == "" {
		return errors.New("title is required")
	}
	if dto.Status != "" && !datamodel.TrainingStatus(dto.Status).Valid() {
		return errInvalidStatus
	}
	return nil
}

// UpdateTrainingDTO represents the request payload for updating a training.
// Nil fields stay unchanged; an employee id of 0 clears the linkage.
type UpdateTrainingDTO struct {
	Title      *string `json:"title,omitempty"`
	Status     *string `json:"status,omitempty"`
	EmployeeID *int64  `json:"employee_id,omitempty"`
}

// Validate validates the UpdateTrainingDTO
func (dto UpdateTrainingDTO) Validate() error {
	if dto.Title != nil && strings.TrimSpace(*dto.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if dto.Status != nil && !datamodel.TrainingStatus(*dto.Status).Valid() {
		return errInvalidStatus
	}
	return nil
}
