package datamodel

type TrainingStatus string

const (
	TrainingPlanned   TrainingStatus = "planned"
	TrainingScheduled TrainingStatus = "scheduled"
	TrainingDone      TrainingStatus = "done"
	TrainingCancelled TrainingStatus = "cancelled"
)

func (s TrainingStatus) Valid() bool {
	switch s {
	case TrainingPlanned, TrainingScheduled, TrainingDone, TrainingCancelled:
		return true
	}
	return false
}

// Training is one training record. The employee linkage is optional; a
// training may be created before anyone is assigned to it.
type Training struct {
	ID         int64          `json:"id"`
	Title      string         `json:"title"`
	Status     TrainingStatus `json:"status"`
	EmployeeID *int64         `json:"employee_id,omitempty"`
}

func (t Training) Document() map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"status":      string(t.Status),
		"employee_id": EncodeOptionalID(t.EmployeeID),
	}
}

func DecodeTraining(handle string, data map[string]any) (Training, error) {
	id, err := requireID(data, "training")
	if err != nil {
		return Training{}, err
	}
	return Training{
		ID:         id,
		Title:      stringField(data, "title"),
		Status:     TrainingStatus(stringField(data, "status")),
		EmployeeID: optionalInt64Field(data, "employee_id"),
	}, nil
}
