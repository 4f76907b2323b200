package settings

import (
	"errors"
	"strings"

	"github.com/staffsync/staff-management/internal/core/datamodel"
)

// AbsenceTypeDTO mirrors datamodel.AbsenceType on the wire. A missing color
// falls back to the default one.
type AbsenceTypeDTO struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// UpdateSettingsDTO represents the request payload for updating the company
// settings. Nil slices stay unchanged; empty slices clear.
type UpdateSettingsDTO struct {
	CompanyName  *string          `json:"company_name,omitempty"`
	AbsenceTypes []AbsenceTypeDTO `json:"absence_types,omitempty"`
	ShiftLabels  []string         `json:"shift_labels,omitempty"`
}

// Validate validates the UpdateSettingsDTO
func (dto UpdateSettingsDTO) Validate() error {
	for _, t := range dto.AbsenceTypes {
		if strings.TrimSpace(t.Name) == "" {
			return errors.New("absence type name cannot be empty")
		}
	}
	for _, l := range dto.ShiftLabels {
		if strings.TrimSpace(l) == "" {
			return errors.New("shift label cannot be empty")
		}
	}
	return nil
}

func (dto UpdateSettingsDTO) apply(s datamodel.Settings) datamodel.Settings {
	if dto.CompanyName != nil {
		s.CompanyName = *dto.CompanyName
	}
	if dto.AbsenceTypes != nil {
		types := make([]datamodel.AbsenceType, 0, len(dto.AbsenceTypes))
		for _, t := range dto.AbsenceTypes {
			color := t.Color
			if color == "" {
				color = datamodel.DefaultAbsenceColor
			}
			types = append(types, datamodel.AbsenceType{Name: t.Name, Color: color})
		}
		s.AbsenceTypes = types
	}
	if dto.ShiftLabels != nil {
		s.ShiftLabels = append([]string(nil), dto.ShiftLabels...)
	}
	return s
}
