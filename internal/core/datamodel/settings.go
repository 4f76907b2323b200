package datamodel

// SettingsHandle is the fixed handle of the single company settings
// document inside the config collection.
const SettingsHandle = "settings"

// DefaultAbsenceColor is assigned when a legacy settings document carries
// absence type names without colors.
const DefaultAbsenceColor = "#9e9e9e"

// AbsenceType is one configurable absence category.
type AbsenceType struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Settings is the singleton company configuration document.
type Settings struct {
	CompanyName  string        `json:"company_name"`
	AbsenceTypes []AbsenceType `json:"absence_types"`
	ShiftLabels  []string      `json:"shift_labels"`
}

func DefaultSettings() Settings {
	return Settings{
		CompanyName: "",
		AbsenceTypes: []AbsenceType{
			{Name: "vacation", Color: "#4caf50"},
			{Name: "sick", Color: "#f44336"},
			{Name: "other", Color: DefaultAbsenceColor},
		},
		ShiftLabels: []string{"early", "late", "night"},
	}
}

func (s Settings) Document() map[string]any {
	types := make([]any, len(s.AbsenceTypes))
	for i, t := range s.AbsenceTypes {
		types[i] = map[string]any{"name": t.Name, "color": t.Color}
	}
	labels := make([]any, len(s.ShiftLabels))
	for i, l := range s.ShiftLabels {
		labels[i] = l
	}
	return map[string]any{
		"company_name":  s.CompanyName,
		"absence_types": types,
		"shift_labels":  labels,
	}
}

// DecodeSettings tolerates the legacy absence_types encoding, a bare list
// of names. The returned upgraded flag tells the caller the document still
// uses the old shape and should be rewritten in the current one.
func DecodeSettings(handle string, data map[string]any) (Settings, bool, error) {
	s := Settings{CompanyName: stringField(data, "company_name")}
	upgraded := false

	if raw, ok := data["absence_types"].([]any); ok {
		for _, el := range raw {
			switch v := el.(type) {
			case string:
				s.AbsenceTypes = append(s.AbsenceTypes, AbsenceType{Name: v, Color: DefaultAbsenceColor})
				upgraded = true
			case map[string]any:
				t := AbsenceType{
					Name:  stringField(v, "name"),
					Color: stringField(v, "color"),
				}
				if t.Color == "" {
					t.Color = DefaultAbsenceColor
					upgraded = true
				}
				s.AbsenceTypes = append(s.AbsenceTypes, t)
			}
		}
	}

	if raw, ok := data["shift_labels"].([]any); ok {
		for _, el := range raw {
			if l, ok := el.(string); ok {
				s.ShiftLabels = append(s.ShiftLabels, l)
			}
		}
	}

	return s, upgraded, nil
}
