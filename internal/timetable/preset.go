package timetable

import "wtt/internal/model"

// Preset is a named toolbar action that bulk-selects an hour range on a set of days.
type Preset struct {
	ID       string
	Label    string
	Days     []model.Day
	FromHour int
	ToHour   int
}

// DefaultPresets are the three toolbar buttons shipped with the widget.
func DefaultPresets() []Preset {
	return []Preset{
		{ID: "weekdays-evening", Label: "Weekdays 18-22 / 평일 저녁", Days: model.Weekdays, FromHour: 18, ToHour: 22},
		{ID: "weekends-day", Label: "Weekends 10-18 / 주말", Days: model.Weekend, FromHour: 10, ToHour: 18},
		{ID: "weekdays-morning", Label: "Weekdays 9-12 / 평일 오전", Days: model.Weekdays, FromHour: 9, ToHour: 12},
	}
}

// FindPreset looks a preset up by ID.
func FindPreset(presets []Preset, id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Apply is ApplyPreset with the preset's own days and hours.
func (p Payload) Apply(preset Preset) Payload {
	return p.ApplyPreset(preset.Days, preset.FromHour, preset.ToHour)
}
