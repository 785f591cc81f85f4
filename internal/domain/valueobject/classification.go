package valueobject

import "github.com/ignatzorin/disaster-backend/internal/pkg/apperror"

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RequiresAlert - единственное правило эскалации: только Critical.
func (s Severity) RequiresAlert() bool {
	return s == SeverityCritical
}

func Severities() []Severity {
	return append([]Severity(nil), severities...)
}

func NewSeverity(severity string) (Severity, error) {
	key := normalizeKey(severity)
	for _, s := range severities {
		if normalizeKey(string(s)) == key {
			return s, nil
		}
	}
	return "", apperror.Validation("некорректный уровень опасности", "severity")
}

type DisasterType string

const (
	DisasterEarthquake       DisasterType = "Earthquake"
	DisasterFlood            DisasterType = "Flood"
	DisasterFire             DisasterType = "Fire"
	DisasterLandslide        DisasterType = "Landslide"
	DisasterCyclone          DisasterType = "Cyclone"
	DisasterAccident         DisasterType = "Accident"
	DisasterMedicalEmergency DisasterType = "Medical Emergency"
	DisasterOther            DisasterType = "Other"
	// DisasterEmergency проставляется экстренным сценарием бота, в меню не показывается.
	DisasterEmergency DisasterType = "Emergency"
)

var selectableDisasterTypes = []DisasterType{
	DisasterEarthquake,
	DisasterFlood,
	DisasterFire,
	DisasterLandslide,
	DisasterCyclone,
	DisasterAccident,
	DisasterMedicalEmergency,
	DisasterOther,
}

func (t DisasterType) IsValid() bool {
	if t == DisasterEmergency {
		return true
	}
	for _, known := range selectableDisasterTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SelectableDisasterTypes возвращает типы для меню выбора.
func SelectableDisasterTypes() []DisasterType {
	return append([]DisasterType(nil), selectableDisasterTypes...)
}

func NewDisasterType(disasterType string) (DisasterType, error) {
	key := normalizeKey(disasterType)
	for _, t := range append(SelectableDisasterTypes(), DisasterEmergency) {
		if normalizeKey(string(t)) == key {
			return t, nil
		}
	}
	return "", apperror.Validation("некорректный тип бедствия", "disaster_type")
}
