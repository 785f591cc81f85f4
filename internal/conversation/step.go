package conversation

// Step - текущий шаг диалога сбора отчёта.
type Step int

const (
	StepIdle Step = iota
	StepAwaitingDisasterType
	StepAwaitingSeverity
	StepAwaitingLocation
	StepAwaitingDescription
	StepAwaitingPhotos
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepAwaitingDisasterType:
		return "awaiting_disaster_type"
	case StepAwaitingSeverity:
		return "awaiting_severity"
	case StepAwaitingLocation:
		return "awaiting_location"
	case StepAwaitingDescription:
		return "awaiting_description"
	case StepAwaitingPhotos:
		return "awaiting_photos"
	case StepComplete:
		return "complete"
	}
	return "unknown"
}

// InFlow сообщает, что пользователь находится внутри сценария.
func (s Step) InFlow() bool {
	return s != StepIdle && s != StepComplete
}

// Flow различает обычный сценарий и экстренный.
type Flow int

const (
	FlowStandard Flow = iota
	// FlowEmergency: тип Emergency и Critical проставлены заранее, после локации отчёт отправляется сразу.
	FlowEmergency
)

func (f Flow) String() string {
	if f == FlowEmergency {
		return "emergency"
	}
	return "standard"
}
