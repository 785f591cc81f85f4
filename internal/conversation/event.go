package conversation

import "time"

type EventKind int

const (
	EventText EventKind = iota
	EventCommand
	// EventChoice - нажатие inline-кнопки, Text содержит её payload.
	EventChoice
	EventLocation
	EventPhoto
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventCommand:
		return "command"
	case EventChoice:
		return "choice"
	case EventLocation:
		return "location"
	case EventPhoto:
		return "photo"
	}
	return "unknown"
}

// Event - входящее сообщение, уже нормализованное транспортом.
type Event struct {
	UserID   string
	UserName string
	ChatID   string
	Kind     EventKind
	// Text: текст сообщения, имя команды без "/" или payload кнопки.
	Text      string
	Args      []string
	Latitude  float64
	Longitude float64
	PhotoRef  string
	At        time.Time
}

// Choice - inline-кнопка.
type Choice struct {
	Label string
	Data  string
}

// Reply - исходящее сообщение, не привязанное к платформе.
type Reply struct {
	Text     string
	Markdown bool
	// Choices рисуются как inline-кнопки.
	Choices [][]Choice
	// Keyboard - постоянная клавиатура с текстовыми кнопками.
	Keyboard [][]string
	// RequestLocation просит клиента показать кнопку отправки геопозиции.
	RequestLocation bool
	RemoveKeyboard  bool
}
