package transport

import (
	"strconv"
	"strings"
	"time"

	"github.com/ignatzorin/disaster-backend/internal/conversation"
)

// CommandLocation - текстовая замена кнопке геопозиции: /location <lat> <lng>.
const CommandLocation = "location"

// ParseCommand разбирает "/cmd@bot arg1 arg2" или "!cmd arg1".
// Имя команды приводится к нижнему регистру, суффикс @bot отбрасывается.
func ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || (text[0] != '/' && text[0] != '!') {
		return "", nil, false
	}

	parts := strings.Fields(text[1:])
	if len(parts) == 0 {
		return "", nil, false
	}
	name := parts[0]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), parts[1:], true
}

// TextEvent строит событие из текста сообщения: команда, координаты из /location
// или обычный текст. base должен содержать пользователя и чат.
func TextEvent(base conversation.Event, text string) conversation.Event {
	ev := base
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	cmd, args, ok := ParseCommand(text)
	if !ok {
		ev.Kind = conversation.EventText
		ev.Text = text
		return ev
	}

	if cmd == CommandLocation {
		if lat, lng, ok := parseCoordinates(args); ok {
			ev.Kind = conversation.EventLocation
			ev.Latitude = lat
			ev.Longitude = lng
			return ev
		}
	}

	ev.Kind = conversation.EventCommand
	ev.Text = cmd
	ev.Args = args
	return ev
}

// parseCoordinates принимает "13.08 80.27" и "13.08, 80.27".
func parseCoordinates(args []string) (float64, float64, bool) {
	joined := strings.ReplaceAll(strings.Join(args, " "), ",", " ")
	parts := strings.Fields(joined)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
