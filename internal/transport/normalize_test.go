package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/disaster-backend/internal/conversation"
	"github.com/ignatzorin/disaster-backend/internal/transport"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		text string
		cmd  string
		args []string
		ok   bool
	}{
		{name: "simple", text: "/report", cmd: "report", ok: true},
		{name: "bot suffix", text: "/Status@disaster_bot", cmd: "status", ok: true},
		{name: "bang prefix", text: "!emergency", cmd: "emergency", ok: true},
		{name: "arguments", text: "/location 13.08 80.27", cmd: "location", args: []string{"13.08", "80.27"}, ok: true},
		{name: "plain text", text: "flood near river", ok: false},
		{name: "slash only", text: "/", ok: false},
		{name: "slash and space", text: "/ report", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, ok := transport.ParseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.cmd, cmd)
			if len(tt.args) > 0 {
				assert.Equal(t, tt.args, args)
			} else {
				assert.Empty(t, args)
			}
		})
	}
}

func TestTextEvent(t *testing.T) {
	base := conversation.Event{UserID: "42", ChatID: "42"}

	t.Run("plain text", func(t *testing.T) {
		ev := transport.TextEvent(base, "water is rising")
		assert.Equal(t, conversation.EventText, ev.Kind)
		assert.Equal(t, "water is rising", ev.Text)
		assert.Equal(t, "42", ev.UserID)
		assert.False(t, ev.At.IsZero())
	})

	t.Run("command", func(t *testing.T) {
		ev := transport.TextEvent(base, "/report now")
		assert.Equal(t, conversation.EventCommand, ev.Kind)
		assert.Equal(t, "report", ev.Text)
		assert.Equal(t, []string{"now"}, ev.Args)
	})

	t.Run("location command", func(t *testing.T) {
		ev := transport.TextEvent(base, "/location 13.0827, 80.2707")
		assert.Equal(t, conversation.EventLocation, ev.Kind)
		assert.InDelta(t, 13.0827, ev.Latitude, 1e-9)
		assert.InDelta(t, 80.2707, ev.Longitude, 1e-9)
	})

	t.Run("location without coordinates stays a command", func(t *testing.T) {
		ev := transport.TextEvent(base, "/location somewhere")
		assert.Equal(t, conversation.EventCommand, ev.Kind)
		assert.Equal(t, transport.CommandLocation, ev.Text)
	})
}
