package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/disaster-backend/internal/conversation"
	"github.com/ignatzorin/disaster-backend/internal/logger"
)

type mockClient struct {
	mu        sync.Mutex
	updates   chan tgbotapi.Update
	stopped   bool
	sent      []tgbotapi.Chattable
	requests  []tgbotapi.Chattable
	sendErrs  []error
	sendCalls int
}

func newMockClient() *mockClient {
	return &mockClient{updates: make(chan tgbotapi.Update, 10)}
}

func (m *mockClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockClient) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.stopped = true
		close(m.updates)
	}
}

func (m *mockClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCalls++
	if len(m.sendErrs) > 0 {
		err := m.sendErrs[0]
		m.sendErrs = m.sendErrs[1:]
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func (m *mockClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func newTestAdapter(t *testing.T) (*Adapter, *mockClient) {
	t.Helper()
	logger.Discard()
	mc := newMockClient()
	a, err := New(AdapterOpts{Client: mc})
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))
	return a, mc
}

func receive(t *testing.T, ch <-chan conversation.Event) conversation.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return conversation.Event{}
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(AdapterOpts{})
	assert.Error(t, err)
}

func TestSend_NotConnected(t *testing.T) {
	a, err := New(AdapterOpts{Client: newMockClient()})
	require.NoError(t, err)
	assert.Error(t, a.Send(context.Background(), "1", conversation.Reply{Text: "hi"}))
}

func TestListen_NormalizesUpdates(t *testing.T) {
	a, mc := newTestAdapter(t)
	ch, err := a.Listen(context.Background())
	require.NoError(t, err)

	from := &tgbotapi.User{ID: 42, UserName: "asha"}
	chat := &tgbotapi.Chat{ID: 4242}

	mc.updates <- tgbotapi.Update{Message: &tgbotapi.Message{From: from, Chat: chat, Text: "/report@disaster_bot"}}
	ev := receive(t, ch)
	assert.Equal(t, conversation.EventCommand, ev.Kind)
	assert.Equal(t, conversation.CommandReport, ev.Text)
	assert.Equal(t, "42", ev.UserID)
	assert.Equal(t, "4242", ev.ChatID)
	assert.Equal(t, "asha", ev.UserName)

	mc.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: from, Chat: chat,
		Location: &tgbotapi.Location{Latitude: 13.0827, Longitude: 80.2707},
	}}
	ev = receive(t, ch)
	assert.Equal(t, conversation.EventLocation, ev.Kind)
	assert.InDelta(t, 13.0827, ev.Latitude, 1e-9)
	assert.InDelta(t, 80.2707, ev.Longitude, 1e-9)

	mc.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: from, Chat: chat,
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}}
	ev = receive(t, ch)
	assert.Equal(t, conversation.EventPhoto, ev.Kind)
	assert.Equal(t, "large", ev.PhotoRef)

	// Стикер без текста пропускается, следующий callback доходит.
	mc.updates <- tgbotapi.Update{Message: &tgbotapi.Message{From: from, Chat: chat}}
	mc.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb-1", From: from, Message: &tgbotapi.Message{Chat: chat}, Data: "type_Flood",
	}}
	ev = receive(t, ch)
	assert.Equal(t, conversation.EventChoice, ev.Kind)
	assert.Equal(t, "type_Flood", ev.Text)

	mc.mu.Lock()
	assert.Len(t, mc.requests, 1, "callback must be answered")
	mc.mu.Unlock()
}

func TestDisplayName_FallsBackToFirstName(t *testing.T) {
	assert.Equal(t, "Asha", displayName(&tgbotapi.User{FirstName: "Asha"}))
}

func TestClose_ClosesInbound(t *testing.T) {
	a, mc := newTestAdapter(t)
	ch, err := a.Listen(context.Background())
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("inbound channel not closed")
	}
	mc.mu.Lock()
	assert.True(t, mc.stopped)
	mc.mu.Unlock()
}

func TestClose_WithoutListen(t *testing.T) {
	a, _ := newTestAdapter(t)
	require.NoError(t, a.Close())
	assert.Error(t, a.Connect(context.Background()))
}

func TestBuildMessage(t *testing.T) {
	t.Run("inline choices", func(t *testing.T) {
		msg := BuildMessage(1, conversation.Reply{
			Text:     "*pick*",
			Markdown: true,
			Choices:  [][]conversation.Choice{{{Label: "Flood", Data: "type_Flood"}, {Label: "Fire", Data: "type_Fire"}}},
		})
		assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
		markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		require.True(t, ok)
		require.Len(t, markup.InlineKeyboard, 1)
		require.Len(t, markup.InlineKeyboard[0], 2)
		require.NotNil(t, markup.InlineKeyboard[0][1].CallbackData)
		assert.Equal(t, "type_Fire", *markup.InlineKeyboard[0][1].CallbackData)
	})

	t.Run("location request", func(t *testing.T) {
		msg := BuildMessage(1, conversation.Reply{Text: "where?", RequestLocation: true})
		assert.Empty(t, msg.ParseMode)
		markup, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		require.True(t, ok)
		assert.True(t, markup.Keyboard[0][0].RequestLocation)
		assert.Equal(t, conversation.LabelCancel, markup.Keyboard[1][0].Text)
		assert.True(t, markup.OneTimeKeyboard)
	})

	t.Run("reply keyboard", func(t *testing.T) {
		msg := BuildMessage(1, conversation.Reply{Text: "menu", Keyboard: [][]string{{"a"}, {"b", "c"}}})
		markup, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		require.True(t, ok)
		require.Len(t, markup.Keyboard, 2)
		assert.Equal(t, "c", markup.Keyboard[1][1].Text)
	})

	t.Run("remove keyboard", func(t *testing.T) {
		msg := BuildMessage(1, conversation.Reply{Text: "bye", RemoveKeyboard: true})
		_, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
		assert.True(t, ok)
	})
}

func TestSend_InvalidChatID(t *testing.T) {
	a, _ := newTestAdapter(t)
	assert.Error(t, a.Send(context.Background(), "not-a-number", conversation.Reply{Text: "hi"}))
}

func TestSend_RetriesOnRateLimit(t *testing.T) {
	a, mc := newTestAdapter(t)
	a.maxRetryWait = time.Millisecond
	mc.sendErrs = []error{&tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 1}}}

	require.NoError(t, a.Send(context.Background(), "7", conversation.Reply{Text: "hi"}))
	mc.mu.Lock()
	defer mc.mu.Unlock()
	assert.Equal(t, 2, mc.sendCalls)
	require.Len(t, mc.sent, 1)
	msg, ok := mc.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(7), msg.ChatID)
}

func TestSend_DoesNotRetryOtherErrors(t *testing.T) {
	a, mc := newTestAdapter(t)
	mc.sendErrs = []error{errors.New("forbidden")}

	assert.Error(t, a.Send(context.Background(), "7", conversation.Reply{Text: "hi"}))
	mc.mu.Lock()
	defer mc.mu.Unlock()
	assert.Equal(t, 1, mc.sendCalls)
}
