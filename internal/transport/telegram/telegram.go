// Package telegram реализует transport.Adapter поверх Telegram Bot API (long polling).
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/conversation"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/transport"
)

const (
	PlatformName = "telegram"

	pollTimeoutSec = 30
	maxRetries     = 3
	inboundBuffer  = 100
)

// client - используемая часть *tgbotapi.BotAPI, подменяется в тестах.
type client interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Adapter struct {
	client    client
	token     string
	mu        sync.Mutex
	connected bool
	closed    bool
	listening bool
	inbound   chan conversation.Event
	done      chan struct{}
	// maxRetryWait ограничивает ожидание по retry_after.
	maxRetryWait time.Duration
}

type AdapterOpts struct {
	BotToken string
	// Для тестов: готовый клиент вместо настоящего API.
	Client client
}

var _ transport.Adapter = (*Adapter)(nil)

func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	return &Adapter{
		client:       opts.Client,
		token:        opts.BotToken,
		inbound:      make(chan conversation.Event, inboundBuffer),
		done:         make(chan struct{}),
		maxRetryWait: 30 * time.Second,
	}, nil
}

func (a *Adapter) Name() string { return PlatformName }

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.client == nil {
		bot, err := tgbotapi.NewBotAPI(a.token)
		if err != nil {
			return fmt.Errorf("telegram: create bot: %w", err)
		}
		logger.Log.WithField("username", bot.Self.UserName).Info("Telegram: бот авторизован")
		a.client = bot
	}

	a.connected = true
	return nil
}

// Listen запускает long polling и возвращает канал событий.
func (a *Adapter) Listen(ctx context.Context) (<-chan conversation.Event, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("telegram: not connected")
	}
	if a.listening {
		a.mu.Unlock()
		return a.inbound, nil
	}
	a.listening = true
	a.mu.Unlock()

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSec
	updates := a.client.GetUpdatesChan(cfg)

	go a.pump(ctx, updates)
	return a.inbound, nil
}

func (a *Adapter) pump(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer close(a.inbound)
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := a.toEvent(upd)
			if !ok {
				continue
			}
			select {
			case a.inbound <- ev:
			case <-ctx.Done():
				return
			case <-a.done:
				return
			}
		}
	}
}

// toEvent нормализует Update. Неподдерживаемые сообщения (стикеры, голос) пропускаются.
func (a *Adapter) toEvent(upd tgbotapi.Update) (conversation.Event, bool) {
	if cb := upd.CallbackQuery; cb != nil {
		a.answerCallback(cb.ID)
		if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
			return conversation.Event{}, false
		}
		return conversation.Event{
			UserID:   strconv.FormatInt(cb.From.ID, 10),
			UserName: displayName(cb.From),
			ChatID:   strconv.FormatInt(cb.Message.Chat.ID, 10),
			Kind:     conversation.EventChoice,
			Text:     cb.Data,
			At:       time.Now(),
		}, true
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return conversation.Event{}, false
	}

	base := conversation.Event{
		UserID:   strconv.FormatInt(msg.From.ID, 10),
		UserName: displayName(msg.From),
		ChatID:   strconv.FormatInt(msg.Chat.ID, 10),
		At:       msg.Time(),
	}

	switch {
	case msg.Location != nil:
		base.Kind = conversation.EventLocation
		base.Latitude = msg.Location.Latitude
		base.Longitude = msg.Location.Longitude
		return base, true
	case len(msg.Photo) > 0:
		// Последний размер - самый крупный.
		base.Kind = conversation.EventPhoto
		base.PhotoRef = msg.Photo[len(msg.Photo)-1].FileID
		return base, true
	case msg.Text != "":
		return transport.TextEvent(base, msg.Text), true
	}
	return conversation.Event{}, false
}

func (a *Adapter) answerCallback(id string) {
	if _, err := a.client.Request(tgbotapi.NewCallback(id, "")); err != nil {
		logger.Log.WithError(err).Warn("Telegram: не удалось ответить на callback")
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return u.FirstName
}

func (a *Adapter) Send(ctx context.Context, chatID string, reply conversation.Reply) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("telegram: not connected")
	}
	a.mu.Unlock()

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}

	msg := BuildMessage(id, reply)
	return a.retryOnRateLimit(ctx, func() error {
		_, sendErr := a.client.Send(msg)
		return sendErr
	})
}

// BuildMessage переводит Reply в сообщение Telegram.
func BuildMessage(chatID int64, reply conversation.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	switch {
	case len(reply.Choices) > 0:
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, row := range reply.Choices {
			var buttons []tgbotapi.InlineKeyboardButton
			for _, c := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	case reply.RequestLocation:
		rows := [][]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(conversation.LabelShareLocation)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.LabelCancel)),
		}
		keyboard := tgbotapi.NewReplyKeyboard(rows...)
		keyboard.OneTimeKeyboard = true
		msg.ReplyMarkup = keyboard

	case len(reply.Keyboard) > 0:
		var rows [][]tgbotapi.KeyboardButton
		for _, row := range reply.Keyboard {
			var buttons []tgbotapi.KeyboardButton
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
		}
		msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)

	case reply.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}
	return msg
}

// retryOnRateLimit повторяет вызов, если Telegram вернул retry_after.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var apiErr *tgbotapi.Error
		if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 || attempt == maxRetries {
			return fmt.Errorf("telegram: send message: %w", err)
		}

		wait := time.Duration(apiErr.RetryAfter) * time.Second
		if wait > a.maxRetryWait {
			wait = a.maxRetryWait
		}
		logger.Log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("Telegram: превышен лимит запросов, повтор")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	close(a.done)
	if a.listening {
		a.client.StopReceivingUpdates()
	} else {
		close(a.inbound)
	}
	return nil
}
