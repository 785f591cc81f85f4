// Package discord реализует transport.Adapter для Discord через Gateway WebSocket.
package discord

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/conversation"
	"github.com/ignatzorin/disaster-backend/internal/goroutine"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/transport"
)

const (
	PlatformName = "discord"

	maxRetries    = 3
	baseBackoff   = 2 * time.Second
	maxBackoff    = 2 * time.Minute
	inboundBuffer = 100

	// Ограничения Discord на компоненты сообщения.
	maxActionRows    = 5
	maxRowButtons    = 5
	keyboardIDPrefix = "label:"
)

// locationHint добавляется к запросу геопозиции: кнопки отправки координат в Discord нет.
const locationHint = "\n\n📍 Send `/location <latitude> <longitude>`, e.g. `/location 13.08 80.27`"

// session - используемые методы *discordgo.Session, подменяется в тестах.
type session interface {
	Open() error
	Close() error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	AddHandler(handler interface{}) func()
}

type Adapter struct {
	sess      session
	botToken  string
	botUserID string
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan conversation.Event
	removers  []func()
	backoff   time.Duration
}

type AdapterOpts struct {
	BotToken string
	// Для тестов: готовая сессия вместо настоящего Gateway.
	Session session
}

var _ transport.Adapter = (*Adapter)(nil)

func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	return &Adapter{
		sess:     opts.Session,
		botToken: opts.BotToken,
		inbound:  make(chan conversation.Event, inboundBuffer),
		backoff:  baseBackoff,
	}, nil
}

func (a *Adapter) Name() string { return PlatformName }

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages |
			discordgo.IntentsMessageContent
		a.sess = dg
	}

	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.mu.Lock()
		a.botUserID = r.User.ID
		a.mu.Unlock()
		logger.Log.WithField("username", r.User.Username).Info("Discord: подключён")
	})
	a.sess.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		logger.Log.Warn("Discord: соединение с gateway потеряно, discordgo переподключится")
	})

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	a.connected = true
	return nil
}

// Listen регистрирует обработчики сообщений и нажатий кнопок.
func (a *Adapter) Listen(ctx context.Context) (<-chan conversation.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}
	if len(a.removers) > 0 {
		return a.inbound, nil
	}

	a.removers = append(a.removers,
		a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			defer goroutine.Recover("discord-message")
			a.handleMessage(m)
		}),
		a.sess.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			defer goroutine.Recover("discord-interaction")
			a.handleInteraction(i)
		}),
	)
	return a.inbound, nil
}

// BotUserID доступен после события Ready.
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

func (a *Adapter) SetBotUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = id
}

func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == a.BotUserID() {
		return
	}

	ts, err := discordgo.SnowflakeTimestamp(m.ID)
	if err != nil {
		ts = time.Now()
	}
	base := conversation.Event{
		UserID:   m.Author.ID,
		UserName: m.Author.Username,
		ChatID:   m.ChannelID,
		At:       ts,
	}

	var photos []string
	for _, att := range m.Attachments {
		if att != nil && strings.HasPrefix(att.ContentType, "image/") {
			photos = append(photos, att.URL)
		}
	}
	if len(photos) > 0 {
		for _, url := range photos {
			ev := base
			ev.Kind = conversation.EventPhoto
			ev.PhotoRef = url
			a.emit(ev)
		}
		return
	}

	if strings.TrimSpace(m.Content) == "" {
		return
	}
	a.emit(transport.TextEvent(base, m.Content))
}

func (a *Adapter) handleInteraction(i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}

	// Подтверждаем нажатие, иначе клиент покажет ошибку.
	err := a.sess.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		logger.Log.WithError(err).Warn("Discord: не удалось подтвердить нажатие кнопки")
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	ev := conversation.Event{
		UserID:   user.ID,
		UserName: user.Username,
		ChatID:   i.ChannelID,
		At:       time.Now(),
	}
	customID := i.MessageComponentData().CustomID
	if label, ok := strings.CutPrefix(customID, keyboardIDPrefix); ok {
		// Кнопка постоянного меню ведёт себя как набранный текст.
		ev.Kind = conversation.EventText
		ev.Text = label
	} else {
		ev.Kind = conversation.EventChoice
		ev.Text = customID
	}
	a.emit(ev)
}

func (a *Adapter) emit(ev conversation.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.inbound <- ev:
	default:
		logger.Log.WithField("user_id", ev.UserID).Warn("Discord: очередь входящих переполнена, событие отброшено")
	}
}

func (a *Adapter) Send(ctx context.Context, chatID string, reply conversation.Reply) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	if chatID == "" {
		return fmt.Errorf("discord: no channel specified")
	}

	data := BuildMessageSend(reply)
	err := a.retryOnRateLimit(ctx, func() error {
		_, sendErr := a.sess.ChannelMessageSendComplex(chatID, data)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// BuildMessageSend переводит Reply в сообщение Discord. Inline-кнопки и постоянное
// меню становятся кнопками компонентов, запрос геопозиции становится подсказкой.
func BuildMessageSend(reply conversation.Reply) *discordgo.MessageSend {
	content := reply.Text
	if reply.Markdown {
		content = toDiscordMarkdown(content)
	}

	var rows []discordgo.MessageComponent
	addRow := func(buttons []discordgo.MessageComponent) {
		if len(buttons) == 0 || len(rows) >= maxActionRows {
			return
		}
		if len(buttons) > maxRowButtons {
			buttons = buttons[:maxRowButtons]
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}

	switch {
	case len(reply.Choices) > 0:
		for _, row := range reply.Choices {
			var buttons []discordgo.MessageComponent
			for _, c := range row {
				buttons = append(buttons, discordgo.Button{
					Label:    c.Label,
					Style:    discordgo.PrimaryButton,
					CustomID: c.Data,
				})
			}
			addRow(buttons)
		}

	case reply.RequestLocation:
		content += locationHint
		addRow([]discordgo.MessageComponent{keyboardButton(conversation.LabelCancel)})

	case len(reply.Keyboard) > 0:
		for _, row := range reply.Keyboard {
			var buttons []discordgo.MessageComponent
			for _, label := range row {
				buttons = append(buttons, keyboardButton(label))
			}
			addRow(buttons)
		}
	}

	return &discordgo.MessageSend{Content: content, Components: rows}
}

func keyboardButton(label string) discordgo.Button {
	return discordgo.Button{
		Label:    label,
		Style:    discordgo.SecondaryButton,
		CustomID: keyboardIDPrefix + label,
	}
}

// toDiscordMarkdown: жирный текст Telegram (*x*) в Discord записывается как **x**.
func toDiscordMarkdown(text string) string {
	return strings.ReplaceAll(text, "*", "**")
}

func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != http.StatusTooManyRequests {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.backoff
		if wait > maxBackoff {
			wait = maxBackoff
		}
		logger.Log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("Discord: превышен лимит запросов, повтор")

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
	for _, remove := range a.removers {
		remove()
	}
	a.removers = nil
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}
