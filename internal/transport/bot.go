package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/conversation"
	"github.com/ignatzorin/disaster-backend/internal/goroutine"
	"github.com/ignatzorin/disaster-backend/internal/logger"
)

const (
	defaultWorkers = 64
	// userQueueLimit ограничивает очередь одного пользователя, лишние события отбрасываются.
	userQueueLimit = 64
)

// Handler продвигает диалог и возвращает ответы.
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) []conversation.Reply
}

// Bot читает события адаптера и отдаёт их Handler.
// У каждого пользователя своя очередь: его события идут строго по порядку,
// а долгий вызов одного пользователя не задерживает остальных.
type Bot struct {
	adapter Adapter
	handler Handler
	// slots ограничивает число одновременно работающих Handle.
	slots chan struct{}

	mu     sync.Mutex
	queues map[string][]conversation.Event
	wg     sync.WaitGroup
}

type BotOpts struct {
	Adapter Adapter
	Handler Handler
	// Workers - сколько пользователей обрабатываются одновременно, по умолчанию 64.
	Workers int
}

func NewBot(opts BotOpts) (*Bot, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("bot: handler is required")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Bot{
		adapter: opts.Adapter,
		handler: opts.Handler,
		slots:   make(chan struct{}, workers),
		queues:  make(map[string][]conversation.Event),
	}, nil
}

// Run подключает адаптер и обрабатывает события до отмены ctx или закрытия канала.
// После закрытия канала уже принятые события дообрабатываются.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect %s: %w", b.adapter.Name(), err)
	}

	inbound, err := b.adapter.Listen(ctx)
	if err != nil {
		_ = b.adapter.Close()
		return fmt.Errorf("bot: listen %s: %w", b.adapter.Name(), err)
	}

	log := logger.Log.WithField("platform", b.adapter.Name())
	log.Info("Бот запущен")

	for {
		select {
		case <-ctx.Done():
			log.Info("Остановка бота")
			if err := b.adapter.Close(); err != nil {
				log.WithError(err).Warn("Ошибка закрытия адаптера")
			}
			b.wg.Wait()
			return nil

		case ev, ok := <-inbound:
			if !ok {
				log.Info("Канал входящих сообщений закрыт")
				b.wg.Wait()
				return nil
			}
			b.enqueue(ctx, ev)
		}
	}
}

// enqueue никогда не блокируется: событие попадает в очередь пользователя,
// а воркер пользователя запускается, если его ещё нет.
func (b *Bot) enqueue(ctx context.Context, ev conversation.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue, running := b.queues[ev.UserID]
	if len(queue) >= userQueueLimit {
		logger.Log.WithFields(logrus.Fields{
			"platform": b.adapter.Name(),
			"user_id":  ev.UserID,
		}).Warn("Очередь пользователя переполнена, событие отброшено")
		return
	}
	b.queues[ev.UserID] = append(queue, ev)
	if running {
		return
	}

	b.wg.Add(1)
	userID := ev.UserID
	goroutine.SafeGoWithContext(ctx, "bot-user-"+userID, func(ctx context.Context) {
		defer b.wg.Done()
		b.drain(ctx, userID)
	})
}

// drain обрабатывает очередь пользователя и удаляет её, когда она опустела.
func (b *Bot) drain(ctx context.Context, userID string) {
	for {
		b.mu.Lock()
		queue := b.queues[userID]
		if len(queue) == 0 || ctx.Err() != nil {
			delete(b.queues, userID)
			b.mu.Unlock()
			return
		}
		ev := queue[0]
		b.queues[userID] = queue[1:]
		b.mu.Unlock()

		select {
		case b.slots <- struct{}{}:
		case <-ctx.Done():
			continue
		}
		b.safeProcess(ctx, ev)
		<-b.slots
	}
}

// safeProcess не даёт panic в обработчике остановить очередь пользователя.
func (b *Bot) safeProcess(ctx context.Context, ev conversation.Event) {
	defer goroutine.Recover("bot-handler")
	b.process(ctx, ev)
}

func (b *Bot) process(ctx context.Context, ev conversation.Event) {
	replies := b.handler.Handle(ctx, ev)
	for _, reply := range replies {
		if err := b.adapter.Send(ctx, ev.ChatID, reply); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"platform": b.adapter.Name(),
				"user_id":  ev.UserID,
				"chat_id":  ev.ChatID,
			}).WithError(err).Error("Не удалось отправить ответ")
			return
		}
	}
}
