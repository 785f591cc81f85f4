// Package transport связывает чат-платформы (Telegram, Discord) с диалогами бота.
package transport

import (
	"context"

	"github.com/ignatzorin/disaster-backend/internal/conversation"
)

// Adapter - реализация конкретной чат-платформы.
type Adapter interface {
	// Name возвращает имя платформы для логов.
	Name() string

	// Connect подключается к платформе.
	Connect(ctx context.Context) error

	// Listen возвращает канал нормализованных событий. Вызывается после Connect.
	// Канал закрывается при Close.
	Listen(ctx context.Context) (<-chan conversation.Event, error)

	// Send отправляет ответ в чат.
	Send(ctx context.Context, chatID string, reply conversation.Reply) error

	Close() error
}
