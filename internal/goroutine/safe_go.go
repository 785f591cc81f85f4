package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/disaster-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer Recover(name)
		fn(ctx)
	}()
}

// Recover вызывается только через defer: в SafeGo и в колбэках,
// которые выполняются в чужих горутинах (например, discordgo).
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Log.WithFields(map[string]interface{}{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("Panic в горутине")
	}
}
