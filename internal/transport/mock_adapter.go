package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/ignatzorin/disaster-backend/internal/conversation"
)

// SentReply - ответ, записанный MockAdapter.
type SentReply struct {
	ChatID string
	Reply  conversation.Reply
}

// MockAdapter реализует Adapter для тестов: записывает ответы
// и позволяет имитировать входящие события через SimulateInbound.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan conversation.Event
	sent      []SentReply
	sendErr   error
	failed    int
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{inbound: make(chan conversation.Event, 100)}
}

func (m *MockAdapter) Name() string { return "mock" }

func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

func (m *MockAdapter) Listen(ctx context.Context) (<-chan conversation.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

func (m *MockAdapter) Send(ctx context.Context, chatID string, reply conversation.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	if m.sendErr != nil {
		m.failed++
		return m.sendErr
	}
	m.sent = append(m.sent, SentReply{ChatID: chatID, Reply: reply})
	return nil
}

func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// SimulateInbound кладёт событие во входящий канал.
func (m *MockAdapter) SimulateInbound(ev conversation.Event) {
	m.inbound <- ev
}

// FailSends заставляет Send возвращать err.
func (m *MockAdapter) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *MockAdapter) AllSent() []SentReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentReply, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastSent возвращает последний ответ или нулевое значение.
func (m *MockAdapter) LastSent() SentReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentReply{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *MockAdapter) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// FailedCount возвращает число отклонённых отправок.
func (m *MockAdapter) FailedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}
