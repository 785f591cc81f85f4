package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/dto"
	"github.com/ignatzorin/disaster-backend/internal/goroutine"
	"github.com/ignatzorin/disaster-backend/internal/logger"
)

var errHubStopped = errors.New("ws: хаб остановлен")

// EventAlertCreated - тип сообщения о новом оповещении.
const EventAlertCreated = "alert.created"

// Hub рассылает события live-ленты всем подключённым клиентам.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 32),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case payload := <-h.broadcast:
			h.send(payload)
		}
	}
}

// Register добавляет клиента. После остановки хаба возвращает false.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount возвращает число подключённых клиентов.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast отправляет событие всем клиентам.
func (h *Hub) Broadcast(ctx context.Context, event string, data interface{}) error {
	raw, err := json.Marshal(dto.WSMessage{Type: event, Data: data})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case <-h.done:
		return errHubStopped
	default:
	}

	select {
	case h.broadcast <- raw:
		return nil
	case <-h.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name и NotifyAlert позволяют подключить хаб к диспетчеру оповещений.
func (h *Hub) Name() string { return "websocket" }

func (h *Hub) NotifyAlert(ctx context.Context, alert *entity.EmergencyAlert) error {
	return h.Broadcast(ctx, EventAlertCreated, dto.ToAlertResponse(alert))
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.id] = client
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.clients[client.id]; ok && existing == client {
		delete(h.clients, client.id)
		close(client.send)
	}
}

func (h *Hub) send(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент отключается, чтобы не задерживать остальных.
			delete(h.clients, id)
			close(client.send)
			logger.Log.WithField("client_id", id.String()).Warn("WebSocket клиент не успевает, соединение закрыто")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
}

// startClient нужен тестам и обработчику: регистрирует клиента и запускает запись.
func (h *Hub) startClient(client *Client) bool {
	if !h.Register(client) {
		return false
	}
	goroutine.SafeGo("ws-write-"+client.id.String(), client.writePump)
	return true
}
