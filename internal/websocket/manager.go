package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Типы служебных сообщений
const (
	EventPing  = "client:ping"
	EventPong  = "server:pong"
	EventError = "server:error"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Manager обрабатывает входящие сообщения и отправляет события пользователям
type Manager struct {
	hub            *Hub
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub) *Manager {
	m := &Manager{
		hub:            hub,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
	m.RegisterHandler(EventPing, func(data json.RawMessage, client *Client) error {
		return m.SendEventToUser(client.UserID, EventPong, nil)
	})
	return m
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		m.sendError(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		m.sendError(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}
	return handler(event.Data, client)
}

func (m *Manager) sendError(client *Client, code, message string) {
	payload, _ := json.Marshal(Event{Type: EventError, Data: map[string]string{"code": code, "message": message}})
	if !client.enqueue(payload) {
		log.Printf("[WebSocketManager] Не удалось отправить ошибку клиенту %s", client.UserID)
	}
}

// SendEventToUser отправляет событие всем соединениям пользователя
func (m *Manager) SendEventToUser(userID string, eventType string, data interface{}) error {
	return m.hub.SendJSONToUser(userID, Event{Type: eventType, Data: data})
}

// ClientCount возвращает количество активных соединений
func (m *Manager) ClientCount() int {
	return m.hub.ClientCount()
}
