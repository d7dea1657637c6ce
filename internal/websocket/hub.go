package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// каналы Redis для доставки событий между инстансами
const userEventsChannel = "ws:user_events"

// clusterMessage - событие для пользователя, пересылаемое через Pub/Sub
type clusterMessage struct {
	InstanceID string          `json:"instance_id"`
	UserID     string          `json:"user_id"`
	Payload    json.RawMessage `json:"payload"`
}

// Hub хранит подключения по пользователям. У пользователя может быть несколько вкладок.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	pubsub     PubSubProvider
	instanceID string
	cancel     context.CancelFunc
}

// NewHub создает хаб. pubsub может быть NoOpPubSub для одного инстанса.
func NewHub(pubsub PubSubProvider) *Hub {
	if pubsub == nil {
		pubsub = NoOpPubSub{}
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		pubsub:     pubsub,
		instanceID: generateInstanceID(),
	}
}

// Start подписывается на события других инстансов
func (h *Hub) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	messages, err := h.pubsub.Subscribe(ctx, userEventsChannel)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", userEventsChannel, err)
	}
	go func() {
		for raw := range messages {
			var msg clusterMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("[WebSocketHub] Некорректное сообщение из Pub/Sub: %v", err)
				continue
			}
			if msg.InstanceID == h.instanceID {
				continue
			}
			h.deliverLocal(msg.UserID, msg.Payload)
		}
	}()
	log.Printf("[WebSocketHub] Хаб %s запущен", h.instanceID)
	return nil
}

// Stop закрывает все соединения
func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			c.closeSend()
		}
		delete(h.clients, userID)
	}
	if err := h.pubsub.Close(); err != nil {
		log.Printf("[WebSocketHub] Ошибка закрытия Pub/Sub: %v", err)
	}
}

// Register добавляет клиента
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	log.Printf("[WebSocketHub] Клиент %s (conn %s) подключен, соединений пользователя: %d", c.UserID, c.ConnectionID, len(set))
}

// Unregister удаляет клиента и закрывает его канал отправки
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	c.closeSend()
	log.Printf("[WebSocketHub] Клиент %s (conn %s) отключен", c.UserID, c.ConnectionID)
}

// SendJSONToUser доставляет сообщение локальным соединениям пользователя и публикует его для остальных инстансов
func (h *Hub) SendJSONToUser(userID string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal websocket message: %w", err)
	}
	h.deliverLocal(userID, payload)

	msg, err := json.Marshal(clusterMessage{InstanceID: h.instanceID, UserID: userID, Payload: payload})
	if err != nil {
		return err
	}
	return h.pubsub.Publish(userEventsChannel, msg)
}

// SendToUser доставляет сообщение только локальным соединениям. Возвращает true, если хоть одно получило.
func (h *Hub) SendToUser(userID string, message []byte) bool {
	return h.deliverLocal(userID, message) > 0
}

func (h *Hub) deliverLocal(userID string, message []byte) int {
	h.mu.RLock()
	set := h.clients[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(message) {
			delivered++
			continue
		}
		log.Printf("[WebSocketHub] Буфер клиента %s (conn %s) переполнен, отключаем", c.UserID, c.ConnectionID)
		h.Unregister(c)
	}
	return delivered
}

// ClientCount возвращает количество подключенных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, set := range h.clients {
		count += len(set)
	}
	return count
}
