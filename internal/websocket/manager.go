package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"smart-reader/internal/domain"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Manager struct {
	clients        map[string]*Client
	sessionIndex   map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxConnPerKey  int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
	logger         *log.Logger
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

type ManagerOptions struct {
	MaxConnPerKey  int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func NewManager(opts ManagerOptions, logger *log.Logger) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		sessionIndex:   make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerKey:  opts.MaxConnPerKey,
		maxMessageSize: opts.MaxMessageSize,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		logger:         logger,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.sessionIndex[client.SessionKey] == nil {
		m.sessionIndex[client.SessionKey] = make(map[string]bool)
	}

	if m.maxConnPerKey > 0 && len(m.sessionIndex[client.SessionKey]) >= m.maxConnPerKey {
		m.logger.Warn("max connections reached", "session", client.SessionKey)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.sessionIndex[client.SessionKey][client.ID] = true

	m.logger.Debug("client registered", "client", client.ID, "session", client.SessionKey)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.sessionIndex[client.SessionKey], client.ID)

		if len(m.sessionIndex[client.SessionKey]) == 0 {
			delete(m.sessionIndex, client.SessionKey)
		}

		close(client.Send)
		m.logger.Debug("client unregistered", "client", client.ID)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Warn("error unmarshaling message", "client", clientMsg.Client.ID, "err", err)
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			m.logger.Warn("error handling message", "type", msg.Type, "err", err)
		}
	}
}

// BroadcastToSession sends message to every client of the session key.
func (m *Manager) BroadcastToSession(key string, message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	var targets []*Client
	for clientID := range m.sessionIndex[key] {
		targets = append(targets, m.clients[clientID])
	}
	m.clientsMutex.RUnlock()

	m.deliver(targets, messageBytes)
	return nil
}

func (m *Manager) BroadcastAll(message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	targets := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		targets = append(targets, client)
	}
	m.clientsMutex.RUnlock()

	m.deliver(targets, messageBytes)
	return nil
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	client, exists := m.clients[clientID]
	m.clientsMutex.RUnlock()
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.deliver([]*Client{client}, messageBytes)
	return nil
}

// deliver drops clients whose send buffer is full.
func (m *Manager) deliver(targets []*Client, payload []byte) {
	for _, client := range targets {
		select {
		case client.Send <- payload:
		default:
			m.logger.Warn("client send buffer full, closing connection", "client", client.ID)
			go func(c *Client) { m.Unregister <- c }(client)
		}
	}
}

func (m *Manager) SessionConnections(key string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.sessionIndex[key]; exists {
		return len(clients)
	}
	return 0
}

// Notify pushes a re-render event to the clients of one session.
func (m *Manager) Notify(key string, event domain.Event) {
	msg, err := NewMessage(TypeEvent, event)
	if err != nil {
		m.logger.Error("failed to encode event", "type", event.Type, "err", err)
		return
	}
	if err := m.BroadcastToSession(key, msg); err != nil {
		m.logger.Error("failed to broadcast event", "type", event.Type, "err", err)
	}
}

// NotifyAll pushes a re-render event to every connected client.
func (m *Manager) NotifyAll(event domain.Event) {
	msg, err := NewMessage(TypeEvent, event)
	if err != nil {
		m.logger.Error("failed to encode event", "type", event.Type, "err", err)
		return
	}
	if err := m.BroadcastAll(msg); err != nil {
		m.logger.Error("failed to broadcast event", "type", event.Type, "err", err)
	}
}
