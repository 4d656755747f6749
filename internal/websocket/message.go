package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// TypeEvent carries a domain.Event telling the client which view to
	// re-render.
	TypeEvent        MessageType = "event"
	TypeOpenProject  MessageType = "open_project"
	TypeCloseProject MessageType = "close_project"
	TypeAck          MessageType = "ack"
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ProjectPayload struct {
	ProjectID string `json:"project_id"`
}

type AckPayload struct {
	Type    MessageType `json:"type"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
