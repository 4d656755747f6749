package websocket

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"smart-reader/internal/domain"
)

func newTestManager(maxConn int) *Manager {
	return NewManager(ManagerOptions{
		MaxConnPerKey: maxConn,
		WriteWait:     time.Second,
		PongWait:      time.Second,
		PingPeriod:    time.Second,
	}, log.New(io.Discard))
}

func receiveEvent(t *testing.T, c *Client) domain.Event {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.Type != TypeEvent {
			t.Fatalf("message type = %s, want event", msg.Type)
		}
		var event domain.Event
		if err := msg.UnmarshalPayload(&event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	default:
		t.Fatal("no message queued")
	}
	return domain.Event{}
}

func TestManager_NotifyBySession(t *testing.T) {
	m := newTestManager(5)
	guest := NewClient("c1", "guest", nil, m)
	user := NewClient("c2", "u1", nil, m)
	m.registerClient(guest)
	m.registerClient(user)

	m.Notify("u1", domain.Event{Type: domain.EventNotesChanged, ProjectID: "1700000000000"})

	event := receiveEvent(t, user)
	if event.Type != domain.EventNotesChanged || event.ProjectID != "1700000000000" {
		t.Errorf("event = %+v", event)
	}
	if len(guest.Send) != 0 {
		t.Error("guest client must not receive account events")
	}

	m.NotifyAll(domain.Event{Type: domain.EventSessionChanged})
	if receiveEvent(t, guest).Type != domain.EventSessionChanged {
		t.Error("guest missed broadcast")
	}
	if receiveEvent(t, user).Type != domain.EventSessionChanged {
		t.Error("user missed broadcast")
	}
}

func TestManager_ConnectionLimit(t *testing.T) {
	m := newTestManager(1)
	first := NewClient("c1", "guest", nil, m)
	second := NewClient("c2", "guest", nil, m)
	m.registerClient(first)
	m.registerClient(second)

	if m.SessionConnections("guest") != 1 {
		t.Errorf("connections = %d, want 1", m.SessionConnections("guest"))
	}
	if _, ok := <-second.Send; ok {
		t.Error("rejected client's send channel should be closed")
	}
}

func TestManager_Unregister(t *testing.T) {
	m := newTestManager(5)
	c := NewClient("c1", "u1", nil, m)
	m.registerClient(c)
	m.unregisterClient(c)
	m.unregisterClient(c)

	if m.SessionConnections("u1") != 0 {
		t.Error("client should be removed")
	}
	m.Notify("u1", domain.Event{Type: domain.EventProjectsChanged})
}
