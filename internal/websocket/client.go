package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Client is one browser connection. SessionKey groups the connections that
// render the same session.
type Client struct {
	ID         string
	SessionKey string
	Conn       *websocket.Conn
	Manager    *Manager
	Send       chan []byte
}

func NewClient(id, sessionKey string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:         id,
		SessionKey: sessionKey,
		Conn:       conn,
		Manager:    manager,
		Send:       make(chan []byte, 256),
	}
}

// ReadPump forwards inbound frames to the manager until the connection
// fails or stops answering pings. It owns the read side of Conn.
func (c *Client) ReadPump() {
	defer func() {
		c.Manager.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.logger.Warn("websocket read failed", "client", c.ID, "err", err)
			}
			break
		}

		c.Manager.HandleMessage <- &ClientMessage{
			Client:  c,
			Message: message,
		}
	}
}

// WritePump delivers queued events, one JSON text frame each, and pings
// the browser. It owns the write side of Conn.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Manager.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.Manager.logger.Debug("websocket write failed", "client", c.ID, "session", c.SessionKey, "err", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
	return c.Conn.WriteMessage(messageType, data)
}
