package handler

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"smart-reader/internal/middleware"
	"smart-reader/internal/session"
	"smart-reader/internal/websocket"
	"smart-reader/pkg/jwt"
)

type WebSocketHandler struct {
	manager   *websocket.Manager
	jwtSecret string
	upgrader  ws.Upgrader
	logger    *log.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, jwtSecret string, readBufferSize, writeBufferSize int, logger *log.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		jwtSecret: jwtSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// HandleConnection upgrades the request. Without a token the connection
// follows the guest session.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}

	sess := session.NewGuest()
	if token != "" {
		claims, err := jwt.ValidateToken(token, h.jwtSecret)
		if err != nil || claims.TokenType == jwt.TokenTypeRefresh {
			h.logger.Warn("token validation failed", "err", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		sess = session.NewAuthenticated(claims.UserID, "")
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", "err", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), sess.Key(), conn, h.manager)
	h.logger.Debug("connection upgraded", "client", client.ID, "session", client.SessionKey)

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler answers client frames: keepalive pings and the
// project the client is showing.
type WebSocketMessageHandler struct {
	sessions SessionController
	logger   *log.Logger
}

func NewWebSocketMessageHandler(sessions SessionController, logger *log.Logger) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		sessions: sessions,
		logger:   logger,
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypePing:
		return h.reply(client, websocket.TypePong, nil)

	case websocket.TypeOpenProject, websocket.TypeCloseProject:
		var payload websocket.ProjectPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return h.reply(client, websocket.TypeAck, &websocket.AckPayload{Type: msg.Type, Error: "invalid payload"})
		}
		if msg.Type == websocket.TypeOpenProject {
			h.sessions.OpenProject(payload.ProjectID)
		} else {
			h.sessions.CloseProject(payload.ProjectID)
		}
		return h.reply(client, websocket.TypeAck, &websocket.AckPayload{Type: msg.Type, Success: true})

	default:
		h.logger.Debug("unknown message type", "type", msg.Type)
	}

	return nil
}

func (h *WebSocketMessageHandler) reply(client *websocket.Client, msgType websocket.MessageType, payload interface{}) error {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return client.Manager.SendToClient(client.ID, msg)
}
