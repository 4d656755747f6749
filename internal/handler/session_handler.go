package handler

import (
	"net/http"

	"smart-reader/internal/domain"
	"smart-reader/internal/session"
	"smart-reader/pkg/response"
)

type SessionResponse struct {
	Mode        string `json:"mode"`
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email,omitempty"`
	OpenProject string `json:"open_project,omitempty"`
}

type SessionHandler struct {
	sessions SessionController
	notifier session.Notifier
}

func NewSessionHandler(sessions SessionController, notifier session.Notifier) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		notifier: notifier,
	}
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	cur := h.sessions.Current()
	response.Success(w, &SessionResponse{
		Mode:        cur.Kind.String(),
		UserID:      cur.UserID,
		Email:       cur.Email,
		OpenProject: h.sessions.CurrentProject(),
	})
}

// NewProject drops the open project so the reader starts on a blank one.
func (h *SessionHandler) NewProject(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	prev := h.sessions.CurrentProject()

	h.sessions.CloseProject("")
	h.notifier.Notify(sess.Key(), domain.Event{Type: domain.EventProjectReset, ProjectID: prev})

	response.Message(w, "Ready for a new project")
}
