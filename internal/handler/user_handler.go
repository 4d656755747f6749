package handler

import (
	"net/http"

	"github.com/charmbracelet/log"

	"smart-reader/internal/service"
	"smart-reader/internal/session"
	"smart-reader/pkg/response"
)

type UserHandler struct {
	userService *service.UserService
	logger      *log.Logger
}

func NewUserHandler(userService *service.UserService, logger *log.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	user, err := h.userService.GetByID(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, user)
}
