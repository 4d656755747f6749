package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"smart-reader/internal/repository"
	"smart-reader/internal/service"
	"smart-reader/pkg/response"
)

func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		response.Invalid(w, verr.Fields)
	case errors.Is(err, repository.ErrProjectNotFound):
		response.NotFound(w, "Project not found")
	case errors.Is(err, repository.ErrNoteNotFound):
		response.NotFound(w, "Note not found")
	case errors.Is(err, repository.ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, service.ErrGuestProjectLimit):
		response.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrMigrationInProgress):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid email or password")
	case errors.Is(err, repository.ErrInvalidProjectID),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrEmptyNote),
		errors.Is(err, service.ErrNothingToShare),
		errors.Is(err, service.ErrUnsupportedLanguage),
		errors.Is(err, service.ErrInvalidResetToken):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrGoogleDisabled),
		errors.Is(err, repository.ErrLocalStoreLocked):
		response.Unavailable(w, err.Error())
	default:
		logger.Error("request failed", "err", err)
		response.InternalError(w, "Internal server error")
	}
}
