package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"smart-reader/internal/domain"
	"smart-reader/internal/service"
	"smart-reader/internal/session"
	"smart-reader/pkg/response"
)

const oauthStateCookie = "reader_oauth_state"

// SessionController is the device session as driven by the HTTP layer.
type SessionController interface {
	SignIn(ctx context.Context, user *domain.User) (*domain.MigrationReport, error)
	SignOut()
	Current() session.Session
	OpenProject(id string)
	CloseProject(id string)
	CurrentProject() string
}

type AuthHandler struct {
	authService *service.AuthService
	google      *service.GoogleAuthService
	sessions    SessionController
	validator   *validator.Validate
	logger      *log.Logger
}

func NewAuthHandler(authService *service.AuthService, google *service.GoogleAuthService, sessions SessionController, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		google:      google,
		sessions:    sessions,
		validator:   newValidator(),
		logger:      logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validate(h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loginResp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.signIn(w, r, loginResp, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validate(h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loginResp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.signIn(w, r, loginResp, http.StatusOK)
}

// signIn switches the device to the account. The migration outlives the
// request so a dropped connection cannot cut it short.
func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, loginResp *domain.LoginResponse, status int) {
	report, err := h.sessions.SignIn(context.WithoutCancel(r.Context()), loginResp.User)
	if err != nil {
		h.logger.Warn("signed in without migrating guest projects", "user", loginResp.User.ID, "err", err)
	}
	loginResp.Migration = report
	response.JSON(w, status, loginResp)
}

func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validate(h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	tokenResp, err := h.authService.RefreshToken(&req)
	if err != nil {
		response.Unauthorized(w, "Invalid refresh token")
		return
	}

	response.Success(w, tokenResp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut()
	response.Message(w, "Logged out successfully")
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validate(h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Message(w, "If the email is registered, reset instructions have been sent")
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validate(h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.authService.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Message(w, "Password updated")
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	url, err := h.google.AuthCodeURL(state)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.google.Enabled() {
		writeError(w, h.logger, service.ErrGoogleDisabled)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		response.BadRequest(w, "Invalid OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		response.BadRequest(w, "Missing authorization code")
		return
	}

	loginResp, err := h.google.Complete(r.Context(), code)
	if err != nil {
		h.logger.Warn("google sign-in failed", "err", err)
		response.Unauthorized(w, "Google sign-in failed")
		return
	}

	h.signIn(w, r, loginResp, http.StatusOK)
}
