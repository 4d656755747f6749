package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"smart-reader/internal/config"
	"smart-reader/internal/domain"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// GoogleAuthService runs the authorization code flow and signs the Google
// account's email into the local account store.
type GoogleAuthService struct {
	config      *oauth2.Config
	auth        *AuthService
	userInfoURL string
}

// NewGoogleAuthService returns nil when no client is configured.
func NewGoogleAuthService(cfg config.GoogleConfig, auth *AuthService) *GoogleAuthService {
	if !cfg.Enabled() {
		return nil
	}
	return &GoogleAuthService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     googleEndpoint,
		},
		auth:        auth,
		userInfoURL: googleUserInfoURL,
	}
}

func (s *GoogleAuthService) Enabled() bool {
	return s != nil
}

func (s *GoogleAuthService) AuthCodeURL(state string) (string, error) {
	if !s.Enabled() {
		return "", ErrGoogleDisabled
	}
	return s.config.AuthCodeURL(state), nil
}

// Complete exchanges the callback code and signs the account in.
func (s *GoogleAuthService) Complete(ctx context.Context, code string) (*domain.LoginResponse, error) {
	if !s.Enabled() {
		return nil, ErrGoogleDisabled
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	email, err := s.fetchEmail(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.auth.LoginWithGoogle(ctx, email)
}

func (s *GoogleAuthService) fetchEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	client := s.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if !info.VerifiedEmail {
		return "", fmt.Errorf("google email %s is not verified", info.Email)
	}
	return info.Email, nil
}
