package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"smart-reader/internal/domain"
	"smart-reader/internal/repository"
	"smart-reader/pkg/hash"
	"smart-reader/pkg/jwt"
)

const (
	resetTokenBytes = 32
	resetTokenTTL   = time.Hour
)

// ResetDelivery hands a password reset token to the account owner.
type ResetDelivery interface {
	Deliver(ctx context.Context, email, token string) error
}

// LogResetDelivery writes reset tokens to the server log. It stands in for
// a mailer on single-device installs.
type LogResetDelivery struct {
	Logger *log.Logger
}

func (d LogResetDelivery) Deliver(ctx context.Context, email, token string) error {
	d.Logger.Info("password reset requested", "email", email, "token", token)
	return nil
}

type AuthService struct {
	userRepo          repository.UserRepository
	resetRepo         repository.PasswordResetRepository
	delivery          ResetDelivery
	jwtSecret         string
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
	now               func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	delivery ResetDelivery,
	jwtSecret string,
	jwtExp, refreshExp time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:          userRepo,
		resetRepo:         resetRepo,
		delivery:          delivery,
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExp,
		refreshExpiration: refreshExp,
		now:               time.Now,
	}
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.LoginResponse, error) {
	if len(req.Password) < hash.MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", hash.MinPasswordLength)
	}

	emailExists, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if emailExists {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := hash.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:        uuid.New().String(),
		Email:     repository.NormalizeEmail(req.Email),
		Password:  hashedPassword,
		Provider:  domain.ProviderPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := hash.Compare(user.Password, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// LoginWithGoogle signs in the account owning email, creating it on first
// use.
func (s *AuthService) LoginWithGoogle(ctx context.Context, email string) (*domain.LoginResponse, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New("google account has no email")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUserNotFound):
		now := s.now()
		user = &domain.User{
			ID:        uuid.New().String(),
			Email:     repository.NormalizeEmail(email),
			Provider:  domain.ProviderGoogle,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.issue(user)
}

func (s *AuthService) RefreshToken(req *domain.RefreshTokenRequest) (*domain.TokenResponse, error) {
	claims, err := jwt.ValidateToken(req.RefreshToken, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}
	if claims.TokenType != "" && claims.TokenType != jwt.TokenTypeRefresh {
		return nil, fmt.Errorf("invalid refresh token")
	}

	accessToken, err := jwt.GenerateToken(claims.UserID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) ValidateToken(token string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

// RequestPasswordReset issues a one-time token for the account. Unknown
// emails succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	secret, err := hash.NewToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := user.ID + "." + secret

	now := s.now()
	reset := &domain.PasswordReset{
		UserID:    user.ID,
		TokenHash: hash.Token(token),
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}
	if err := s.resetRepo.Save(ctx, reset); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	return s.delivery.Deliver(ctx, user.Email, token)
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	userID, _, ok := strings.Cut(token, ".")
	if !ok || userID == "" {
		return ErrInvalidResetToken
	}

	reset, err := s.resetRepo.Get(ctx, userID)
	if errors.Is(err, repository.ErrResetNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to load reset token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(reset.TokenHash), []byte(hash.Token(token))) != 1 {
		return ErrInvalidResetToken
	}
	if s.now().After(reset.ExpiresAt) {
		_ = s.resetRepo.Delete(ctx, userID)
		return ErrInvalidResetToken
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return ErrInvalidResetToken
	}

	hashedPassword, err := hash.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hashedPassword
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return s.resetRepo.Delete(ctx, userID)
}

func (s *AuthService) issue(user *domain.User) (*domain.LoginResponse, error) {
	accessToken, err := jwt.GenerateToken(user.ID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(user.ID, s.refreshExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	safe := *user
	safe.Password = ""

	return &domain.LoginResponse{
		User:         &safe,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtExpiration.Seconds()),
	}, nil
}
