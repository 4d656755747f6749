package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"smart-reader/internal/domain"
	"smart-reader/internal/repository"
)

// PreferencesService keeps the device's theme settings.
type PreferencesService struct {
	store  repository.SettingsStore
	logger *log.Logger
}

func NewPreferencesService(store repository.SettingsStore, logger *log.Logger) *PreferencesService {
	return &PreferencesService{store: store, logger: logger}
}

// Get returns the stored preferences, or the defaults when none are stored
// or the stored blob is unreadable.
func (s *PreferencesService) Get(ctx context.Context) (domain.Preferences, error) {
	prefs := domain.DefaultPreferences()

	raw, err := s.store.GetSetting(ctx, domain.PreferencesKey)
	if errors.Is(err, repository.ErrSettingNotFound) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		s.logger.Warn("discarding unreadable preferences", "err", err)
		return domain.DefaultPreferences(), nil
	}
	return prefs, nil
}

func (s *PreferencesService) Update(ctx context.Context, req *domain.UpdatePreferencesRequest) (domain.Preferences, error) {
	prefs, err := s.Get(ctx)
	if err != nil {
		return prefs, err
	}

	if req.DarkMode != nil {
		prefs.DarkMode = *req.DarkMode
	}
	if req.EyeComfort != nil {
		prefs.EyeComfort = *req.EyeComfort
	}

	raw, err := json.Marshal(prefs)
	if err != nil {
		return prefs, fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := s.store.PutSetting(ctx, domain.PreferencesKey, string(raw)); err != nil {
		return prefs, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}
