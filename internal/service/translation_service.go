package service

import (
	"context"
	"strings"

	"smart-reader/internal/domain"
	"smart-reader/internal/reader"
)

type Translator interface {
	Translate(ctx context.Context, text string) string
}

// TranslationService answers a reader selection with its translation and,
// for short selections, a syllable hint.
type TranslationService struct {
	translator Translator
}

func NewTranslationService(translator Translator) *TranslationService {
	return &TranslationService{translator: translator}
}

func (s *TranslationService) Translate(ctx context.Context, selection string) (*domain.TranslationResponse, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return nil, ErrEmptyContent
	}

	resp := &domain.TranslationResponse{
		Text:        selection,
		Translation: s.translator.Translate(ctx, selection),
	}
	if hint, ok := reader.Syllables(selection); ok {
		resp.Syllables = hint
	}
	return resp, nil
}
