package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"smart-reader/internal/domain"
	"smart-reader/internal/provider"
)

var ErrUnsupportedLanguage = errors.New("unsupported speech language")

type AudioSource interface {
	AudioURL(text, lang string, speed float64) string
	Fetch(ctx context.Context, text, lang string, speed float64) (*provider.Audio, error)
}

type inflightAudio struct {
	id     uint64
	cancel context.CancelFunc
}

// SpeechService decides how a selection is voiced and proxies remote audio.
// A new audio request for a session cancels the one still playing.
type SpeechService struct {
	source AudioSource

	mu       sync.Mutex
	seq      uint64
	inflight map[string]inflightAudio
}

func NewSpeechService(source AudioSource) *SpeechService {
	return &SpeechService{
		source:   source,
		inflight: make(map[string]inflightAudio),
	}
}

func normalizeSpeed(speed float64) float64 {
	if speed <= 0 {
		return 1
	}
	return speed
}

// Plan returns native playback for English and a remote voice for Bengali.
func (s *SpeechService) Plan(text, lang string, speed float64) (*domain.SpeechPlan, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	speed = normalizeSpeed(speed)

	switch lang {
	case domain.LangEnglish, "":
		return &domain.SpeechPlan{
			Engine: domain.EngineNative,
			Lang:   domain.LangEnglish,
			Text:   text,
			Rate:   speed,
		}, nil
	case domain.LangBengali:
		return &domain.SpeechPlan{
			Engine:       domain.EngineRemote,
			Lang:         domain.LangBengali,
			Text:         text,
			Rate:         speed,
			AudioURL:     s.source.AudioURL(text, domain.LangBengali, speed),
			PlaybackRate: speed,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
}

// Audio opens the remote voice for text. The returned release func must be
// called when the stream is done; a later call with the same key cancels
// this stream.
func (s *SpeechService) Audio(ctx context.Context, key, text string, speed float64) (*provider.Audio, func(), error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, ErrEmptyContent
	}

	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	s.seq++
	id := s.seq
	s.inflight[key] = inflightAudio{id: id, cancel: cancel}
	s.mu.Unlock()

	release := func() {
		cancel()
		s.mu.Lock()
		if cur, ok := s.inflight[key]; ok && cur.id == id {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
	}

	audio, err := s.source.Fetch(ctx, text, domain.LangBengali, normalizeSpeed(speed))
	if err != nil {
		release()
		return nil, nil, err
	}
	return audio, release, nil
}
