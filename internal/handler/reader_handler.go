package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"smart-reader/internal/service"
	"smart-reader/internal/session"
	"smart-reader/pkg/response"
)

// ReaderHandler serves the selection tools: translation and speech.
type ReaderHandler struct {
	translation *service.TranslationService
	speech      *service.SpeechService
	logger      *log.Logger
}

func NewReaderHandler(translation *service.TranslationService, speech *service.SpeechService, logger *log.Logger) *ReaderHandler {
	return &ReaderHandler{
		translation: translation,
		speech:      speech,
		logger:      logger,
	}
}

func (h *ReaderHandler) Translate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	resp, err := h.translation.Translate(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, resp)
}

func (h *ReaderHandler) SpeechPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	plan, err := h.speech.Plan(q.Get("text"), q.Get("lang"), parseSpeed(q.Get("speed")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, plan)
}

// SpeechAudio streams the remote voice. A newer request from the same
// session stops this one.
func (h *ReaderHandler) SpeechAudio(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	q := r.URL.Query()

	audio, release, err := h.speech.Audio(r.Context(), sess.Key(), q.Get("text"), parseSpeed(q.Get("speed")))
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.logger.Warn("speech audio unavailable", "err", err)
		writeError(w, h.logger, err)
		return
	}
	defer release()
	defer audio.Body.Close()

	w.Header().Set("Content-Type", audio.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio.Body); err != nil {
		h.logger.Debug("speech stream ended early", "session", sess.Key(), "err", err)
	}
}

func parseSpeed(raw string) float64 {
	speed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 1
	}
	return speed
}
