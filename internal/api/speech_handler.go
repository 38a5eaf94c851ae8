package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-study/internal/api/shared"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/speech"
)

// Speaker speaks text and reports how. speech.Service implements it.
type Speaker interface {
	SpeakSync(ctx context.Context, text string) speech.Source
}

// SpeechHandler serves the pronunciation endpoint.
type SpeechHandler struct {
	speaker Speaker
	logger  *slog.Logger
}

// NewSpeechHandler creates a new SpeechHandler.
func NewSpeechHandler(speaker Speaker, logger *slog.Logger) *SpeechHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SpeechHandler")
	}
	return &SpeechHandler{
		speaker: speaker,
		logger:  logger.With(slog.String("component", "speech_handler")),
	}
}

// Speak handles POST /api/speak. Speech failures are absorbed by the speech
// service, so the response only reports which path produced the audio.
func (h *SpeechHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	src := h.speaker.SpeakSync(r.Context(), req.Text)
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("speak request served",
		slog.String("source", string(src)),
		slog.Int("text_len", len(req.Text)))
	shared.RespondWithJSON(w, r, http.StatusOK, SpeakResponse{Source: src})
}
