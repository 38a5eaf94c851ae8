package api

import (
	"github.com/phrazzld/scry-study/internal/service"
	"github.com/phrazzld/scry-study/internal/speech"
)

// CardRequest is one card of a new deck.
type CardRequest struct {
	Front string `json:"front" validate:"required,max=500"`
	Back  string `json:"back"  validate:"required,max=500"`
	Note  string `json:"note"  validate:"max=1000"`
}

// CreateDeckRequest defines the payload for POST /api/decks.
type CreateDeckRequest struct {
	Name  string        `json:"name"  validate:"required,max=200"`
	Cards []CardRequest `json:"cards" validate:"required,min=1,max=1000,dive"`
}

// DeckListResponse wraps the deck summaries.
type DeckListResponse struct {
	Decks []service.DeckSummary `json:"decks"`
}

// StartSessionRequest defines the payload for POST /api/sessions. Seed fixes
// the shuffle for reproducible sessions.
type StartSessionRequest struct {
	Username string  `json:"username" validate:"required,max=64"`
	DeckID   string  `json:"deck_id"  validate:"required,uuid"`
	Mode     string  `json:"mode"     validate:"required"`
	Seed     *uint64 `json:"seed,omitempty"`
}

// GradeRequest grades the current flip card.
type GradeRequest struct {
	Result string `json:"result" validate:"required,oneof=correct incorrect mastered"`
}

// ClickRequest turns over a memory tile.
type ClickRequest struct {
	Tile *int `json:"tile" validate:"required,min=0"`
}

// AnswerRequest picks a listening option.
type AnswerRequest struct {
	Option *int `json:"option" validate:"required,min=0"`
}

// SpeakRequest asks the server to speak text.
type SpeakRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// SpeakResponse reports which path produced the audio.
type SpeakResponse struct {
	Source speech.Source `json:"source"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
