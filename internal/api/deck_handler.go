package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-study/internal/api/shared"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/service"
)

// DeckHandler handles deck and leaderboard requests.
type DeckHandler struct {
	studyService service.StudyService
	logger       *slog.Logger
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(studyService service.StudyService, logger *slog.Logger) *DeckHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for DeckHandler")
	}
	return &DeckHandler{
		studyService: studyService,
		logger:       logger.With(slog.String("component", "deck_handler")),
	}
}

// ListDecks handles GET /api/decks.
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.studyService.ListDecks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list decks")
		return
	}
	if decks == nil {
		decks = []service.DeckSummary{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DeckListResponse{Decks: decks})
}

// CreateDeck handles POST /api/decks.
func (h *DeckHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateDeckRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cards := make([]service.CardInput, len(req.Cards))
	for i, c := range req.Cards {
		cards[i] = service.CardInput{Front: c.Front, Back: c.Back, Note: c.Note}
	}

	deck, err := h.studyService.CreateDeck(r.Context(), req.Name, cards)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create deck")
		return
	}

	log.Debug("deck created via API",
		slog.String("deck_id", deck.ID.String()),
		slog.Int("cards", len(deck.Cards)))
	shared.RespondWithJSON(w, r, http.StatusCreated, deck)
}

// Leaderboard handles GET /api/decks/{deckID}/leaderboard. The optional
// username query parameter selects whose personal best is reported.
func (h *DeckHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	deckID, err := getPathUUID(r, "deckID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	board, err := h.studyService.Leaderboard(r.Context(), deckID, username)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load leaderboard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, board)
}
