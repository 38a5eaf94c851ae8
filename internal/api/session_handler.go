package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/api/shared"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/service"
	"github.com/phrazzld/scry-study/internal/session"
	"github.com/phrazzld/scry-study/internal/study/flipcard"
)

// SessionRegistry looks up and stops live sessions. session.Manager
// implements it.
type SessionRegistry interface {
	Get(id string) (*session.Session, error)
	Abandon(ctx context.Context, id string) error
}

// SessionHandler handles live study session requests.
type SessionHandler struct {
	studyService service.StudyService
	sessions     SessionRegistry
	logger       *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	studyService service.StudyService,
	sessions SessionRegistry,
	logger *slog.Logger,
) *SessionHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SessionHandler")
	}
	return &SessionHandler{
		studyService: studyService,
		sessions:     sessions,
		logger:       logger.With(slog.String("component", "session_handler")),
	}
}

// StartSession handles POST /api/sessions.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	deckID, err := uuid.Parse(req.DeckID)
	if err != nil {
		HandleAPIError(w, r, domain.ErrInvalidID, "")
		return
	}

	sess, err := h.studyService.StartSession(r.Context(), service.StartSessionParams{
		Username: req.Username,
		DeckID:   deckID,
		Mode:     domain.Mode(req.Mode),
		Seed:     req.Seed,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	view, err := sess.View(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	log.Info("session started via API",
		slog.String("session_id", sess.ID()),
		slog.String("mode", string(sess.Mode())))
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	shared.RespondWithJSON(w, r, http.StatusCreated, view)
}

// GetSession handles GET /api/sessions/{id}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	view, err := sess.View(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Abandon(r.Context(), chi.URLParam(r, "id")); err != nil {
		HandleAPIError(w, r, err, "Failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Grade handles POST /api/sessions/{id}/grade.
func (h *SessionHandler) Grade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := flipcard.ParseResult(req.Result)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	h.act(w, r, func(ctx context.Context, s *session.Session) (session.Outcome, error) {
		return s.Grade(ctx, result)
	})
}

// Click handles POST /api/sessions/{id}/click.
func (h *SessionHandler) Click(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.act(w, r, func(ctx context.Context, s *session.Session) (session.Outcome, error) {
		return s.Click(ctx, *req.Tile)
	})
}

// Answer handles POST /api/sessions/{id}/answer.
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.act(w, r, func(ctx context.Context, s *session.Session) (session.Outcome, error) {
		return s.Answer(ctx, *req.Option)
	})
}

// Replay handles POST /api/sessions/{id}/replay.
func (h *SessionHandler) Replay(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, s *session.Session) (session.Outcome, error) {
		return s.Replay(ctx)
	})
}

// act runs one learner action. Ignored actions still answer 200 with
// accepted set to false.
func (h *SessionHandler) act(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, *session.Session) (session.Outcome, error),
) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	out, err := fn(r.Context(), sess)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to apply action")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("session action",
		slog.String("session_id", sess.ID()),
		slog.String("path", r.URL.Path),
		slog.Bool("accepted", out.Accepted))
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, false
	}
	return sess, true
}
