package api

import (
	"net/http"

	"github.com/phrazzld/scry-study/internal/api/shared"
)

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// HealthHandler handles GET /health.
func HealthHandler(sessions SessionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
			Status:   "ok",
			Sessions: sessions.Len(),
		})
	}
}
