package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/phrazzld/scry-study/internal/api"
	apiMiddleware "github.com/phrazzld/scry-study/internal/api/middleware"
	"github.com/phrazzld/scry-study/internal/api/shared"
	"github.com/phrazzld/scry-study/internal/observe"
)

// setupRouter creates the router with all middleware and routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   app.config.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", shared.TraceIDHeader},
		ExposedHeaders:   []string{shared.TraceIDHeader, "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)
	if app.metrics != nil {
		r.Use(observe.Middleware(app.metrics))
	}

	deckHandler := api.NewDeckHandler(app.studyService, app.logger)
	sessionHandler := api.NewSessionHandler(app.studyService, app.sessions, app.logger)
	speechHandler := api.NewSpeechHandler(app.speech, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/decks", deckHandler.ListDecks)
		r.Post("/decks", deckHandler.CreateDeck)
		r.Get("/decks/{deckID}/leaderboard", deckHandler.Leaderboard)

		r.Post("/sessions", sessionHandler.StartSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Delete("/", sessionHandler.DeleteSession)
			r.Post("/grade", sessionHandler.Grade)
			r.Post("/click", sessionHandler.Click)
			r.Post("/answer", sessionHandler.Answer)
			r.Post("/replay", sessionHandler.Replay)
		})

		r.Post("/speak", speechHandler.Speak)
	})

	r.Get("/health", api.HealthHandler(app.sessions))
	r.Handle("/metrics", promhttp.Handler())

	return r
}
