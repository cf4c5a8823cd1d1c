// Package http wires the service's HTTP surface: health checks and the
// streaming endpoint upgrade.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cumulative-transcribe-service/internal/app"
	"cumulative-transcribe-service/internal/observability"
)

// StreamHandler upgrades and serves the transcription WebSocket endpoint.
type StreamHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application, stream StreamHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger())

	application.Logger.With().Str("component", "router").Logger().
		Info().Msg("http router configured")

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Get("/ws/transcribe-stream-cumulative", stream.ServeHTTP)

	return r
}
