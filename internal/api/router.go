package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Monitor lifecycle
		r.Route("/process", func(r chi.Router) {
			r.Post("/start", s.handleProcessStart)
			r.Post("/stop", s.handleProcessStop)
		})

		// Default device state and per-device history
		r.Get("/device", s.handleGetDevice)
		r.Route("/devices/{id}", func(r chi.Router) {
			r.Get("/history", s.handleDeviceHistory)
			r.Put("/volume", s.handleSetDeviceVolume)
			r.Post("/mute", s.handleMuteDevice)
			r.Post("/unmute", s.handleUnmuteDevice)
			r.Post("/mute/toggle", s.handleToggleMuteDevice)
		})

		// Default device volume control
		r.Route("/volume", func(r chi.Router) {
			r.Put("/", s.handleSetVolume)
			r.Post("/up", s.handleVolumeUp)
			r.Post("/down", s.handleVolumeDown)
		})

		// Default device mute control
		r.Route("/mute", func(r chi.Router) {
			r.Post("/", s.handleMute)
			r.Post("/toggle", s.handleToggleMute)
		})
		r.Post("/unmute", s.handleUnmute)

		// Runtime settings
		r.Route("/settings", func(r chi.Router) {
			r.Put("/delay", s.handleSetDelay)
			r.Put("/step", s.handleSetStep)
		})

		// WebSocket for real-time change events
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
