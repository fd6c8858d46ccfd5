/*
Package handler provides the HTTP handlers and routing setup for the chat relay.

This file defines the main Router, applying middleware like logging, CORS, and
IP-based rate limiting before delegating requests to the health/stats
endpoints and the WebSocket upgrade handler.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"chatrelay/internal/pkg/limiter"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

const (
	// ConnectRate limits how often a single IP may open new socket connections.
	ConnectRate = 0.5

	// ConnectBurst allows short bursts of reconnects, e.g. after a network blip.
	ConnectBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It configures CORS from the allowed origins, wires the request logger and
// recoverer, and exposes the health/stats endpoints, the REST room catalogue,
// and the rate-limited WebSocket endpoint.
func Router(deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "Chat Relay",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Hub.Stats())
	})

	r.Get("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Hub.RoomCatalogue())
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}
