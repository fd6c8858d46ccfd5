/*
Package handler provides the HTTP handlers and routing setup for the chat relay.

This file contains the HandleWebSocket function, responsible for rate
limiting, upgrading the HTTP connection to WebSocket, and starting the client
lifecycle. Identity is NOT established here: the connection stays anonymous
until the client sends a user:join event over the socket.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"chatrelay/internal/app/chat"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/limiter"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades connections and
// hands them to the relay hub.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			rateLimitErr := errs.NewError(errs.ErrRateLimitExceeded)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, conn)

		go client.WritePump()

		logx.Info("WebSocket connection established, awaiting join")

		client.ReadPump()
	}
}
