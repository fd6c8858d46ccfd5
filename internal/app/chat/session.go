/*
Package chat contains the core logic of the real-time relay.

This file defines the Session, the server-side handle for one live
connection. A session starts anonymous and is bound to a user identity by a
successful join; it queues outbound frames on a buffered channel drained by
the transport's write loop.
*/
package chat

import (
	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/randx"
)

// sendChannelBuffer sizes the per-session outbound queue.
const sendChannelBuffer = 256

// Session is the connection handle known to the hub. One logical connection
// maps to one Session for its whole lifetime.
type Session struct {
	// id correlates log lines for this connection.
	id string

	// userID is the bound identity, empty until a successful join.
	userID string

	// send queues serialized outbound frames for the write loop.
	send chan []byte

	// closed marks the session as torn down so late emits are dropped quietly.
	closed bool

	logger zerolog.Logger
}

// NewSession creates an unbound session for a fresh connection.
func NewSession() *Session {
	id := randx.SessionID()

	return &Session{
		id:     id,
		send:   make(chan []byte, sendChannelBuffer),
		logger: logx.Logger().With().Str("session_id", id).Logger(),
	}
}

// ID returns the connection-scoped identifier of this session.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the bound user id, empty before join.
func (s *Session) UserID() string {
	return s.userID
}

// Outbound exposes the queue of serialized frames for the write loop.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// enqueue attempts a non-blocking send of one frame. Fan-out is fire and
// forget: a full queue drops the frame with a warning rather than blocking
// the operation that produced it.
func (s *Session) enqueue(frame []byte) bool {
	if s.closed {
		return false
	}

	select {
	case s.send <- frame:
		return true
	default:
		s.logger.Warn().
			Int("queue_len", len(s.send)).
			Msg("Session send channel full, dropping frame")
		return false
	}
}

// close marks the session dead and closes its outbound queue so the write
// loop terminates. Called by the hub during disconnect, under its lock.
func (s *Session) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
