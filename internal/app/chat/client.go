/*
Package chat contains the core logic of the real-time relay.

This file defines the Client struct, the WebSocket adapter for one
connection. It runs the read and write pumps, decodes inbound event
envelopes, dispatches them to the Hub, and reports failures back to its own
connection as error events.
*/
package chat

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound frame.
	maxMessageSize = 8192
)

// Client couples a WebSocket connection to its hub session.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *Session

	logger zerolog.Logger
}

// NewClient constructs a Client with a fresh, unbound session.
func NewClient(hub *Hub, wsConn *websocket.Conn) *Client {
	session := NewSession()

	return &Client{
		hub:     hub,
		conn:    wsConn,
		session: session,
		logger:  logx.Logger().With().Str("session_id", session.ID()).Logger(),
	}
}

// ReadPump handles reading frames from the WebSocket connection.
// It maintains the heartbeat (Pong) deadline, dispatches decoded events, and
// performs the disconnect transition when the connection drops.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (Client close/going away)")
			}
			break
		}

		c.dispatch(frame)
	}
}

// cleanupOnDisconnect runs the disconnect transition and closes the socket
// when the read pump terminates. Disconnection is a lifecycle event here,
// not an error path.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.Disconnect(c.session)

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// dispatch decodes one inbound envelope and routes it to the hub operation
// it names. A panic inside one dispatch is contained here: it is logged and
// answered with a generic error event, leaving every other connection and
// all stores untouched.
func (c *Client) dispatch(frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error().
				Interface("panic", rec).
				Msg("Recovered from panic in event dispatch")
			c.sendError(errs.NewError(errs.ErrUnknown))
		}
	}()

	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame", frame).
			Msg("Client sent invalid JSON")
		c.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if cerr := c.handleEvent(envelope); cerr != nil {
		c.sendError(cerr)
	}
}

// handleEvent unmarshals the payload for the named event and invokes the
// matching hub operation.
func (c *Client) handleEvent(envelope Envelope) *errs.CustomError {
	switch envelope.Event {
	case EvtUserJoin:
		var p JoinPayload
		if cerr := decodePayload(envelope.Payload, &p); cerr != nil {
			return cerr
		}
		return c.hub.Join(c.session, p.Username)

	case EvtMessageSend:
		var p SendPayload
		if cerr := decodePayload(envelope.Payload, &p); cerr != nil {
			return cerr
		}
		return c.hub.SendRoom(c.session, p.RoomID, p.Content)

	case EvtMessagePrivate:
		var p PrivatePayload
		if cerr := decodePayload(envelope.Payload, &p); cerr != nil {
			return cerr
		}
		return c.hub.SendPrivate(c.session, p.RecipientID, p.Content)

	case EvtMessageReact:
		var p ReactPayload
		if cerr := decodePayload(envelope.Payload, &p); cerr != nil {
			return cerr
		}
		return c.hub.React(c.session, p.RoomID, p.MessageID, p.Reaction)

	case EvtTypingStart, EvtTypingStop:
		var p TypingPayload
		if cerr := decodePayload(envelope.Payload, &p); cerr != nil {
			return cerr
		}
		return c.hub.Typing(c.session, p.RoomID, envelope.Event == EvtTypingStart)

	case EvtPrivateHistory:
		var p HistoryPayload
		if cerr := decodePayload(envelope.Payload, &p); cerr != nil {
			return cerr
		}
		return c.hub.PrivateHistory(c.session, p.OtherUserID)

	case EvtRoomSwitch:
		var p SwitchPayload
		if cerr := decodePayload(envelope.Payload, &p); cerr != nil {
			return cerr
		}
		return c.hub.SwitchRoom(c.session, p.RoomID)

	case EvtRoomsList:
		return c.hub.ListRooms(c.session)

	case EvtUsersOnline:
		return c.hub.OnlineUsers(c.session)

	default:
		c.logger.Warn().Str("event", string(envelope.Event)).Msg("Client sent unsupported event")
		return errs.NewError(errs.ErrInvalidParams)
	}
}

// decodePayload unmarshals an event payload, treating an absent payload as
// the zero value so events without parameters stay valid.
func decodePayload(raw json.RawMessage, dst any) *errs.CustomError {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

// sendError queues an error event scoped to this connection only.
func (c *Client) sendError(cerr *errs.CustomError) {
	frame, err := encodeEvent(EvtError, ErrorPayload{
		Code:    cerr.Code,
		Message: cerr.Message,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build error event")
		return
	}

	c.session.enqueue(frame)
}

// WritePump drains the session's outbound queue onto the WebSocket
// connection and keeps the heartbeat alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.session.Outbound():
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the outbound queue.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping to maintain the heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
