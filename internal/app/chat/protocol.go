/*
Package chat contains the core logic of the real-time relay: rooms, private
conversations, presence transitions, and message/reaction fan-out.

This file defines the wire protocol: event names, the JSON envelope used in
both directions, and the payload structures carried by each event.
*/
package chat

import "encoding/json"

// EventName identifies one named message of the socket protocol.
type EventName string

// Inbound events (client to server).
const (
	EvtUserJoin       EventName = "user:join"
	EvtMessageSend    EventName = "message:send"
	EvtMessagePrivate EventName = "message:private"
	EvtMessageReact   EventName = "message:react"
	EvtTypingStart    EventName = "typing:start"
	EvtTypingStop     EventName = "typing:stop"
	EvtPrivateHistory EventName = "chat:private:history"
	EvtRoomSwitch     EventName = "room:switch"
	EvtRoomsList      EventName = "rooms:list"
	EvtUsersOnline    EventName = "users:online"
)

// Outbound events (server to client). EvtTypingStart/EvtTypingStop,
// EvtRoomsList, EvtUsersOnline and EvtPrivateHistory are reused as the
// corresponding response or rebroadcast events.
const (
	EvtUserJoined      EventName = "user:joined"
	EvtUserEntered     EventName = "user:entered"
	EvtUserLeft        EventName = "user:left"
	EvtMessageReceived EventName = "message:received"
	EvtPrivateReceived EventName = "message:private:received"
	EvtNotification    EventName = "notification"
	EvtReactionUpdated EventName = "message:reaction:updated"
	EvtRoomJoined      EventName = "room:joined"
	EvtRoomUsers       EventName = "room:users"
	EvtError           EventName = "error"
)

// Envelope is the framing shared by both directions: a named event with a
// JSON payload.
type Envelope struct {
	Event   EventName       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// encodeEvent serializes an outbound event with its payload into one frame.
func encodeEvent(name EventName, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{Event: name, Payload: raw})
}

// --- Inbound payloads ---

// JoinPayload carries the self-declared username for user:join.
type JoinPayload struct {
	Username string `json:"username"`
}

// SendPayload carries a room message. RoomID defaults to the default public
// room when omitted.
type SendPayload struct {
	Content string `json:"content"`
	RoomID  string `json:"roomId,omitempty"`
}

// PrivatePayload carries a direct message to one recipient.
type PrivatePayload struct {
	Content     string `json:"content"`
	RecipientID string `json:"recipientId"`
}

// ReactPayload toggles one reaction symbol on a room message.
type ReactPayload struct {
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
	RoomID    string `json:"roomId,omitempty"`
}

// TypingPayload scopes a typing indicator to a room.
type TypingPayload struct {
	RoomID string `json:"roomId,omitempty"`
}

// HistoryPayload requests the private history shared with another user.
type HistoryPayload struct {
	OtherUserID string `json:"otherUserId"`
}

// SwitchPayload names the room to move to.
type SwitchPayload struct {
	RoomID string `json:"roomId"`
}

// --- Outbound payloads ---

// ErrorPayload is the body of every error event, scoped to the offending
// connection only.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MemberInfo is the public view of a user in member lists and enumerations.
type MemberInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	RoomID   string `json:"roomId,omitempty"`
	Online   bool   `json:"online"`
}

// RoomInfo describes one room of the catalogue.
type RoomInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"memberCount"`
}

// RoomSnapshot is handed to a connection entering a room: the room itself,
// its current members, and the most recent history window.
type RoomSnapshot struct {
	Room     RoomInfo     `json:"room"`
	Members  []MemberInfo `json:"members"`
	Messages []*Message   `json:"messages"`
}

// JoinedPayload answers a successful user:join with the new identity and the
// default room snapshot.
type JoinedPayload struct {
	User     MemberInfo   `json:"user"`
	Snapshot RoomSnapshot `json:"snapshot"`
}

// PresencePayload announces a user entering or leaving a room.
type PresencePayload struct {
	User   MemberInfo `json:"user"`
	RoomID string     `json:"roomId"`
}

// RoomUsersPayload carries a refreshed member list after a membership change.
type RoomUsersPayload struct {
	RoomID  string       `json:"roomId"`
	Members []MemberInfo `json:"members"`
}

// NotificationPayload accompanies a private message delivered to an online
// recipient, distinct from the message event itself.
type NotificationPayload struct {
	Kind   string     `json:"kind"`
	From   MemberInfo `json:"from"`
	ChatID string     `json:"chatId"`
}

// ReactionUpdatedPayload broadcasts the full reaction state of a message
// after a toggle, along with which action occurred.
type ReactionUpdatedPayload struct {
	RoomID    string                     `json:"roomId"`
	MessageID string                     `json:"messageId"`
	Action    string                     `json:"action"` // "added" or "removed"
	Reactions map[string][]ReactionEntry `json:"reactions"`
}

// TypingEventPayload is rebroadcast to every room member except the typist.
type TypingEventPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// PrivateHistoryPayload answers a chat:private:history request.
type PrivateHistoryPayload struct {
	ChatID      string     `json:"chatId"`
	OtherUserID string     `json:"otherUserId"`
	Messages    []*Message `json:"messages"`
}

// RoomsListPayload answers a rooms:list request.
type RoomsListPayload struct {
	Rooms []RoomInfo `json:"rooms"`
}

// OnlineUsersPayload answers a users:online request.
type OnlineUsersPayload struct {
	Users []MemberInfo `json:"users"`
}
