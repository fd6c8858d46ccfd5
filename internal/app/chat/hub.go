/*
Package chat contains the core logic of the real-time relay.

This file defines the Hub, the single process-wide service owning the
connection registry, the room catalogue, and the private chat store. Every
logical operation runs to completion under one mutex, reproducing the
atomicity the original event-loop runtime provided implicitly: connection
goroutines interleave at operation granularity, never mid-mutation. Outbound
delivery only enqueues frames under the lock; network writes happen in the
per-connection write loops.
*/
package chat

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

// Hub coordinates all rooms, private chats, and live sessions.
type Hub struct {
	// mu serializes every operation against the stores below.
	mu sync.Mutex

	// registry owns all user identities, online and retained-offline.
	registry *user.Registry

	// rooms holds the fixed room catalogue.
	rooms *RoomStore

	// private holds the lazily created pairwise conversation buckets.
	private *PrivateChatStore

	// sessions maps a bound user id to its live session.
	sessions map[string]*Session

	logger zerolog.Logger
}

// NewHub constructs the relay service with its fixed room catalogue.
func NewHub() *Hub {
	return &Hub{
		registry: user.NewRegistry(),
		rooms:    NewRoomStore(),
		private:  NewPrivateChatStore(),
		sessions: make(map[string]*Session),
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Join binds a declared username to the session and places the new user in
// the default room. On success the joining connection receives a user:joined
// snapshot and the rest of the room is notified; on failure nothing changes
// and only the caller sees the error.
func (h *Hub) Join(s *Session, username string) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.userID != "" {
		return errs.NewError(errs.ErrAlreadyJoined)
	}

	u, cerr := h.registry.Register(username)
	if cerr != nil {
		return cerr
	}

	room, cerr := h.rooms.Get(DefaultRoomID)
	if cerr != nil {
		return cerr
	}

	s.userID = u.ID
	h.sessions[u.ID] = s
	u.RoomID = room.ID
	room.AddMember(u.ID)

	h.logger.Info().
		Str("user_id", u.ID).
		Str("username", u.Username).
		Str("room_id", room.ID).
		Msg("User joined.")

	h.emit(s, EvtUserJoined, JoinedPayload{
		User:     h.memberInfo(u),
		Snapshot: h.roomSnapshot(room),
	})

	h.broadcastRoom(room, u.ID, EvtUserEntered, PresencePayload{User: h.memberInfo(u), RoomID: room.ID})
	h.broadcastRoom(room, u.ID, EvtRoomUsers, RoomUsersPayload{RoomID: room.ID, Members: h.memberInfos(room)})

	return nil
}

// SwitchRoom moves the session's user from its current room to the target
// room. The target must exist; on failure the user stays where it was with
// no partial state change. Switching to the current room is treated as a
// redundant leave and rejoin rather than being rejected.
func (h *Hub) SwitchRoom(s *Session, roomID string) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, cerr := h.resolve(s)
	if cerr != nil {
		return cerr
	}

	target, cerr := h.rooms.Get(roomID)
	if cerr != nil {
		return cerr
	}

	previous, cerr := h.rooms.Get(u.RoomID)
	if cerr != nil {
		return cerr
	}

	previous.RemoveMember(u.ID)
	h.broadcastRoom(previous, u.ID, EvtUserLeft, PresencePayload{User: h.memberInfo(u), RoomID: previous.ID})
	h.broadcastRoom(previous, u.ID, EvtRoomUsers, RoomUsersPayload{RoomID: previous.ID, Members: h.memberInfos(previous)})

	target.AddMember(u.ID)
	u.RoomID = target.ID

	h.logger.Info().
		Str("user_id", u.ID).
		Str("from_room", previous.ID).
		Str("to_room", target.ID).
		Msg("User switched rooms.")

	h.emit(s, EvtRoomJoined, h.roomSnapshot(target))

	h.broadcastRoom(target, u.ID, EvtUserEntered, PresencePayload{User: h.memberInfo(u), RoomID: target.ID})
	h.broadcastRoom(target, u.ID, EvtRoomUsers, RoomUsersPayload{RoomID: target.ID, Members: h.memberInfos(target)})

	return nil
}

// Disconnect handles the transport-level loss of a connection. It marks the
// user offline, removes it from its room with the usual notifications, and
// retains the identity record for the process lifetime. The transition never
// fails; disconnecting an unbound session is a no-op.
func (h *Hub) Disconnect(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	defer s.close()

	if s.userID == "" {
		return
	}

	u, ok := h.registry.Get(s.userID)
	if !ok {
		return
	}

	if current, bound := h.sessions[u.ID]; !bound || current != s {
		// Stale handle; the identity already moved on.
		return
	}

	delete(h.sessions, u.ID)

	roomID := u.RoomID
	h.registry.SetOffline(u.ID)

	h.logger.Info().
		Str("user_id", u.ID).
		Str("username", u.Username).
		Str("room_id", roomID).
		Msg("User disconnected.")

	if room, cerr := h.rooms.Get(roomID); cerr == nil {
		room.RemoveMember(u.ID)
		h.broadcastRoom(room, u.ID, EvtUserLeft, PresencePayload{User: h.memberInfo(u), RoomID: room.ID})
		h.broadcastRoom(room, u.ID, EvtRoomUsers, RoomUsersPayload{RoomID: room.ID, Members: h.memberInfos(room)})
	}
}

// SendRoom validates, stamps, stores, and broadcasts a room message. The
// sender's own connection receives the broadcast too. An omitted room id
// targets the default public room.
func (h *Hub) SendRoom(s *Session, roomID, content string) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, cerr := h.resolve(s)
	if cerr != nil {
		return cerr
	}

	body, cerr := validateContent(content)
	if cerr != nil {
		return cerr
	}

	if roomID == "" {
		roomID = DefaultRoomID
	}

	room, cerr := h.rooms.Get(roomID)
	if cerr != nil {
		return cerr
	}

	msg := NewRoomMessage(room.ID, u, body)
	room.Append(msg)

	h.broadcastRoom(room, "", EvtMessageReceived, msg)

	return nil
}

// SendPrivate stores a direct message in the pair's conversation bucket and
// echoes it to the sender. The recipient only receives the message, plus a
// separate notification event, while online; offline recipients get nothing
// until they ask for history.
func (h *Hub) SendPrivate(s *Session, recipientID, content string) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, cerr := h.resolve(s)
	if cerr != nil {
		return cerr
	}

	recipient, ok := h.registry.Get(recipientID)
	if !ok {
		return errs.NewError(errs.ErrUserNotFound)
	}

	body, cerr := validateContent(content)
	if cerr != nil {
		return cerr
	}

	bucket := h.private.GetOrCreate(u.ID, recipient.ID)
	msg := NewPrivateMessage(bucket.ID, u, recipient.ID, body)
	bucket.Append(msg)

	h.emit(s, EvtPrivateReceived, msg)

	if recipient.ID == u.ID {
		return nil
	}

	if target, online := h.sessions[recipient.ID]; online {
		h.emit(target, EvtPrivateReceived, msg)
		h.emit(target, EvtNotification, NotificationPayload{
			Kind:   "message:private",
			From:   h.memberInfo(u),
			ChatID: bucket.ID,
		})
	}

	return nil
}

// React toggles one reaction symbol for the calling user on a retained room
// message and broadcasts the full updated reaction map to the room. Messages
// evicted from the bounded history window report ErrMessageNotFound.
func (h *Hub) React(s *Session, roomID, messageID, symbol string) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, cerr := h.resolve(s)
	if cerr != nil {
		return cerr
	}

	if strings.TrimSpace(symbol) == "" || messageID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if roomID == "" {
		roomID = DefaultRoomID
	}

	room, cerr := h.rooms.Get(roomID)
	if cerr != nil {
		return cerr
	}

	msg, found := room.FindMessage(messageID)
	if !found {
		return errs.NewError(errs.ErrMessageNotFound)
	}

	action := "removed"
	if msg.ToggleReaction(u, symbol) {
		action = "added"
	}

	reactions := msg.Reactions
	if reactions == nil {
		reactions = map[string][]ReactionEntry{}
	}

	h.broadcastRoom(room, "", EvtReactionUpdated, ReactionUpdatedPayload{
		RoomID:    room.ID,
		MessageID: msg.ID,
		Action:    action,
		Reactions: reactions,
	})

	return nil
}

// Typing rebroadcasts a typing indicator to every room member except the
// typist. Nothing is stored and nothing is debounced server-side.
func (h *Hub) Typing(s *Session, roomID string, start bool) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, cerr := h.resolve(s)
	if cerr != nil {
		return cerr
	}

	if roomID == "" {
		roomID = DefaultRoomID
	}

	room, cerr := h.rooms.Get(roomID)
	if cerr != nil {
		return cerr
	}

	evt := EvtTypingStop
	if start {
		evt = EvtTypingStart
	}

	h.broadcastRoom(room, u.ID, evt, TypingEventPayload{
		UserID:   u.ID,
		Username: u.Username,
		RoomID:   room.ID,
	})

	return nil
}

// PrivateHistory answers with up to the last SnapshotHistoryLimit entries of
// the conversation shared with the other user, creating the bucket empty if
// the pair never talked.
func (h *Hub) PrivateHistory(s *Session, otherUserID string) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, cerr := h.resolve(s)
	if cerr != nil {
		return cerr
	}

	other, ok := h.registry.Get(otherUserID)
	if !ok {
		return errs.NewError(errs.ErrUserNotFound)
	}

	bucket := h.private.GetOrCreate(u.ID, other.ID)

	h.emit(s, EvtPrivateHistory, PrivateHistoryPayload{
		ChatID:      bucket.ID,
		OtherUserID: other.ID,
		Messages:    bucket.Recent(SnapshotHistoryLimit),
	})

	return nil
}

// ListRooms answers with the room catalogue and current member counts.
func (h *Hub) ListRooms(s *Session) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, cerr := h.resolve(s); cerr != nil {
		return cerr
	}

	h.emit(s, EvtRoomsList, RoomsListPayload{Rooms: h.roomInfos()})

	return nil
}

// OnlineUsers answers with every currently-online user and its room.
func (h *Hub) OnlineUsers(s *Session) *errs.CustomError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, cerr := h.resolve(s); cerr != nil {
		return cerr
	}

	online := h.registry.OnlineUsers()
	users := make([]MemberInfo, 0, len(online))
	for _, u := range online {
		info := h.memberInfo(u)
		info.RoomID = u.RoomID
		users = append(users, info)
	}

	h.emit(s, EvtUsersOnline, OnlineUsersPayload{Users: users})

	return nil
}

// RoomCatalogue returns the catalogue for the HTTP surface.
func (h *Hub) RoomCatalogue() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.roomInfos()
}

// RoomStats describes one room in the process-level stats snapshot.
type RoomStats struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Members  int    `json:"members"`
	Messages int    `json:"messages"`
}

// StatsSnapshot is the process-level counter set served by /stats.
type StatsSnapshot struct {
	OnlineUsers  int         `json:"onlineUsers"`
	PrivateChats int         `json:"privateChats"`
	Rooms        []RoomStats `json:"rooms"`
}

// Stats gathers process-level counters for the HTTP surface.
func (h *Hub) Stats() StatsSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := StatsSnapshot{
		OnlineUsers:  h.registry.OnlineCount(),
		PrivateChats: h.private.Count(),
	}

	for _, room := range h.rooms.List() {
		snapshot.Rooms = append(snapshot.Rooms, RoomStats{
			ID:       room.ID,
			Name:     room.Name,
			Members:  room.MemberCount(),
			Messages: room.HistoryLen(),
		})
	}

	return snapshot
}

// --- helpers, all called with h.mu held ---

// resolve maps a session to its bound user, the fail-fast identity check at
// the top of every operation except Join.
func (h *Hub) resolve(s *Session) (*user.User, *errs.CustomError) {
	if s.userID == "" {
		return nil, errs.NewError(errs.ErrUserNotFound)
	}

	u, ok := h.registry.Get(s.userID)
	if !ok {
		return nil, errs.NewError(errs.ErrUserNotFound)
	}

	return u, nil
}

// validateContent trims the message body and enforces the emptiness and
// length bounds shared by room and private sends.
func validateContent(content string) (string, *errs.CustomError) {
	body := strings.TrimSpace(content)
	if body == "" {
		return "", errs.NewError(errs.ErrEmptyContent)
	}
	if len(body) > MaxContentBytes {
		return "", errs.NewError(errs.ErrMessageTooLong)
	}
	return body, nil
}

func (h *Hub) memberInfo(u *user.User) MemberInfo {
	return MemberInfo{
		ID:       u.ID,
		Username: u.Username,
		Online:   u.Online,
	}
}

func (h *Hub) memberInfos(room *Room) []MemberInfo {
	members := make([]MemberInfo, 0, room.MemberCount())
	for _, id := range room.MemberIDs() {
		if u, ok := h.registry.Get(id); ok {
			members = append(members, h.memberInfo(u))
		}
	}
	return members
}

func (h *Hub) roomInfo(room *Room) RoomInfo {
	return RoomInfo{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		MemberCount: room.MemberCount(),
	}
}

func (h *Hub) roomInfos() []RoomInfo {
	rooms := h.rooms.List()
	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, h.roomInfo(room))
	}
	return infos
}

func (h *Hub) roomSnapshot(room *Room) RoomSnapshot {
	return RoomSnapshot{
		Room:     h.roomInfo(room),
		Members:  h.memberInfos(room),
		Messages: room.Recent(SnapshotHistoryLimit),
	}
}

// emit serializes one event for a single session.
func (h *Hub) emit(s *Session, name EventName, payload any) {
	frame, err := encodeEvent(name, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(name)).Msg("Error marshaling event.")
		return
	}

	s.enqueue(frame)
}

// broadcastRoom serializes one event and fans it out to every member of the
// room, skipping exceptUserID when non-empty. Delivery is enqueue-only.
func (h *Hub) broadcastRoom(room *Room, exceptUserID string, name EventName, payload any) {
	frame, err := encodeEvent(name, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(name)).Msg("Error marshaling broadcast event.")
		return
	}

	for _, id := range room.MemberIDs() {
		if exceptUserID != "" && id == exceptUserID {
			continue
		}
		if target, online := h.sessions[id]; online {
			target.enqueue(frame)
		}
	}
}
