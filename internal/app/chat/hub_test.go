package chat

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/pkg/errs"
)

// drainEvents empties the session's outbound queue and decodes every frame.
func drainEvents(t *testing.T, s *Session) []Envelope {
	t.Helper()

	var events []Envelope
	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				return events
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			events = append(events, env)
		default:
			return events
		}
	}
}

func filterEvents(events []Envelope, name EventName) []Envelope {
	var out []Envelope
	for _, env := range events {
		if env.Event == name {
			out = append(out, env)
		}
	}
	return out
}

func unmarshalAs[T any](t *testing.T, env Envelope) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(env.Payload, &v))
	return v
}

func mustJoin(t *testing.T, h *Hub, username string) *Session {
	t.Helper()

	s := NewSession()
	require.Nil(t, h.Join(s, username))
	return s
}

func TestJoinPlacesUserInDefaultRoom(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")

	events := drainEvents(t, alice)
	joined := filterEvents(events, EvtUserJoined)
	require.Len(t, joined, 1)

	payload := unmarshalAs[JoinedPayload](t, joined[0])
	assert.Equal(t, "alice", payload.User.Username)
	assert.True(t, payload.User.Online)
	assert.Equal(t, DefaultRoomID, payload.Snapshot.Room.ID)
	require.Len(t, payload.Snapshot.Members, 1)
	assert.Empty(t, payload.Snapshot.Messages)

	room, cerr := h.rooms.Get(DefaultRoomID)
	require.Nil(t, cerr)
	assert.Equal(t, []string{alice.UserID()}, room.MemberIDs())
}

func TestJoinRejectsDuplicateOnlineUsername(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")

	second := NewSession()
	cerr := h.Join(second, "ALICE")
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrUsernameTaken, cerr.Code)
	assert.Empty(t, second.UserID())

	// After the first disconnects, the name becomes available again.
	h.Disconnect(alice)

	third := NewSession()
	require.Nil(t, h.Join(third, "Alice"))
}

func TestJoinOnBoundSessionFails(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")

	cerr := h.Join(alice, "someone-else")
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrAlreadyJoined, cerr.Code)
}

func TestJoinSnapshotIncludesRoomHistory(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	require.Nil(t, h.SendRoom(alice, "", "hi"))

	bob := mustJoin(t, h, "bob")

	joined := filterEvents(drainEvents(t, bob), EvtUserJoined)
	require.Len(t, joined, 1)

	payload := unmarshalAs[JoinedPayload](t, joined[0])
	require.Len(t, payload.Snapshot.Messages, 1)
	assert.Equal(t, "hi", payload.Snapshot.Messages[0].Content)
	assert.Equal(t, "alice", payload.Snapshot.Messages[0].Sender.Username)
	assert.Len(t, payload.Snapshot.Members, 2)

	// Everyone already in the room hears about the newcomer.
	aliceEvents := drainEvents(t, alice)
	entered := filterEvents(aliceEvents, EvtUserEntered)
	require.Len(t, entered, 1)
	assert.Equal(t, "bob", unmarshalAs[PresencePayload](t, entered[0]).User.Username)
	require.Len(t, filterEvents(aliceEvents, EvtRoomUsers), 1)
}

func TestSendRoomBroadcastIncludesSender(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	drainEvents(t, alice)
	drainEvents(t, bob)

	require.Nil(t, h.SendRoom(alice, "", "  hello  "))

	for _, s := range []*Session{alice, bob} {
		received := filterEvents(drainEvents(t, s), EvtMessageReceived)
		require.Len(t, received, 1)

		msg := unmarshalAs[Message](t, received[0])
		assert.Equal(t, "hello", msg.Content, "content should be trimmed")
		assert.Equal(t, KindRoom, msg.Kind)
		assert.Equal(t, DefaultRoomID, msg.ContainerID)
		assert.Equal(t, alice.UserID(), msg.Sender.ID)
		assert.NotEmpty(t, msg.ID)
	}
}

func TestSendRoomValidation(t *testing.T) {
	h := NewHub()
	alice := mustJoin(t, h, "alice")

	tests := []struct {
		name     string
		roomID   string
		content  string
		wantCode int
	}{
		{
			name:     "empty content",
			content:  "   ",
			wantCode: errs.ErrEmptyContent,
		},
		{
			name:     "oversized content",
			content:  string(make([]byte, MaxContentBytes+1)),
			wantCode: errs.ErrMessageTooLong,
		},
		{
			name:     "unknown room",
			roomID:   "nope",
			content:  "hi",
			wantCode: errs.ErrRoomNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cerr := h.SendRoom(alice, tt.roomID, tt.content)
			require.NotNil(t, cerr)
			assert.Equal(t, tt.wantCode, cerr.Code)
		})
	}
}

func TestOperationsRequireResolvedIdentity(t *testing.T) {
	h := NewHub()
	anonymous := NewSession()

	ops := map[string]func() *errs.CustomError{
		"SendRoom":       func() *errs.CustomError { return h.SendRoom(anonymous, "", "hi") },
		"SendPrivate":    func() *errs.CustomError { return h.SendPrivate(anonymous, "someone", "hi") },
		"SwitchRoom":     func() *errs.CustomError { return h.SwitchRoom(anonymous, "tech") },
		"React":          func() *errs.CustomError { return h.React(anonymous, "", "m1", "👍") },
		"Typing":         func() *errs.CustomError { return h.Typing(anonymous, "", true) },
		"PrivateHistory": func() *errs.CustomError { return h.PrivateHistory(anonymous, "someone") },
		"ListRooms":      func() *errs.CustomError { return h.ListRooms(anonymous) },
		"OnlineUsers":    func() *errs.CustomError { return h.OnlineUsers(anonymous) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			cerr := op()
			require.NotNil(t, cerr)
			assert.Equal(t, errs.ErrUserNotFound, cerr.Code)
		})
	}
}

func TestSwitchRoomMovesMembership(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	drainEvents(t, alice)
	drainEvents(t, bob)

	require.Nil(t, h.SwitchRoom(alice, "tech"))

	// The switcher receives the new room snapshot.
	joined := filterEvents(drainEvents(t, alice), EvtRoomJoined)
	require.Len(t, joined, 1)
	snapshot := unmarshalAs[RoomSnapshot](t, joined[0])
	assert.Equal(t, "tech", snapshot.Room.ID)
	require.Len(t, snapshot.Members, 1)
	assert.Equal(t, "alice", snapshot.Members[0].Username)

	// The old room hears the departure and sees a member list without alice.
	bobEvents := drainEvents(t, bob)
	left := filterEvents(bobEvents, EvtUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "alice", unmarshalAs[PresencePayload](t, left[0]).User.Username)

	users := filterEvents(bobEvents, EvtRoomUsers)
	require.Len(t, users, 1)
	members := unmarshalAs[RoomUsersPayload](t, users[0])
	require.Len(t, members.Members, 1)
	assert.Equal(t, "bob", members.Members[0].Username)

	general, cerr := h.rooms.Get(DefaultRoomID)
	require.Nil(t, cerr)
	assert.NotContains(t, general.MemberIDs(), alice.UserID())

	tech, cerr := h.rooms.Get("tech")
	require.Nil(t, cerr)
	assert.Contains(t, tech.MemberIDs(), alice.UserID())
}

func TestSwitchRoomUnknownTargetLeavesStateUntouched(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	drainEvents(t, alice)

	cerr := h.SwitchRoom(alice, "nope")
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrRoomNotFound, cerr.Code)

	general, gerr := h.rooms.Get(DefaultRoomID)
	require.Nil(t, gerr)
	assert.Contains(t, general.MemberIDs(), alice.UserID())
	assert.Empty(t, drainEvents(t, alice), "a failed switch must not emit presence events")
}

func TestSwitchToCurrentRoomIsRedundantLeaveAndRejoin(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	drainEvents(t, alice)
	drainEvents(t, bob)

	require.Nil(t, h.SwitchRoom(alice, DefaultRoomID))

	bobEvents := drainEvents(t, bob)
	assert.Len(t, filterEvents(bobEvents, EvtUserLeft), 1)
	assert.Len(t, filterEvents(bobEvents, EvtUserEntered), 1)
}

func TestDisconnectBroadcastsAndRetainsIdentity(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	aliceID := alice.UserID()
	drainEvents(t, bob)

	h.Disconnect(alice)

	bobEvents := drainEvents(t, bob)
	left := filterEvents(bobEvents, EvtUserLeft)
	require.Len(t, left, 1)
	payload := unmarshalAs[PresencePayload](t, left[0])
	assert.Equal(t, aliceID, payload.User.ID)
	assert.False(t, payload.User.Online)

	u, ok := h.registry.Get(aliceID)
	require.True(t, ok, "identity record must survive disconnect")
	assert.False(t, u.Online)

	general, cerr := h.rooms.Get(DefaultRoomID)
	require.Nil(t, cerr)
	assert.NotContains(t, general.MemberIDs(), aliceID)

	// Disconnecting an unbound session is a quiet no-op.
	h.Disconnect(NewSession())
}

func TestReactionToggleRoundTrip(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	drainEvents(t, alice)
	drainEvents(t, bob)

	require.Nil(t, h.SendRoom(bob, "", "react to me"))
	received := filterEvents(drainEvents(t, alice), EvtMessageReceived)
	require.Len(t, received, 1)
	msgID := unmarshalAs[Message](t, received[0]).ID
	drainEvents(t, bob)

	require.Nil(t, h.React(alice, "", msgID, "👍"))

	// Every member, the reactor included, sees the full updated map.
	for _, s := range []*Session{alice, bob} {
		updates := filterEvents(drainEvents(t, s), EvtReactionUpdated)
		require.Len(t, updates, 1)

		update := unmarshalAs[ReactionUpdatedPayload](t, updates[0])
		assert.Equal(t, "added", update.Action)
		assert.Equal(t, msgID, update.MessageID)
		require.Len(t, update.Reactions["👍"], 1)
		assert.Equal(t, alice.UserID(), update.Reactions["👍"][0].UserID)
	}

	// Reacting again restores the pre-reaction state.
	require.Nil(t, h.React(alice, "", msgID, "👍"))

	updates := filterEvents(drainEvents(t, alice), EvtReactionUpdated)
	require.Len(t, updates, 1)
	update := unmarshalAs[ReactionUpdatedPayload](t, updates[0])
	assert.Equal(t, "removed", update.Action)
	assert.Empty(t, update.Reactions)
}

func TestReactUnknownMessage(t *testing.T) {
	h := NewHub()
	alice := mustJoin(t, h, "alice")

	cerr := h.React(alice, "", "no-such-message", "👍")
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrMessageNotFound, cerr.Code)
}

func TestPrivateMessageDelivery(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	drainEvents(t, alice)
	drainEvents(t, bob)

	require.Nil(t, h.SendPrivate(alice, bob.UserID(), "psst"))

	// Sender always gets the echo.
	aliceMsgs := filterEvents(drainEvents(t, alice), EvtPrivateReceived)
	require.Len(t, aliceMsgs, 1)
	echo := unmarshalAs[Message](t, aliceMsgs[0])
	assert.Equal(t, "psst", echo.Content)
	assert.Equal(t, KindPrivate, echo.Kind)
	assert.Equal(t, ChatIDFor(alice.UserID(), bob.UserID()), echo.ContainerID)

	// The online recipient gets the message plus a distinct notification.
	bobEvents := drainEvents(t, bob)
	require.Len(t, filterEvents(bobEvents, EvtPrivateReceived), 1)
	notes := filterEvents(bobEvents, EvtNotification)
	require.Len(t, notes, 1)
	note := unmarshalAs[NotificationPayload](t, notes[0])
	assert.Equal(t, alice.UserID(), note.From.ID)
	assert.Equal(t, echo.ContainerID, note.ChatID)
}

func TestPrivateMessageToOfflineRecipient(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	bobID := bob.UserID()
	h.Disconnect(bob)
	drainEvents(t, alice)

	require.Nil(t, h.SendPrivate(alice, bobID, "hello?"))
	require.Len(t, filterEvents(drainEvents(t, alice), EvtPrivateReceived), 1)

	// Rejoining with the same name resumes the retained identity.
	bobAgain := mustJoin(t, h, "bob")
	require.Equal(t, bobID, bobAgain.UserID())

	rejoinEvents := drainEvents(t, bobAgain)
	assert.Empty(t, filterEvents(rejoinEvents, EvtNotification),
		"no notification may ever be sent for a message stored while offline")
	assert.Empty(t, filterEvents(rejoinEvents, EvtPrivateReceived))

	// The stored message is retrievable through an explicit history request.
	require.Nil(t, h.PrivateHistory(bobAgain, alice.UserID()))

	history := filterEvents(drainEvents(t, bobAgain), EvtPrivateHistory)
	require.Len(t, history, 1)
	payload := unmarshalAs[PrivateHistoryPayload](t, history[0])
	require.Len(t, payload.Messages, 1)
	assert.Equal(t, "hello?", payload.Messages[0].Content)
}

func TestPrivateHistoryCreatesEmptyBucket(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	drainEvents(t, alice)

	require.Nil(t, h.PrivateHistory(alice, bob.UserID()))

	history := filterEvents(drainEvents(t, alice), EvtPrivateHistory)
	require.Len(t, history, 1)
	payload := unmarshalAs[PrivateHistoryPayload](t, history[0])
	assert.Empty(t, payload.Messages)
	assert.Equal(t, ChatIDFor(alice.UserID(), bob.UserID()), payload.ChatID)

	cerr := h.PrivateHistory(alice, "unknown-user")
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrUserNotFound, cerr.Code)
}

func TestTypingRelayExcludesSender(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	bob := mustJoin(t, h, "bob")
	drainEvents(t, alice)
	drainEvents(t, bob)

	require.Nil(t, h.Typing(alice, "", true))
	require.Nil(t, h.Typing(alice, "", false))

	assert.Empty(t, drainEvents(t, alice), "the typist must not hear their own indicator")

	bobEvents := drainEvents(t, bob)
	starts := filterEvents(bobEvents, EvtTypingStart)
	require.Len(t, starts, 1)
	start := unmarshalAs[TypingEventPayload](t, starts[0])
	assert.Equal(t, "alice", start.Username)
	assert.Equal(t, DefaultRoomID, start.RoomID)
	require.Len(t, filterEvents(bobEvents, EvtTypingStop), 1)
}

func TestListingsAndStats(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	drainEvents(t, alice)

	require.Nil(t, h.ListRooms(alice))
	lists := filterEvents(drainEvents(t, alice), EvtRoomsList)
	require.Len(t, lists, 1)
	rooms := unmarshalAs[RoomsListPayload](t, lists[0]).Rooms
	require.Len(t, rooms, 3)
	assert.Equal(t, DefaultRoomID, rooms[0].ID)
	assert.Equal(t, 1, rooms[0].MemberCount)

	require.Nil(t, h.OnlineUsers(alice))
	online := filterEvents(drainEvents(t, alice), EvtUsersOnline)
	require.Len(t, online, 1)
	users := unmarshalAs[OnlineUsersPayload](t, online[0]).Users
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, DefaultRoomID, users[0].RoomID)

	stats := h.Stats()
	assert.Equal(t, 1, stats.OnlineUsers)
	require.Len(t, stats.Rooms, 3)
	assert.Equal(t, 1, stats.Rooms[0].Members)
}

func TestBoundedHistoryWindow(t *testing.T) {
	h := NewHub()

	alice := mustJoin(t, h, "alice")
	drainEvents(t, alice)

	for i := 0; i < HistoryLimit+5; i++ {
		require.Nil(t, h.SendRoom(alice, "", fmt.Sprintf("msg %d", i)))
		drainEvents(t, alice)
	}

	stats := h.Stats()
	assert.Equal(t, HistoryLimit, stats.Rooms[0].Messages)

	// A newcomer's snapshot holds only the most recent window.
	bob := mustJoin(t, h, "bob")
	joined := filterEvents(drainEvents(t, bob), EvtUserJoined)
	require.Len(t, joined, 1)

	snapshot := unmarshalAs[JoinedPayload](t, joined[0]).Snapshot
	require.Len(t, snapshot.Messages, SnapshotHistoryLimit)
	assert.Equal(t, fmt.Sprintf("msg %d", HistoryLimit+4),
		snapshot.Messages[len(snapshot.Messages)-1].Content)
}
