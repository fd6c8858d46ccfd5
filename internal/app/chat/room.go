/*
Package chat contains the core logic of the real-time relay.

This file defines the Room and the RoomStore holding the fixed catalogue.
Rooms own their membership set and a bounded message history; both are
mutated only under the hub lock.
*/
package chat

import "chatrelay/internal/pkg/errs"

const (
	// HistoryLimit is the per-container retention cap: only the most recent
	// entries are kept, older ones are evicted.
	HistoryLimit = 100

	// SnapshotHistoryLimit is the number of recent messages handed to a
	// connection entering a room or requesting private history.
	SnapshotHistoryLimit = 50

	// DefaultRoomID is the room users land in on join.
	DefaultRoomID = "general"
)

// Room is a named broadcast channel with bounded history. Membership reflects
// currently-online users only.
type Room struct {
	ID          string
	Name        string
	Description string

	// members holds the ids of joined users in insertion order. The order
	// carries no contract beyond display.
	members []string

	// history holds at most HistoryLimit messages, oldest first.
	history []*Message
}

// AddMember appends the user id to the membership set. Adding an existing
// member is a no-op.
func (r *Room) AddMember(userID string) {
	for _, id := range r.members {
		if id == userID {
			return
		}
	}
	r.members = append(r.members, userID)
}

// RemoveMember drops the user id from the membership set, a no-op when absent.
func (r *Room) RemoveMember(userID string) {
	for idx, id := range r.members {
		if id == userID {
			r.members = append(r.members[:idx], r.members[idx+1:]...)
			return
		}
	}
}

// MemberIDs returns the current member ids in insertion order.
func (r *Room) MemberIDs() []string {
	ids := make([]string, len(r.members))
	copy(ids, r.members)
	return ids
}

// MemberCount returns the number of currently joined users.
func (r *Room) MemberCount() int {
	return len(r.members)
}

// Append pushes a message onto the history, evicting the oldest entries once
// the retention cap is exceeded.
func (r *Room) Append(m *Message) {
	r.history = append(r.history, m)
	if len(r.history) > HistoryLimit {
		r.history = r.history[len(r.history)-HistoryLimit:]
	}
}

// Recent returns up to n of the most recent messages in send order.
func (r *Room) Recent(n int) []*Message {
	if n > len(r.history) {
		n = len(r.history)
	}
	out := make([]*Message, n)
	copy(out, r.history[len(r.history)-n:])
	return out
}

// HistoryLen returns the number of retained messages.
func (r *Room) HistoryLen() int {
	return len(r.history)
}

// FindMessage looks up a message by id within the retained history window.
// Messages that scrolled out of the window are gone for good.
func (r *Room) FindMessage(messageID string) (*Message, bool) {
	for _, m := range r.history {
		if m.ID == messageID {
			return m, true
		}
	}
	return nil, false
}

// RoomStore owns the fixed room catalogue created at process start. Rooms are
// never created or destroyed at runtime, though the store's shape permits it.
//
// RoomStore is not internally synchronized; the hub serializes access.
type RoomStore struct {
	rooms map[string]*Room
	order []string
}

// NewRoomStore seeds the catalogue with the fixed set of public rooms.
func NewRoomStore() *RoomStore {
	s := &RoomStore{rooms: make(map[string]*Room)}

	s.add(&Room{ID: DefaultRoomID, Name: "General", Description: "Open discussion for everyone"})
	s.add(&Room{ID: "tech", Name: "Tech", Description: "Technology and programming talk"})
	s.add(&Room{ID: "random", Name: "Random", Description: "Anything goes"})

	return s
}

func (s *RoomStore) add(r *Room) {
	s.rooms[r.ID] = r
	s.order = append(s.order, r.ID)
}

// Get retrieves a room by id.
func (s *RoomStore) Get(roomID string) (*Room, *errs.CustomError) {
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}
	return room, nil
}

// List returns the catalogue in its fixed creation order.
func (s *RoomStore) List() []*Room {
	rooms := make([]*Room, 0, len(s.order))
	for _, id := range s.order {
		rooms = append(rooms, s.rooms[id])
	}
	return rooms
}
