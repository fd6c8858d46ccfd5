/*
Package chat contains the core logic of the real-time relay.

This file defines the Message structure shared by rooms and private chats,
together with its reaction map and toggle semantics.
*/
package chat

import (
	"time"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/randx"
)

// MessageKind distinguishes room broadcasts from private messages.
type MessageKind string

const (
	KindRoom    MessageKind = "room"
	KindPrivate MessageKind = "private"
)

// MaxContentBytes is the maximum allowed size of a message body.
const MaxContentBytes = 5000

// Sender is the snapshot of the message author taken at send time. The
// username is frozen here even if the identity later goes offline.
type Sender struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ReactionEntry records one user's reaction to a message.
type ReactionEntry struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}

// Message is one chat utterance. Messages are immutable after creation except
// for the Reactions map, and are only ever removed by bounded-history
// eviction in their owning container.
type Message struct {
	ID          string      `json:"id"`
	Kind        MessageKind `json:"kind"`
	ContainerID string      `json:"containerId"`
	Sender      Sender      `json:"sender"`
	RecipientID string      `json:"recipientId,omitempty"`
	Content     string      `json:"content"`
	Timestamp   int64       `json:"timestamp"`

	// Reactions maps a reaction symbol to the ordered entries of users who
	// applied it. A symbol with no remaining entries is removed entirely.
	Reactions map[string][]ReactionEntry `json:"reactions,omitempty"`
}

// NewRoomMessage builds a message destined for a room's history.
func NewRoomMessage(roomID string, from *user.User, content string) *Message {
	return &Message{
		ID:          randx.MessageID(),
		Kind:        KindRoom,
		ContainerID: roomID,
		Sender:      Sender{ID: from.ID, Username: from.Username},
		Content:     content,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// NewPrivateMessage builds a message destined for a pairwise chat bucket.
func NewPrivateMessage(chatID string, from *user.User, recipientID, content string) *Message {
	return &Message{
		ID:          randx.MessageID(),
		Kind:        KindPrivate,
		ContainerID: chatID,
		Sender:      Sender{ID: from.ID, Username: from.Username},
		RecipientID: recipientID,
		Content:     content,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// ToggleReaction applies toggle semantics for one user and symbol: an
// existing entry for the user is removed (deleting the symbol key when its
// list empties), otherwise a new entry is appended. It reports whether the
// reaction was added.
func (m *Message) ToggleReaction(u *user.User, symbol string) (added bool) {
	entries := m.Reactions[symbol]

	for idx, entry := range entries {
		if entry.UserID == u.ID {
			entries = append(entries[:idx], entries[idx+1:]...)
			if len(entries) == 0 {
				delete(m.Reactions, symbol)
				if len(m.Reactions) == 0 {
					m.Reactions = nil
				}
			} else {
				m.Reactions[symbol] = entries
			}
			return false
		}
	}

	if m.Reactions == nil {
		m.Reactions = make(map[string][]ReactionEntry)
	}

	m.Reactions[symbol] = append(entries, ReactionEntry{
		UserID:    u.ID,
		Username:  u.Username,
		Timestamp: time.Now().UnixMilli(),
	})

	return true
}
