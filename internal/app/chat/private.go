/*
Package chat contains the core logic of the real-time relay.

This file defines the PrivateChat bucket and its store. Buckets are created
lazily on first contact between a pair of users and never destroyed.
*/
package chat

import (
	"sort"
	"strings"
)

// chatIDSeparator joins the two sorted participant ids. The character does
// not occur in UUID strings, so derived ids cannot collide.
const chatIDSeparator = ":"

// PrivateChat is a two-party conversation bucket with the same bounded
// history policy as a Room.
type PrivateChat struct {
	ID           string
	Participants [2]string

	history []*Message
}

// Append pushes a message onto the history, evicting the oldest entries once
// the retention cap is exceeded.
func (c *PrivateChat) Append(m *Message) {
	c.history = append(c.history, m)
	if len(c.history) > HistoryLimit {
		c.history = c.history[len(c.history)-HistoryLimit:]
	}
}

// Recent returns up to n of the most recent messages in send order.
func (c *PrivateChat) Recent(n int) []*Message {
	if n > len(c.history) {
		n = len(c.history)
	}
	out := make([]*Message, n)
	copy(out, c.history[len(c.history)-n:])
	return out
}

// HistoryLen returns the number of retained messages.
func (c *PrivateChat) HistoryLen() int {
	return len(c.history)
}

// ChatIDFor derives the canonical bucket id for a pair of users. The result
// is identical regardless of argument order.
func ChatIDFor(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, chatIDSeparator)
}

// PrivateChatStore lazily creates and retrieves pairwise conversations.
//
// PrivateChatStore is not internally synchronized; the hub serializes access.
type PrivateChatStore struct {
	chats map[string]*PrivateChat
}

// NewPrivateChatStore constructs an empty store.
func NewPrivateChatStore() *PrivateChatStore {
	return &PrivateChatStore{chats: make(map[string]*PrivateChat)}
}

// GetOrCreate resolves the bucket for the given pair, creating an empty one
// on first contact.
func (s *PrivateChatStore) GetOrCreate(userA, userB string) *PrivateChat {
	id := ChatIDFor(userA, userB)

	chat, ok := s.chats[id]
	if !ok {
		pair := [2]string{userA, userB}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		chat = &PrivateChat{ID: id, Participants: pair}
		s.chats[id] = chat
	}

	return chat
}

// Count returns the number of conversation buckets created so far.
func (s *PrivateChatStore) Count() int {
	return len(s.chats)
}
