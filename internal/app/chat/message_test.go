package chat

import (
	"testing"

	"chatrelay/internal/app/user"
)

func TestToggleReaction(t *testing.T) {
	alice := &user.User{ID: "u-alice", Username: "alice"}
	bob := &user.User{ID: "u-bob", Username: "bob"}

	msg := NewRoomMessage(DefaultRoomID, bob, "hello")

	if added := msg.ToggleReaction(alice, "👍"); !added {
		t.Fatal("first toggle should add the reaction")
	}
	entries := msg.Reactions["👍"]
	if len(entries) != 1 {
		t.Fatalf("reactions[👍] has %d entries, want 1", len(entries))
	}
	if entries[0].UserID != alice.ID || entries[0].Username != "alice" {
		t.Error("reaction entry should snapshot the reacting user")
	}

	if added := msg.ToggleReaction(bob, "👍"); !added {
		t.Fatal("toggle by another user should add a second entry")
	}
	if len(msg.Reactions["👍"]) != 2 {
		t.Fatalf("reactions[👍] has %d entries, want 2", len(msg.Reactions["👍"]))
	}

	// Same user toggling again removes only their own entry.
	if added := msg.ToggleReaction(alice, "👍"); added {
		t.Fatal("second toggle by the same user should remove the reaction")
	}
	entries = msg.Reactions["👍"]
	if len(entries) != 1 || entries[0].UserID != bob.ID {
		t.Error("toggle should remove exactly the caller's entry")
	}
}

func TestToggleReactionRestoresPriorState(t *testing.T) {
	alice := &user.User{ID: "u-alice", Username: "alice"}
	msg := NewRoomMessage(DefaultRoomID, alice, "hello")

	msg.ToggleReaction(alice, "👍")
	msg.ToggleReaction(alice, "👍")

	if _, exists := msg.Reactions["👍"]; exists {
		t.Error("emptied reaction symbol should be removed entirely")
	}
	if msg.Reactions != nil {
		t.Error("reactions map should return to its pre-reaction state")
	}
}

func TestToggleReactionNoDuplicateEntries(t *testing.T) {
	alice := &user.User{ID: "u-alice", Username: "alice"}
	msg := NewRoomMessage(DefaultRoomID, alice, "hello")

	msg.ToggleReaction(alice, "🎉")
	msg.ToggleReaction(alice, "🎉")
	msg.ToggleReaction(alice, "🎉")

	entries := msg.Reactions["🎉"]
	if len(entries) != 1 {
		t.Fatalf("reactions[🎉] has %d entries, want 1", len(entries))
	}
}
