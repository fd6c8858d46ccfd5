/*
Package user contains core data structures and logic related to user identity and presence.

It defines the User record for one chat participant and the Registry that owns
every identity created during the process lifetime. Identities are
unauthenticated: the username is self-declared by the client and only has to
be unique among currently-online users.
*/
package user

import (
	"strings"
	"time"

	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/randx"
)

// User represents the identity of one chat participant.
// Fields use JSON tags for serialization in socket events.
type User struct {

	// ID is the unique server-generated identifier for the user.
	ID string `json:"id"`

	// Username is the display name declared by the client on join.
	Username string `json:"username"`

	// RoomID is the room the user currently belongs to, empty while offline.
	RoomID string `json:"roomId,omitempty"`

	// Online reports whether a live connection is bound to this identity.
	Online bool `json:"online"`

	// JoinedAt is the time the identity was created.
	JoinedAt time.Time `json:"joinedAt"`
}

// Registry owns every User record created during the process lifetime.
// Records are never deleted: a disconnected user keeps its entry so that
// historical message senders and private chat participants stay resolvable.
//
// Registry is not internally synchronized. The hub serializes every call
// under its own lock.
type Registry struct {
	// users holds every identity ever created, keyed by id.
	users map[string]*User

	// order preserves creation order of user ids for stable enumeration.
	order []string

	// online indexes lowercase usernames of currently-online users to their id.
	online map[string]string

	// names indexes lowercase usernames to the id of their latest holder,
	// online or not, so a returning user resumes its retained identity.
	names map[string]string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[string]*User),
		online: make(map[string]string),
		names:  make(map[string]string),
	}
}

// Register validates the declared username and returns an online User for
// it. The name must be non-empty after trimming and no currently-online user
// may hold the same name case-insensitively. A name whose previous holder
// went offline rebinds that retained identity, so a returning user keeps its
// id and its private conversations; an unseen name creates a fresh record.
func (r *Registry) Register(username string) (*User, *errs.CustomError) {
	name := strings.TrimSpace(username)
	if name == "" {
		return nil, errs.NewError(errs.ErrUsernameEmpty)
	}

	key := strings.ToLower(name)
	if _, taken := r.online[key]; taken {
		return nil, errs.NewError(errs.ErrUsernameTaken)
	}

	if id, seen := r.names[key]; seen {
		u := r.users[id]
		u.Username = name
		u.Online = true
		r.online[key] = u.ID
		return u, nil
	}

	u := &User{
		ID:       randx.UserID(),
		Username: name,
		Online:   true,
		JoinedAt: time.Now(),
	}

	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
	r.online[key] = u.ID
	r.names[key] = u.ID

	return u, nil
}

// Get returns the user with the given id, known or not.
func (r *Registry) Get(id string) (*User, bool) {
	u, ok := r.users[id]
	return u, ok
}

// SetOffline clears the online state of the given user and frees its username
// for reuse. The record itself is retained.
func (r *Registry) SetOffline(id string) {
	u, ok := r.users[id]
	if !ok {
		return
	}

	delete(r.online, strings.ToLower(u.Username))
	u.Online = false
	u.RoomID = ""
}

// OnlineUsers enumerates all currently-online users in creation order.
func (r *Registry) OnlineUsers() []*User {
	users := make([]*User, 0, len(r.online))
	for _, id := range r.order {
		if u := r.users[id]; u.Online {
			users = append(users, u)
		}
	}
	return users
}

// OnlineCount returns the number of currently-online users.
func (r *Registry) OnlineCount() int {
	return len(r.online)
}
