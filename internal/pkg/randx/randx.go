/*
Package randx provides generation of unique identifiers used by the relay.

User and message identifiers are standard UUID v4 strings. The separator used
when deriving private chat identifiers is deliberately absent from the UUID
alphabet, so derived keys stay unambiguous.
*/
package randx

import (
	"github.com/google/uuid"
)

// UserID generates a unique identifier for a newly joined user.
func UserID() string {
	return uuid.New().String()
}

// MessageID generates a unique identifier for a chat message.
func MessageID() string {
	return uuid.New().String()
}

// SessionID generates a unique identifier for a live connection, used only
// for log correlation before an identity is bound.
func SessionID() string {
	return uuid.New().String()
}
