/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in the error events sent to clients over the socket protocol.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request or event parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1002
)

// 2xxx: Room and Content Errors
const (
	// ErrRoomNotFound indicates that the referenced room does not exist.
	ErrRoomNotFound = 2101

	// ErrMessageNotFound indicates that the referenced message is not in the
	// room's retained history. Messages evicted from the bounded history
	// window also report this code.
	ErrMessageNotFound = 2102

	// ErrEmptyContent indicates that a message body was empty after trimming.
	ErrEmptyContent = 2201

	// ErrMessageTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageTooLong = 2202
)

// 3xxx: Identity and Presence Errors
const (
	// ErrUsernameEmpty indicates that the declared username was empty after trimming.
	ErrUsernameEmpty = 3001

	// ErrUsernameTaken indicates that another currently-online user already
	// holds the same username (case-insensitive).
	ErrUsernameTaken = 3002

	// ErrUserNotFound indicates that the referenced user is unknown, or that
	// the connection has not completed a join yet.
	ErrUserNotFound = 3003

	// ErrAlreadyJoined indicates that the connection already has a bound identity.
	ErrAlreadyJoined = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
