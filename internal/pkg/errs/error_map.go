/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize error events and HTTP responses.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every
// application error code. The key is the error code (int), and the value
// contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Content Errors
	ErrRoomNotFound:    {Code: ErrRoomNotFound, Message: "Chat room not found."},
	ErrMessageNotFound: {Code: ErrMessageNotFound, Message: "Message not found."},
	ErrEmptyContent:    {Code: ErrEmptyContent, Message: "Message cannot be empty."},
	ErrMessageTooLong:  {Code: ErrMessageTooLong, Message: "Message is too long."},

	// 3xxx: Identity and Presence Errors
	ErrUsernameEmpty: {Code: ErrUsernameEmpty, Message: "Username cannot be empty."},
	ErrUsernameTaken: {Code: ErrUsernameTaken, Message: "Username is already taken."},
	ErrUserNotFound:  {Code: ErrUserNotFound, Message: "User not found."},
	ErrAlreadyJoined: {Code: ErrAlreadyJoined, Message: "You have already joined."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
