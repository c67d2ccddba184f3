package session

import "errors"

var (
	// ErrNoRefreshToken is returned by RefreshAuth when no refresh token is
	// available from the argument, memory or durable storage.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrIncompleteAuthResponse is returned when the backend reports success
	// but omits the access token or the user.
	ErrIncompleteAuthResponse = errors.New("authentication response is missing token or user")

	// ErrIncompleteAccount is returned when an account response carries no user id
	ErrIncompleteAccount = errors.New("account response is missing the user id")
)
