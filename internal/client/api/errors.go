package api

import "errors"

var (
	// ErrUnavailable marks network-level failures: the server is offline,
	// unreachable, or timed out. Sync treats these as transient.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized is a 401-class response that survived the one
	// refresh-and-retry attempt; the user must log in again.
	ErrUnauthorized = errors.New("unauthorized")
)
