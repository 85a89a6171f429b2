package common

// HTTP header names shared by the client and the server.
const (
	// AuthorizationHeaderName carries the bearer access token.
	AuthorizationHeaderName = "Authorization"

	// DeviceIDHeaderName identifies the sending device on message calls.
	DeviceIDHeaderName = "X-Device-Id"
)
