// Package common defines shared sentinel errors used across the web
// installer's client and server layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository and storage errors.
	ErrorNotFound = errors.New("not found")

	// Container and descriptor codec errors.
	ErrorFormat = errors.New("malformed container")

	// Firmware protocol errors (bad portal envelope).
	ErrorProtocol = errors.New("protocol error")

	// Vendor store errors.
	ErrorAuth          = errors.New("authentication failed")
	ErrorRemoteService = errors.New("remote service error")

	// Retrieval token errors (invalid, expired or malformed token).
	ErrorInvalidToken = errors.New("invalid token")

	// Generic internal flow control.
	ErrorInternal = errors.New("internal error")
)
