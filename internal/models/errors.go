package models

import "errors"

// Sentinel error kinds surfaced across the service boundary. Handlers map
// these onto HTTP status codes; everything else is an internal error.
var (
	// ErrInvalidInput covers negative prices, split ways < 2, empty
	// claimant names and the like. Rejected synchronously, never
	// partially applied.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the referenced bill or item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized means the request lacks a valid host token for a
	// host-only operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable means an external collaborator (e.g. the receipt
	// scanner) is not configured or not reachable. Callers retry with
	// backoff or abandon the operation; committed state is unaffected.
	ErrUnavailable = errors.New("unavailable")
)
