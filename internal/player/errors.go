package player

import "errors"

// Domain errors for the player package and its consumers.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, player.ErrRejected) {
//	    // device refused the command; do not retry
//	}
var (
	// ErrNotFound is returned when a player ID does not exist in the registry.
	ErrNotFound = errors.New("player: not found")

	// ErrMalformedPayload is returned by ApplyRefresh when a status
	// payload is missing required fields or carries invalid values.
	// The previous snapshot is retained.
	ErrMalformedPayload = errors.New("player: malformed payload")

	// ErrRejected is returned when a device actively refused a command,
	// e.g. an out-of-range volume. Never retried automatically.
	ErrRejected = errors.New("player: command rejected")

	// ErrUnreachable is returned when a device could not be reached over
	// the network. Transient; recovered via polling backoff.
	ErrUnreachable = errors.New("player: device unreachable")

	// ErrNoSnapshot is returned when no stored snapshot exists for a player.
	ErrNoSnapshot = errors.New("player: no stored snapshot")
)
