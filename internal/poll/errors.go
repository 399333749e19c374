package poll

import "errors"

// Domain errors for the poll package.
var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("poll: coordinator already started")

	// ErrStopped is returned to refresh waiters when the coordinator
	// stops before their result is available.
	ErrStopped = errors.New("poll: coordinator stopped")
)
