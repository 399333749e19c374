package poll

import (
	"context"
	"time"

	"github.com/mbeckert/wavelink/internal/player"
)

// Client is the device capability the coordinator consumes.
//
// Refresh fetches the current raw status of one device. It must honour
// ctx cancellation and deadline; a deadline overrun surfaces as
// context.DeadlineExceeded, a transport failure as an error wrapping
// player.ErrUnreachable.
type Client interface {
	Refresh(ctx context.Context, deviceID string) (player.RawStatus, error)
}

// StateEvent describes an accepted refresh whose snapshot differs by
// value from the previous one. No-op refreshes are suppressed, so
// Changed is true on every delivered event; it is carried explicitly
// so subscribers need not re-derive it.
type StateEvent struct {
	PlayerID string
	State    player.State
	Changed  bool
}

// ErrorEvent describes a failed refresh: network error, timeout, or
// malformed payload. Delivered separately from state changes.
type ErrorEvent struct {
	PlayerID string
	Err      error

	// ConsecutiveFailures is the failure streak including this one.
	ConsecutiveFailures int

	// Stale reports whether this failure crossed the stale threshold.
	Stale bool
}

// Subscriber receives coordinator notifications.
//
// Delivery is synchronous, in-process and best-effort: events are not
// persisted or replayed, and a slow subscriber delays the coordinator's
// loop. Implementations must return quickly.
type Subscriber interface {
	OnState(event StateEvent)
	OnError(event ErrorEvent)
}

// MetricsRecorder receives per-refresh telemetry. Satisfied by the
// influxdb client; a nil recorder disables metrics.
type MetricsRecorder interface {
	WriteRefreshMetric(playerID string, success bool, latency time.Duration)
}

// Logger defines the logging interface used by the coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
