package dispatch

import (
	"context"
	"fmt"
)

// Client is the device capability the dispatcher consumes.
//
// Send issues one command to one device. It must honour ctx
// cancellation and deadline. Error mapping: a device's active refusal
// wraps player.ErrRejected; transport failures wrap
// player.ErrUnreachable; a deadline overrun surfaces as
// context.DeadlineExceeded.
type Client interface {
	Send(ctx context.Context, deviceID string, cmd Command) error
}

// Command is one group-scoped instruction.
type Command struct {
	// Action names the operation, e.g. "set_volume", "pause".
	Action string `json:"action"`

	// Params carries action-specific arguments.
	Params map[string]any `json:"params,omitempty"`
}

// Validate checks that the command is well-formed enough to send.
func (c Command) Validate() error {
	if c.Action == "" {
		return fmt.Errorf("command action is required")
	}
	return nil
}

// String returns the action name for logging.
func (c Command) String() string {
	return c.Action
}

// SetVolume builds a volume command. Level is in [0.0, 1.0]; range
// enforcement is the device's job and an out-of-range value comes back
// as Rejected.
func SetVolume(level float64) Command {
	return Command{
		Action: "set_volume",
		Params: map[string]any{"volume": level},
	}
}

// SetMute builds a mute/unmute command.
func SetMute(muted bool) Command {
	return Command{
		Action: "set_mute",
		Params: map[string]any{"muted": muted},
	}
}

// Play builds a playback-resume command.
func Play() Command {
	return Command{Action: "play"}
}

// Pause builds a playback-pause command.
func Pause() Command {
	return Command{Action: "pause"}
}

// Stop builds a playback-stop command.
func Stop() Command {
	return Command{Action: "stop"}
}
