package mqtt

import "fmt"

// Topic prefixes for the Wavelink MQTT hierarchy.
//
// Player and group topics use the scheme wavelink/{category}/{id}/{facet}.
// State topics are retained so late subscribers see current state; command
// and result topics are not.
const (
	// TopicPrefix is the base for all Wavelink topics.
	TopicPrefix = "wavelink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "wavelink/system"
)

// Topics provides builders for Wavelink MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.PlayerState("kitchen")
//	// Returns: "wavelink/player/kitchen/state"
type Topics struct{}

// PlayerState returns the retained topic carrying a player's canonical state.
//
// Example: wavelink/player/kitchen/state
func (Topics) PlayerState(playerID string) string {
	return fmt.Sprintf("%s/player/%s/state", TopicPrefix, playerID)
}

// PlayerError returns the topic for per-player refresh errors.
//
// Example: wavelink/player/kitchen/error
func (Topics) PlayerError(playerID string) string {
	return fmt.Sprintf("%s/player/%s/error", TopicPrefix, playerID)
}

// GroupMembers returns the retained topic listing a group's membership,
// keyed by the master player.
//
// Example: wavelink/group/living-room/members
func (Topics) GroupMembers(masterID string) string {
	return fmt.Sprintf("%s/group/%s/members", TopicPrefix, masterID)
}

// GroupCommand returns the topic on which group-wide commands arrive.
//
// Example: wavelink/command/group/living-room
func (Topics) GroupCommand(masterID string) string {
	return fmt.Sprintf("%s/command/group/%s", TopicPrefix, masterID)
}

// DispatchResult returns the topic for per-dispatch aggregate results.
//
// Example: wavelink/result/8f14e45f-...
func (Topics) DispatchResult(dispatchID string) string {
	return fmt.Sprintf("%s/result/%s", TopicPrefix, dispatchID)
}

// SystemStatus returns the system status topic used for the LWT and
// online/offline announcements.
//
// Example: wavelink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllGroupCommands returns a pattern matching group commands for any master.
//
// Pattern: wavelink/command/group/+
func (Topics) AllGroupCommands() string {
	return fmt.Sprintf("%s/command/group/+", TopicPrefix)
}

// AllPlayerStates returns a pattern matching all player state topics.
//
// Pattern: wavelink/player/+/state
func (Topics) AllPlayerStates() string {
	return fmt.Sprintf("%s/player/+/state", TopicPrefix)
}

// AllTopics returns a pattern matching all Wavelink topics.
// Use with caution, this receives all traffic.
//
// Pattern: wavelink/#
func (Topics) AllTopics() string {
	return "wavelink/#"
}
