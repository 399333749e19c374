package player

import (
	"slices"
	"time"
)

// PlayState represents a player's current playback condition.
type PlayState string

// Valid playback states.
const (
	PlayStateIdle      PlayState = "idle"
	PlayStatePlay      PlayState = "play"
	PlayStatePause     PlayState = "pause"
	PlayStateBuffering PlayState = "buffering"
)

// IsValid reports whether ps is a recognised playback state.
func (ps PlayState) IsValid() bool {
	switch ps {
	case PlayStateIdle, PlayStatePlay, PlayStatePause, PlayStateBuffering:
		return true
	}
	return false
}

// Role represents a player's self-reported position in group topology.
//
// Roles are a hint, not ground truth: role-change propagation across
// devices can lag, so the group resolver confirms them via the
// mutual-reference rule before acting on them.
type Role string

// Valid roles.
const (
	RoleSolo   Role = "solo"
	RoleMaster Role = "master"
	RoleSlave  Role = "slave"
)

// IsValid reports whether r is a recognised role.
func (r Role) IsValid() bool {
	switch r {
	case RoleSolo, RoleMaster, RoleSlave:
		return true
	}
	return false
}

// Track describes the currently loaded media, if any.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Source string `json:"source"`
}

// State is the last-known snapshot of one speaker.
//
// State is a value type: it is copied on every hand-off and never
// shared mutably. The polling coordinator that owns a player is the
// only writer; everyone else reads copies via the Registry.
//
// Invariant: Role == RoleSolo implies len(PeerIDs) == 0 (normalised by
// ApplyRefresh). The slave-has-reachable-master invariant is enforced
// by the group resolver, not here.
type State struct {
	// ID is the stable device identifier.
	ID string `json:"id"`

	// Name is the device's human-readable label.
	Name string `json:"name"`

	// Volume is the volume level in [0.0, 1.0].
	Volume float64 `json:"volume"`

	// Muted reports whether output is muted.
	Muted bool `json:"muted"`

	// PlayState is the current playback state.
	PlayState PlayState `json:"play_state"`

	// Role is the self-reported group role.
	Role Role `json:"role"`

	// PeerIDs is the sorted set of device IDs this player claims are
	// grouped with it. Empty when solo.
	PeerIDs []string `json:"peer_ids"`

	// Track is the currently loaded media.
	Track Track `json:"track"`

	// Firmware is the device firmware version string.
	Firmware string `json:"firmware"`

	// Stale marks a player whose refreshes have been failing long
	// enough that this snapshot may no longer reflect reality. Stale
	// players surface as solo with last-known state rather than
	// disappearing.
	Stale bool `json:"stale"`

	// LastRefreshAt is when the snapshot was last accepted.
	LastRefreshAt time.Time `json:"last_refresh_at"`

	// LastError describes the most recent refresh problem, empty when
	// the last refresh succeeded.
	LastError string `json:"last_error,omitempty"`
}

// Equal reports whether two snapshots carry the same observable state,
// ignoring freshness bookkeeping (LastRefreshAt, LastError, Stale).
//
// The polling coordinator uses this to suppress no-op notifications:
// re-applying an unchanged payload advances LastRefreshAt but is not a
// state change.
func (s State) Equal(o State) bool {
	return s.ID == o.ID &&
		s.Name == o.Name &&
		s.Volume == o.Volume &&
		s.Muted == o.Muted &&
		s.PlayState == o.PlayState &&
		s.Role == o.Role &&
		slices.Equal(s.PeerIDs, o.PeerIDs) &&
		s.Track == o.Track &&
		s.Firmware == o.Firmware
}

// TopologyEqual reports whether two snapshots agree on group topology
// (role and peer set). The group resolver re-runs only when topology
// changed.
func (s State) TopologyEqual(o State) bool {
	return s.Role == o.Role && slices.Equal(s.PeerIDs, o.PeerIDs)
}

// Grouped reports whether the player claims membership in a group.
func (s State) Grouped() bool {
	return s.Role != RoleSolo && len(s.PeerIDs) > 0
}

// Copy returns a deep copy of the snapshot.
// PeerIDs is the only reference-typed field.
func (s State) Copy() State {
	out := s
	out.PeerIDs = slices.Clone(s.PeerIDs)
	return out
}
