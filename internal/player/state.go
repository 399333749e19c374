package player

import (
	"fmt"
	"slices"
	"time"
)

// RawStatus is a decoded device status payload.
//
// The payload schema is owned by the device client; ApplyRefresh
// validates only the fields it needs and ignores the rest.
type RawStatus map[string]any

// Required payload fields. A payload missing any of these, or carrying
// an invalid value for one, is malformed.
const (
	fieldVolume    = "volume"
	fieldPlayState = "play_state"
	fieldRole      = "role"
	fieldPeers     = "peers"
)

// ApplyRefresh derives the next snapshot from a raw status payload.
//
// The transition is pure: no I/O, no mutation of prev. On success the
// returned snapshot carries the payload's values with LastRefreshAt set
// to now, LastError cleared, and Stale cleared. Re-applying an
// unchanged payload yields a value-equal snapshot with only
// LastRefreshAt advanced.
//
// On a malformed payload the previous snapshot is retained — never
// silently zeroed — with LastError set; the error wraps
// ErrMalformedPayload.
//
// Normalisation applied to accepted payloads:
//   - PeerIDs are deduplicated, self-references removed, and sorted.
//   - A solo role forces an empty peer set.
//
// Parameters:
//   - prev: The current snapshot (zero State for a new player, with ID set)
//   - raw: Decoded status payload from the device client
//   - now: Timestamp recorded as LastRefreshAt on success
//
// Returns:
//   - State: The next snapshot (prev with LastError set on failure)
//   - error: nil, or a wrapped ErrMalformedPayload
func ApplyRefresh(prev State, raw RawStatus, now time.Time) (State, error) {
	next, err := parseStatus(prev.ID, raw)
	if err != nil {
		failed := prev.Copy()
		failed.LastError = err.Error()
		return failed, err
	}

	next.Name = stringField(raw, "name", prev.Name)
	next.Firmware = stringField(raw, "firmware", prev.Firmware)
	next.LastRefreshAt = now

	return next, nil
}

// parseStatus validates and extracts the required payload fields.
func parseStatus(id string, raw RawStatus) (State, error) {
	if raw == nil {
		return State{}, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	volume, ok := floatField(raw, fieldVolume)
	if !ok {
		return State{}, fmt.Errorf("%w: missing or invalid %q", ErrMalformedPayload, fieldVolume)
	}
	if volume < 0.0 || volume > 1.0 {
		return State{}, fmt.Errorf("%w: volume %v outside [0.0, 1.0]", ErrMalformedPayload, volume)
	}

	rawPlayState, ok := raw[fieldPlayState].(string)
	if !ok {
		return State{}, fmt.Errorf("%w: missing or invalid %q", ErrMalformedPayload, fieldPlayState)
	}
	playState := PlayState(rawPlayState)
	if !playState.IsValid() {
		return State{}, fmt.Errorf("%w: unknown play_state %q", ErrMalformedPayload, rawPlayState)
	}

	rawRole, ok := raw[fieldRole].(string)
	if !ok {
		return State{}, fmt.Errorf("%w: missing or invalid %q", ErrMalformedPayload, fieldRole)
	}
	role := Role(rawRole)
	if !role.IsValid() {
		return State{}, fmt.Errorf("%w: unknown role %q", ErrMalformedPayload, rawRole)
	}

	peers, err := peerField(raw, id)
	if err != nil {
		return State{}, err
	}
	if role == RoleSolo {
		peers = nil
	}

	muted, _ := raw["muted"].(bool)

	return State{
		ID:        id,
		Volume:    volume,
		Muted:     muted,
		PlayState: playState,
		Role:      role,
		PeerIDs:   peers,
		Track:     trackField(raw),
	}, nil
}

// floatField extracts a numeric field. JSON decoding yields float64,
// but integral values may arrive as int from hand-built payloads.
func floatField(raw RawStatus, key string) (float64, bool) {
	switch v := raw[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// stringField extracts an optional string field, falling back when absent.
func stringField(raw RawStatus, key, fallback string) string {
	if v, ok := raw[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// peerField extracts and normalises the peer ID list: deduplicated,
// self-references dropped, sorted for deterministic comparison.
func peerField(raw RawStatus, selfID string) ([]string, error) {
	v, present := raw[fieldPeers]
	if !present || v == nil {
		return nil, nil
	}

	list, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			return normalisePeers(strs, selfID), nil
		}
		return nil, fmt.Errorf("%w: %q is not a list", ErrMalformedPayload, fieldPeers)
	}

	peers := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string peer id %v", ErrMalformedPayload, item)
		}
		peers = append(peers, s)
	}

	return normalisePeers(peers, selfID), nil
}

// normalisePeers sorts, deduplicates, and strips self/empty entries.
func normalisePeers(peers []string, selfID string) []string {
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		if p == "" || p == selfID {
			continue
		}
		out = append(out, p)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// trackField extracts the optional track block.
func trackField(raw RawStatus) Track {
	block, ok := raw["track"].(map[string]any)
	if !ok {
		return Track{}
	}
	title, _ := block["title"].(string)
	artist, _ := block["artist"].(string)
	source, _ := block["source"].(string)
	return Track{Title: title, Artist: artist, Source: source}
}
