package player

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func validPayload() RawStatus {
	return RawStatus{
		"name":       "Kitchen",
		"volume":     0.45,
		"muted":      false,
		"play_state": "play",
		"role":       "master",
		"peers":      []any{"bedroom", "bathroom"},
		"track": map[string]any{
			"title":  "Blue in Green",
			"artist": "Miles Davis",
			"source": "spotify",
		},
		"firmware": "4.2.8020",
	}
}

func TestApplyRefresh_Success(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := State{ID: "kitchen"}

	next, err := ApplyRefresh(prev, validPayload(), now)
	if err != nil {
		t.Fatalf("ApplyRefresh() error = %v", err)
	}

	if next.ID != "kitchen" {
		t.Errorf("ID = %q, want %q", next.ID, "kitchen")
	}
	if next.Name != "Kitchen" {
		t.Errorf("Name = %q, want %q", next.Name, "Kitchen")
	}
	if next.Volume != 0.45 {
		t.Errorf("Volume = %v, want 0.45", next.Volume)
	}
	if next.PlayState != PlayStatePlay {
		t.Errorf("PlayState = %q, want %q", next.PlayState, PlayStatePlay)
	}
	if next.Role != RoleMaster {
		t.Errorf("Role = %q, want %q", next.Role, RoleMaster)
	}
	if want := []string{"bathroom", "bedroom"}; !slices.Equal(next.PeerIDs, want) {
		t.Errorf("PeerIDs = %v, want %v", next.PeerIDs, want)
	}
	if next.Track.Title != "Blue in Green" {
		t.Errorf("Track.Title = %q, want %q", next.Track.Title, "Blue in Green")
	}
	if !next.LastRefreshAt.Equal(now) {
		t.Errorf("LastRefreshAt = %v, want %v", next.LastRefreshAt, now)
	}
	if next.LastError != "" {
		t.Errorf("LastError = %q, want empty", next.LastError)
	}
	if next.Stale {
		t.Error("expected Stale to be cleared on accepted refresh")
	}
}

func TestApplyRefresh_IdempotentOnUnchangedPayload(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(10 * time.Second)

	first, err := ApplyRefresh(State{ID: "kitchen"}, validPayload(), t1)
	if err != nil {
		t.Fatalf("first ApplyRefresh() error = %v", err)
	}

	second, err := ApplyRefresh(first, validPayload(), t2)
	if err != nil {
		t.Fatalf("second ApplyRefresh() error = %v", err)
	}

	if !first.Equal(second) {
		t.Errorf("expected value-equal snapshots, got %+v and %+v", first, second)
	}
	if !second.LastRefreshAt.Equal(t2) {
		t.Errorf("LastRefreshAt = %v, want %v", second.LastRefreshAt, t2)
	}
}

func TestApplyRefresh_MalformedRetainsPrevious(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prev, err := ApplyRefresh(State{ID: "kitchen"}, validPayload(), now)
	if err != nil {
		t.Fatalf("seeding snapshot: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(RawStatus)
		nilRaw  bool
		wantErr bool
	}{
		{
			name:   "nil payload",
			nilRaw: true,
		},
		{
			name:   "missing volume",
			mutate: func(raw RawStatus) { delete(raw, "volume") },
		},
		{
			name:   "volume wrong type",
			mutate: func(raw RawStatus) { raw["volume"] = "loud" },
		},
		{
			name:   "volume above range",
			mutate: func(raw RawStatus) { raw["volume"] = 1.5 },
		},
		{
			name:   "volume below range",
			mutate: func(raw RawStatus) { raw["volume"] = -0.1 },
		},
		{
			name:   "missing play_state",
			mutate: func(raw RawStatus) { delete(raw, "play_state") },
		},
		{
			name:   "unknown play_state",
			mutate: func(raw RawStatus) { raw["play_state"] = "rewinding" },
		},
		{
			name:   "missing role",
			mutate: func(raw RawStatus) { delete(raw, "role") },
		},
		{
			name:   "unknown role",
			mutate: func(raw RawStatus) { raw["role"] = "captain" },
		},
		{
			name:   "peers not a list",
			mutate: func(raw RawStatus) { raw["peers"] = "bedroom" },
		},
		{
			name:   "non-string peer id",
			mutate: func(raw RawStatus) { raw["peers"] = []any{42} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw RawStatus
			if !tt.nilRaw {
				raw = validPayload()
				tt.mutate(raw)
			}

			next, err := ApplyRefresh(prev, raw, now.Add(time.Minute))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("error = %v, want ErrMalformedPayload", err)
			}

			// Previous observable state retained, never zeroed.
			if !next.Equal(prev) {
				t.Errorf("snapshot changed on malformed payload:\nprev %+v\nnext %+v", prev, next)
			}
			if next.LastError == "" {
				t.Error("expected LastError to be set")
			}
			if !next.LastRefreshAt.Equal(prev.LastRefreshAt) {
				t.Error("LastRefreshAt must not advance on malformed payload")
			}
		})
	}
}

func TestApplyRefresh_SoloClearsPeers(t *testing.T) {
	raw := validPayload()
	raw["role"] = "solo"

	next, err := ApplyRefresh(State{ID: "kitchen"}, raw, time.Now())
	if err != nil {
		t.Fatalf("ApplyRefresh() error = %v", err)
	}
	if len(next.PeerIDs) != 0 {
		t.Errorf("PeerIDs = %v, want empty for solo role", next.PeerIDs)
	}
}

func TestApplyRefresh_PeerNormalisation(t *testing.T) {
	raw := validPayload()
	raw["peers"] = []any{"bedroom", "kitchen", "bedroom", "", "attic"}

	next, err := ApplyRefresh(State{ID: "kitchen"}, raw, time.Now())
	if err != nil {
		t.Fatalf("ApplyRefresh() error = %v", err)
	}

	// Deduplicated, self and empty dropped, sorted.
	want := []string{"attic", "bedroom"}
	if !slices.Equal(next.PeerIDs, want) {
		t.Errorf("PeerIDs = %v, want %v", next.PeerIDs, want)
	}
}

func TestState_Equal_IgnoresFreshness(t *testing.T) {
	a := State{
		ID:            "kitchen",
		Volume:        0.5,
		PlayState:     PlayStatePlay,
		Role:          RoleSolo,
		LastRefreshAt: time.Now(),
		LastError:     "",
	}
	b := a
	b.LastRefreshAt = a.LastRefreshAt.Add(time.Hour)
	b.LastError = "transient blip"
	b.Stale = true

	if !a.Equal(b) {
		t.Error("Equal() must ignore LastRefreshAt, LastError and Stale")
	}

	b.Volume = 0.6
	if a.Equal(b) {
		t.Error("Equal() must detect volume change")
	}
}

func TestState_TopologyEqual(t *testing.T) {
	a := State{ID: "x", Role: RoleMaster, PeerIDs: []string{"y"}}

	b := a.Copy()
	b.Volume = 0.9
	if !a.TopologyEqual(b) {
		t.Error("TopologyEqual() must ignore non-topology fields")
	}

	c := a.Copy()
	c.PeerIDs = []string{"y", "z"}
	if a.TopologyEqual(c) {
		t.Error("TopologyEqual() must detect peer set change")
	}

	d := a.Copy()
	d.Role = RoleSlave
	if a.TopologyEqual(d) {
		t.Error("TopologyEqual() must detect role change")
	}
}

func TestState_Copy_Isolated(t *testing.T) {
	orig := State{ID: "x", Role: RoleMaster, PeerIDs: []string{"a", "b"}}
	cp := orig.Copy()
	cp.PeerIDs[0] = "mutated"

	if orig.PeerIDs[0] != "a" {
		t.Error("Copy() must not share the PeerIDs backing array")
	}
}
