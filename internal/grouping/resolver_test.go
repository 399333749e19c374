package grouping

import (
	"slices"
	"testing"

	"github.com/mbeckert/wavelink/internal/player"
	"github.com/mbeckert/wavelink/internal/poll"
)

func ps(id string, role player.Role, peers ...string) player.State {
	return player.State{
		ID:        id,
		PlayState: player.PlayStatePlay,
		Role:      role,
		PeerIDs:   peers,
	}
}

func registryWith(t *testing.T, states ...player.State) *player.Registry {
	t.Helper()
	r := player.NewRegistry()
	for _, s := range states {
		r.Upsert(s)
	}
	return r
}

func TestResolver_MutualReferenceAccepted(t *testing.T) {
	reg := registryWith(t,
		ps("master", player.RoleMaster, "slave"),
		ps("slave", player.RoleSlave, "master"),
	)
	r := NewResolver(reg)

	groups := r.Resolve()
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].MasterID != "master" {
		t.Errorf("MasterID = %q, want %q", groups[0].MasterID, "master")
	}
	if want := []string{"slave"}; !slices.Equal(groups[0].SlaveIDs, want) {
		t.Errorf("SlaveIDs = %v, want %v", groups[0].SlaveIDs, want)
	}
}

func TestResolver_OneSidedClaimRejected(t *testing.T) {
	// Master claims the slave, but the slave does not claim the master
	// back: stale gossip, both end up solo.
	reg := registryWith(t,
		ps("master", player.RoleMaster, "slave"),
		ps("slave", player.RoleSlave),
	)
	r := NewResolver(reg)

	if groups := r.Resolve(); len(groups) != 0 {
		t.Errorf("got %d groups, want 0 (one-sided claim)", len(groups))
	}
	if _, ok := r.GroupFor("master"); ok {
		t.Error("master should be solo")
	}
	if _, ok := r.GroupFor("slave"); ok {
		t.Error("slave should be solo")
	}
}

func TestResolver_SlavelessMasterDemoted(t *testing.T) {
	reg := registryWith(t, ps("lonely", player.RoleMaster))
	r := NewResolver(reg)

	if groups := r.Resolve(); len(groups) != 0 {
		t.Errorf("got %d groups, want 0 (demoted master)", len(groups))
	}
	if _, ok := r.GroupFor("lonely"); ok {
		t.Error("slaveless master should resolve to solo")
	}
}

func TestResolver_UnmatchedSlaveSolo(t *testing.T) {
	// Slave claims a master that exists but does not claim it back.
	reg := registryWith(t,
		ps("master", player.RoleMaster, "other"),
		ps("orphan", player.RoleSlave, "master"),
	)
	r := NewResolver(reg)

	r.Resolve()
	if _, ok := r.GroupFor("orphan"); ok {
		t.Error("unmatched slave should resolve to solo")
	}
}

func TestResolver_SoloExcludedFromGrouping(t *testing.T) {
	// A solo player listed as a peer by a master never joins.
	reg := registryWith(t,
		ps("master", player.RoleMaster, "loner"),
		ps("loner", player.RoleSolo),
	)
	r := NewResolver(reg)

	if groups := r.Resolve(); len(groups) != 0 {
		t.Errorf("got %d groups, want 0", len(groups))
	}
}

func TestResolver_PartitionInvariant(t *testing.T) {
	// Two masters both claim slave "s1"; s1 lists both back. It must
	// land in exactly one group (the lexically first master).
	reg := registryWith(t,
		ps("m1", player.RoleMaster, "s1"),
		ps("m2", player.RoleMaster, "s1", "s2"),
		ps("s1", player.RoleSlave, "m1", "m2"),
		ps("s2", player.RoleSlave, "m2"),
	)
	r := NewResolver(reg)

	groups := r.Resolve()

	seenSlave := make(map[string]int)
	masters := make(map[string]bool)
	for _, g := range groups {
		masters[g.MasterID] = true
		for _, id := range g.SlaveIDs {
			seenSlave[id]++
		}
	}

	for id, count := range seenSlave {
		if count != 1 {
			t.Errorf("slave %q appears in %d groups, want 1", id, count)
		}
		if masters[id] {
			t.Errorf("%q is both a master and a slave", id)
		}
	}

	// s1 joins m1 (lexically first matching master).
	g, ok := r.GroupFor("s1")
	if !ok {
		t.Fatal("s1 should be grouped")
	}
	if g.MasterID != "m1" {
		t.Errorf("s1 grouped under %q, want m1", g.MasterID)
	}
}

func TestResolver_DeterministicSlaveOrdering(t *testing.T) {
	reg := registryWith(t,
		ps("master", player.RoleMaster, "zebra", "alpha", "mango"),
		ps("zebra", player.RoleSlave, "master"),
		ps("alpha", player.RoleSlave, "master"),
		ps("mango", player.RoleSlave, "master"),
	)
	r := NewResolver(reg)

	first := r.Resolve()
	second := r.Resolve()

	if len(first) != 1 {
		t.Fatalf("got %d groups, want 1", len(first))
	}

	// Discovery order is lexical by player ID.
	want := []string{"alpha", "mango", "zebra"}
	if !slices.Equal(first[0].SlaveIDs, want) {
		t.Errorf("SlaveIDs = %v, want %v", first[0].SlaveIDs, want)
	}
	if !first[0].Equal(second[0]) {
		t.Error("identical input produced different output across passes")
	}
}

func TestResolver_StalePlayersTreatedAsSolo(t *testing.T) {
	stale := ps("slave", player.RoleSlave, "master")
	stale.Stale = true

	reg := registryWith(t,
		ps("master", player.RoleMaster, "slave"),
		stale,
	)
	r := NewResolver(reg)

	if groups := r.Resolve(); len(groups) != 0 {
		t.Errorf("got %d groups, want 0 (stale slave excluded)", len(groups))
	}
}

func TestResolver_StaleReferenceCounter(t *testing.T) {
	reg := registryWith(t,
		ps("master", player.RoleMaster, "ghost", "slave"),
		ps("slave", player.RoleSlave, "master", "phantom"),
	)
	r := NewResolver(reg)

	r.Resolve()
	if got := r.StaleReferenceCount(); got != 2 {
		t.Errorf("StaleReferenceCount() = %d, want 2", got)
	}

	// The pass itself still resolves the valid pair.
	if _, ok := r.GroupFor("slave"); !ok {
		t.Error("valid mutual pair should still resolve despite stale references")
	}

	// Counter is cumulative across passes.
	r.Resolve()
	if got := r.StaleReferenceCount(); got != 4 {
		t.Errorf("StaleReferenceCount() after second pass = %d, want 4", got)
	}
}

func TestResolver_GroupForAndAllGroups(t *testing.T) {
	reg := registryWith(t,
		ps("m1", player.RoleMaster, "s1"),
		ps("s1", player.RoleSlave, "m1"),
		ps("m2", player.RoleMaster, "s2"),
		ps("s2", player.RoleSlave, "m2"),
		ps("solo", player.RoleSolo),
	)
	r := NewResolver(reg)
	r.Resolve()

	all := r.AllGroups()
	if len(all) != 2 {
		t.Fatalf("AllGroups() = %d groups, want 2", len(all))
	}
	if all[0].MasterID != "m1" || all[1].MasterID != "m2" {
		t.Errorf("groups not sorted by master: %v", all)
	}

	for _, id := range []string{"m1", "s1"} {
		g, ok := r.GroupFor(id)
		if !ok || g.MasterID != "m1" {
			t.Errorf("GroupFor(%q) = %+v, %v; want m1 group", id, g, ok)
		}
	}
	if _, ok := r.GroupFor("solo"); ok {
		t.Error("GroupFor(solo) should report no group")
	}

	// Returned groups are copies; mutation must not leak.
	all[0].SlaveIDs[0] = "mutated"
	if g, _ := r.GroupFor("m1"); g.SlaveIDs[0] != "s1" {
		t.Error("mutating a returned group leaked into the resolver")
	}
}

func TestResolver_OnStateTriggersOnlyOnTopologyChange(t *testing.T) {
	reg := registryWith(t,
		ps("master", player.RoleMaster, "slave"),
		ps("slave", player.RoleSlave, "master"),
	)
	r := NewResolver(reg)

	var passes int
	r.SetOnTopologyChange(func(_ []Group) { passes++ })

	master, _ := reg.Get("master")
	slave, _ := reg.Get("slave")

	// First events carry new topology: one pass produces the group.
	r.OnState(poll.StateEvent{PlayerID: "master", State: master, Changed: true})
	r.OnState(poll.StateEvent{PlayerID: "slave", State: slave, Changed: true})
	if passes != 1 {
		t.Fatalf("topology changes = %d, want 1", passes)
	}

	// Volume-only change: same topology, no pass output change.
	master.Volume = 0.9
	reg.Upsert(master)
	r.OnState(poll.StateEvent{PlayerID: "master", State: master, Changed: true})
	if passes != 1 {
		t.Errorf("topology changes = %d, want 1 (volume change ignored)", passes)
	}

	// The slave leaves: topology changes, group dissolves.
	slave.Role = player.RoleSolo
	slave.PeerIDs = nil
	reg.Upsert(slave)
	r.OnState(poll.StateEvent{PlayerID: "slave", State: slave, Changed: true})
	if passes != 2 {
		t.Errorf("topology changes = %d, want 2 after slave left", passes)
	}
	if groups := r.AllGroups(); len(groups) != 0 {
		t.Errorf("got %d groups after dissolution, want 0", len(groups))
	}
}

func TestResolver_OnErrorResolvesOnStaleTransition(t *testing.T) {
	reg := registryWith(t,
		ps("master", player.RoleMaster, "slave"),
		ps("slave", player.RoleSlave, "master"),
	)
	r := NewResolver(reg)
	r.Resolve()

	if len(r.AllGroups()) != 1 {
		t.Fatal("expected one group before staleness")
	}

	// Non-stale failure: topology untouched.
	r.OnError(poll.ErrorEvent{PlayerID: "slave", ConsecutiveFailures: 1})
	if len(r.AllGroups()) != 1 {
		t.Error("group dissolved on non-stale failure")
	}

	// Stale transition: the slave is now treated as solo.
	slave, _ := reg.Get("slave")
	slave.Stale = true
	reg.Upsert(slave)
	r.OnError(poll.ErrorEvent{PlayerID: "slave", ConsecutiveFailures: 3, Stale: true})
	if len(r.AllGroups()) != 0 {
		t.Error("expected group dissolved once slave went stale")
	}
}
