package grouping

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mbeckert/wavelink/internal/player"
	"github.com/mbeckert/wavelink/internal/poll"
)

// Logger defines the logging interface used by the Resolver.
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

// Resolver turns self-reported roles and peer sets into canonical
// groups.
//
// The resolver only reads the registry; it never mutates player
// snapshots. Query methods serve the output of the latest pass.
//
// All methods are safe for concurrent use.
type Resolver struct {
	registry *player.Registry
	logger   Logger

	mu       sync.RWMutex
	byMember map[string]Group // resolved group per member id
	groups   []Group          // sorted by master id

	// lastTopo caches each player's last seen role+peers so subscriber
	// events trigger a pass only on actual topology change.
	lastTopo map[string]string

	// staleRefs counts peer references to unknown players, cumulative
	// across passes.
	staleRefs atomic.Uint64

	// onChange, when set, is called after a pass whose output differs
	// from the previous one.
	onChange func(groups []Group)
}

// NewResolver creates a resolver over the shared registry.
func NewResolver(registry *player.Registry) *Resolver {
	return &Resolver{
		registry: registry,
		logger:   noopLogger{},
		byMember: make(map[string]Group),
		lastTopo: make(map[string]string),
	}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// SetOnTopologyChange registers a callback invoked after any pass that
// changed the resolved group set. Must be called before the resolver
// starts receiving events.
func (r *Resolver) SetOnTopologyChange(fn func(groups []Group)) {
	r.onChange = fn
}

// Resolve runs one resolution pass over the current registry contents.
//
// The pass partitions players by role, applies the mutual-reference
// rule, demotes slaveless masters, and publishes the result to the
// query methods. Registry listing is sorted by player ID, so identical
// input always produces identical output.
//
// Returns the resolved groups, sorted by master ID.
func (r *Resolver) Resolve() []Group {
	states := r.registry.List()

	index := make(map[string]player.State, len(states))
	for _, s := range states {
		index[s.ID] = s
	}

	// Partition. Stale players are treated as solo: their topology
	// claims are last-known data, not current intent. List order is
	// lexical by ID, which fixes slave discovery order.
	var masters, slaves []player.State
	for _, s := range states {
		if s.Stale {
			continue
		}
		switch s.Role {
		case player.RoleMaster:
			masters = append(masters, s)
		case player.RoleSlave:
			slaves = append(slaves, s)
		}
	}

	r.countStaleReferences(masters, index)
	r.countStaleReferences(slaves, index)

	// Mutual-reference matching. A slave joins the first (lexically
	// smallest) master that lists it and that it lists back.
	accepted := make(map[string][]string, len(masters))
	for _, s := range slaves {
		for _, m := range masters {
			if slices.Contains(m.PeerIDs, s.ID) && slices.Contains(s.PeerIDs, m.ID) {
				accepted[m.ID] = append(accepted[m.ID], s.ID)
				break
			}
		}
		// No match: stale gossip, the slave stays solo this pass.
	}

	// Masters with zero accepted slaves are demoted to solo by
	// omission from the output.
	groups := make([]Group, 0, len(accepted))
	byMember := make(map[string]Group, len(accepted)*2)
	for _, m := range masters {
		slaveIDs, ok := accepted[m.ID]
		if !ok {
			continue
		}
		g := Group{MasterID: m.ID, SlaveIDs: slaveIDs}
		groups = append(groups, g)
		byMember[m.ID] = g
		for _, id := range slaveIDs {
			byMember[id] = g
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].MasterID < groups[j].MasterID })

	r.mu.Lock()
	changed := !groupsEqual(r.groups, groups)
	r.groups = groups
	r.byMember = byMember
	r.mu.Unlock()

	if changed {
		r.logger.Info("topology resolved", "groups", len(groups))
		if r.onChange != nil {
			r.onChange(copyGroups(groups))
		}
	}

	return copyGroups(groups)
}

// countStaleReferences bumps the diagnostic counter for every peer
// reference that does not resolve to a known player.
func (r *Resolver) countStaleReferences(states []player.State, index map[string]player.State) {
	for _, s := range states {
		for _, peer := range s.PeerIDs {
			if _, ok := index[peer]; !ok {
				r.staleRefs.Add(1)
				r.logger.Debug("stale peer reference dropped",
					"player_id", s.ID,
					"peer_id", peer,
				)
			}
		}
	}
}

// GroupFor returns the resolved group containing the given player, or
// false if the player is effectively solo.
func (r *Resolver) GroupFor(playerID string) (Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byMember[playerID]
	if !ok {
		return Group{}, false
	}
	return g.Copy(), true
}

// AllGroups returns every resolved group, sorted by master ID.
func (r *Resolver) AllGroups() []Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyGroups(r.groups)
}

// StaleReferenceCount returns the cumulative number of dropped peer
// references across all passes.
func (r *Resolver) StaleReferenceCount() uint64 {
	return r.staleRefs.Load()
}

// OnState implements poll.Subscriber. A pass runs only when the
// player's role or peer set actually changed; volume and playback
// changes never trigger resolution.
func (r *Resolver) OnState(event poll.StateEvent) {
	key := topoKey(event.State)

	r.mu.Lock()
	last, seen := r.lastTopo[event.PlayerID]
	if seen && last == key {
		r.mu.Unlock()
		return
	}
	r.lastTopo[event.PlayerID] = key
	r.mu.Unlock()

	r.Resolve()
}

// OnError implements poll.Subscriber. A failure only matters to
// topology when it crossed the stale threshold: the player is now
// treated as solo, so its groups must be re-derived.
func (r *Resolver) OnError(event poll.ErrorEvent) {
	if !event.Stale {
		return
	}

	r.mu.Lock()
	delete(r.lastTopo, event.PlayerID)
	r.mu.Unlock()

	r.Resolve()
}

// topoKey builds a comparable key from a snapshot's topology fields.
func topoKey(s player.State) string {
	return string(s.Role) + "|" + strings.Join(s.PeerIDs, ",")
}

func groupsEqual(a, b []Group) bool {
	return slices.EqualFunc(a, b, Group.Equal)
}

func copyGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = g.Copy()
	}
	return out
}
