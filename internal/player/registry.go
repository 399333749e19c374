package player

import (
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Registry is the shared catalogue of player snapshots.
//
// Ownership rule: each player's snapshot is written only by that
// player's polling coordinator (plus the one-time startup preload).
// Readers — the group resolver, publishers, the command intake — get
// value copies and can never observe a snapshot mid-update.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	players map[string]State
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]State),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Upsert stores a snapshot, replacing any existing one for the same ID.
func (r *Registry) Upsert(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, existed := r.players[s.ID]
	r.players[s.ID] = s.Copy()

	if !existed {
		r.logger.Info("player registered", "player_id", s.ID, "name", s.Name)
	}
}

// Get retrieves a snapshot by player ID.
// Returns ErrNotFound if the player does not exist.
func (r *Registry) Get(id string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.players[id]
	if !ok {
		return State{}, ErrNotFound
	}
	return s.Copy(), nil
}

// List returns all snapshots sorted by player ID.
//
// The deterministic ordering matters: the group resolver's output
// ordering is defined in terms of its input iteration order.
func (r *Registry) List() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]State, 0, len(r.players))
	for _, s := range r.players {
		out = append(out, s.Copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes a player from the registry.
//
// This is the explicit lifecycle exit for a permanently unreachable
// device; mere refresh timeouts only mark a player stale.
// Returns ErrNotFound if the player does not exist.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; !ok {
		return ErrNotFound
	}
	delete(r.players, id)
	r.logger.Info("player removed", "player_id", id)
	return nil
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Stats summarises the registry for health and diagnostics output.
type Stats struct {
	Total   int `json:"total"`
	Stale   int `json:"stale"`
	Grouped int `json:"grouped"`
}

// Stats returns aggregate counts over the current registry contents.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{Total: len(r.players)}
	for _, s := range r.players {
		if s.Stale {
			st.Stale++
		}
		if s.Grouped() {
			st.Grouped++
		}
	}
	return st
}
