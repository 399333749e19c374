package grouping

import "slices"

// Group is one resolved multiroom group: a master and its accepted
// slaves in join order.
//
// Groups are values, compared by content. They are recomputed on every
// resolution pass and never mutated in place.
type Group struct {
	// MasterID is the player acting as group master.
	MasterID string `json:"master_id"`

	// SlaveIDs is the ordered slave set; never empty (a group with no
	// slaves collapses to solo and is not emitted).
	SlaveIDs []string `json:"slave_ids"`
}

// Equal reports whether two groups have the same master and the same
// slaves in the same order.
func (g Group) Equal(o Group) bool {
	return g.MasterID == o.MasterID && slices.Equal(g.SlaveIDs, o.SlaveIDs)
}

// Members returns the master followed by all slaves.
func (g Group) Members() []string {
	out := make([]string, 0, 1+len(g.SlaveIDs))
	out = append(out, g.MasterID)
	out = append(out, g.SlaveIDs...)
	return out
}

// Size returns the member count including the master.
func (g Group) Size() int {
	return 1 + len(g.SlaveIDs)
}

// Copy returns a deep copy of the group.
func (g Group) Copy() Group {
	return Group{
		MasterID: g.MasterID,
		SlaveIDs: slices.Clone(g.SlaveIDs),
	}
}
