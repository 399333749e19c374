// Package grouping derives multiroom group topology from player
// snapshots.
//
// Devices self-report their role and peer set, but those reports lag
// and drift: a master may still list a peer that left, a slave may
// reference a master that dissolved the group. Topology is therefore
// derived, never trusted. A resolution pass recomputes every group
// from scratch off the current registry contents — no incremental
// patching, so stale edges cannot accumulate.
//
// # Rules
//
//   - Mutual reference: a slave joins a master's group only when the
//     master lists the slave AND the slave lists the master. One-sided
//     claims are rejected as stale gossip.
//   - Demotion: a self-reported master that ends a pass with zero
//     accepted slaves is output as solo.
//   - Unmatched slaves are output as solo.
//   - Stale players are treated as solo; their last-known topology
//     claims are not acted upon.
//   - Slave ordering within a group follows discovery order during
//     partitioning, which is lexical by player ID because the registry
//     lists players sorted — identical input always yields identical
//     output.
//
// Peer references to unknown players are dropped and counted in a
// diagnostic counter, never fatal to the rest of the pass.
//
// Groups are derived values with no identity across passes: two passes
// producing the same master and slave set produce equal Groups.
package grouping
