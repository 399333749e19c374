// Package poll drives the periodic refresh of each player.
//
// One Coordinator owns one player: it is the single writer for that
// player's registry entry. The coordinator runs a serial refresh loop,
// which makes the at-most-one-in-flight guarantee — and therefore the
// no-reordering guarantee — hold by construction rather than via
// sequence numbers.
//
// # State machine
//
//	         tick / RefreshNow
//	┌──────┐ ──────────────────▶ ┌────────────┐
//	│ Idle │                     │ Refreshing │
//	└──────┘ ◀────────────────── └────────────┘
//	    ▲        success                │ failure
//	    │                               ▼
//	    │      delay elapsed      ┌─────────┐
//	    └──────────────────────── │ Backoff │
//	                              └─────────┘
//
// Failures double the retry delay from a configured base up to a cap;
// a success resets it. After a configured number of consecutive
// failures the player is flagged stale — it keeps its last-known
// snapshot and surfaces as solo rather than disappearing.
//
// A RefreshNow call while a refresh is in flight attaches to that
// refresh's result instead of issuing a second network call. Stopping
// the coordinator lets an in-flight call finish but discards its
// result: no registry mutation, no notification.
package poll
