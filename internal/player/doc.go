// Package player holds the canonical in-memory model of each speaker.
//
// A State is an immutable value snapshot of one device's last-known
// condition: volume, playback state, self-reported group role and peer
// set, plus freshness bookkeeping. ApplyRefresh is the only transition:
// given the previous snapshot and a raw status payload it produces the
// next snapshot, retaining the previous one when the payload is
// malformed.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────┐
//	│                        player package                          │
//	│                                                                │
//	│  ┌───────────────┐   ┌───────────────┐   ┌──────────────────┐  │
//	│  │     State     │   │   Registry    │   │  SnapshotStore   │  │
//	│  │  (state.go)   │──▶│ (registry.go) │──▶│(snapshot_store.go)│ │
//	│  │               │   │               │   │                  │  │
//	│  │ • ApplyRefresh│   │ • Upsert/Get  │   │ • SQLite history │  │
//	│  │ • Equal       │   │ • List/Remove │   │ • Latest preload │  │
//	│  │ • pure values │   │ • RWMutex     │   │ • Prune          │  │
//	│  └───────────────┘   └───────────────┘   └──────────────────┘  │
//	└────────────────────────────────────────────────────────────────┘
//
// # Ownership
//
// Each player's State is written only by that player's polling
// coordinator. The Registry mediates access with a read-write mutex
// and hands out value copies, so readers (group resolver, publishers)
// never observe a snapshot mid-update.
package player
