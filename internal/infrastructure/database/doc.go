// Package database provides SQLite connection management and schema
// migrations for Wavelink's snapshot persistence.
//
// The database stores last-known player snapshots so that a restart can
// rebuild the registry without waiting for a full polling cycle. WAL
// mode is enabled by default for concurrent read access, and the
// connection pool is capped at a single connection to match SQLite's
// single-writer model.
//
// Migrations are embedded into the binary by the migrations package and
// applied at startup via DB.Migrate. Each migration runs in its own
// transaction, so a failed migration leaves earlier ones committed and
// can be retried.
package database
