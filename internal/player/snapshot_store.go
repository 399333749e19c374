package player

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbeckert/wavelink/internal/infrastructure/database"
)

// SnapshotStore persists accepted player snapshots to SQLite.
//
// Every accepted refresh is recorded as one history row; the most
// recent row per player is loaded at startup so the registry can start
// from last-known state (flagged stale) instead of empty.
type SnapshotStore struct {
	db     *database.DB
	logger Logger
}

// NewSnapshotStore creates a snapshot store over an open database.
func NewSnapshotStore(db *database.DB) *SnapshotStore {
	return &SnapshotStore{
		db:     db,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *SnapshotStore) SetLogger(logger Logger) {
	s.logger = logger
}

// Record appends one snapshot to the history.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - state: The accepted snapshot to persist
//
// Returns:
//   - error: If the insert fails
func (s *SnapshotStore) Record(ctx context.Context, state State) error {
	peers, err := json.Marshal(state.PeerIDs)
	if err != nil {
		return fmt.Errorf("marshalling peer ids: %w", err)
	}
	if state.PeerIDs == nil {
		peers = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO player_snapshots (
			player_id, name, volume, muted, play_state, role, peer_ids,
			track_title, track_artist, track_source, firmware, refreshed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		state.ID,
		state.Name,
		state.Volume,
		state.Muted,
		string(state.PlayState),
		string(state.Role),
		string(peers),
		state.Track.Title,
		state.Track.Artist,
		state.Track.Source,
		state.Firmware,
		state.LastRefreshAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording snapshot for %s: %w", state.ID, err)
	}
	return nil
}

// Latest returns the most recent stored snapshot for one player.
// Returns ErrNoSnapshot if the player has no history.
func (s *SnapshotStore) Latest(ctx context.Context, playerID string) (State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT player_id, name, volume, muted, play_state, role, peer_ids,
		       track_title, track_artist, track_source, firmware, refreshed_at
		FROM player_snapshots
		WHERE player_id = ?
		ORDER BY refreshed_at DESC, id DESC
		LIMIT 1`,
		playerID,
	)

	state, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("%w: %s", ErrNoSnapshot, playerID)
	}
	return state, err
}

// LatestAll returns the most recent stored snapshot for every player
// that has history, for the startup preload.
func (s *SnapshotStore) LatestAll(ctx context.Context) ([]State, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, name, volume, muted, play_state, role, peer_ids,
		       track_title, track_artist, track_source, firmware, refreshed_at
		FROM player_snapshots
		WHERE id IN (
			SELECT MAX(id) FROM player_snapshots GROUP BY player_id
		)
		ORDER BY player_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshots: %w", err)
	}
	defer rows.Close()

	var out []State
	for rows.Next() {
		state, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

// History returns a player's snapshots, newest first, up to limit rows.
func (s *SnapshotStore) History(ctx context.Context, playerID string, limit int) ([]State, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, name, volume, muted, play_state, role, peer_ids,
		       track_title, track_artist, track_source, firmware, refreshed_at
		FROM player_snapshots
		WHERE player_id = ?
		ORDER BY refreshed_at DESC, id DESC
		LIMIT ?`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []State
	for rows.Next() {
		state, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

// Prune deletes history rows older than the cutoff, keeping the most
// recent row per player so the startup preload always has something.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: If the delete fails
func (s *SnapshotStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM player_snapshots
		WHERE refreshed_at < ?
		AND id NOT IN (
			SELECT MAX(id) FROM player_snapshots GROUP BY player_id
		)`,
		olderThan.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	if deleted > 0 {
		s.logger.Debug("pruned snapshot history", "deleted", deleted)
	}
	return deleted, nil
}

// scanner abstracts sql.Row and sql.Rows for scanSnapshot.
type scanner interface {
	Scan(dest ...any) error
}

// scanSnapshot reads one snapshot row.
func scanSnapshot(row scanner) (State, error) {
	var (
		state     State
		playState string
		role      string
		peersJSON string
		refreshed string
	)

	err := row.Scan(
		&state.ID,
		&state.Name,
		&state.Volume,
		&state.Muted,
		&playState,
		&role,
		&peersJSON,
		&state.Track.Title,
		&state.Track.Artist,
		&state.Track.Source,
		&state.Firmware,
		&refreshed,
	)
	if err != nil {
		return State{}, err
	}

	state.PlayState = PlayState(playState)
	state.Role = Role(role)

	if err := json.Unmarshal([]byte(peersJSON), &state.PeerIDs); err != nil {
		return State{}, fmt.Errorf("unmarshalling peer ids for %s: %w", state.ID, err)
	}
	if len(state.PeerIDs) == 0 {
		state.PeerIDs = nil
	}

	ts, err := time.Parse(time.RFC3339Nano, refreshed)
	if err != nil {
		return State{}, fmt.Errorf("parsing refreshed_at for %s: %w", state.ID, err)
	}
	state.LastRefreshAt = ts

	return state, nil
}
