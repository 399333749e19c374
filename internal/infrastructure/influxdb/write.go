package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRefreshMetric records the outcome of one polling refresh.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - playerID: Player identifier (e.g., "kitchen")
//   - success: Whether the refresh produced a usable snapshot
//   - latency: Round-trip time of the status request
//
// Example:
//
//	client.WriteRefreshMetric("kitchen", true, 42*time.Millisecond)
func (c *Client) WriteRefreshMetric(playerID string, success bool, latency time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"poll_refresh",
		map[string]string{
			"player_id": playerID,
		},
		map[string]interface{}{
			"success":    success,
			"latency_ms": float64(latency.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePlayerMetric records a player state observation for trending.
//
// Parameters:
//   - playerID: Player identifier
//   - playState: Current playback state (idle, play, pause, buffering)
//   - volume: Current volume level in [0.0, 1.0]
//   - grouped: Whether the player is part of a multiroom group
func (c *Client) WritePlayerMetric(playerID string, playState string, volume float64, grouped bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"player_state",
		map[string]string{
			"player_id":  playerID,
			"play_state": playState,
		},
		map[string]interface{}{
			"volume":  volume,
			"grouped": grouped,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDispatchMetric records the aggregate outcome of a group dispatch.
//
// Parameters:
//   - masterID: The group's master player
//   - command: The command name (e.g., "pause")
//   - status: Aggregate status (success, partial, failed)
//   - members: Number of members targeted
//   - duration: Wall time from dispatch start to aggregation
func (c *Client) WriteDispatchMetric(masterID, command, status string, members int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"group_dispatch",
		map[string]string{
			"master_id": masterID,
			"command":   command,
			"status":    status,
		},
		map[string]interface{}{
			"members":     members,
			"duration_ms": float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
