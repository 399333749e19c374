package dispatch

import (
	"time"
)

// Outcome classifies one member's response to a dispatched command.
type Outcome string

// Member outcomes.
const (
	// OutcomeSuccess: the device acknowledged the command.
	OutcomeSuccess Outcome = "success"

	// OutcomeRejected: the device actively refused the command.
	// Definitive; never retried automatically.
	OutcomeRejected Outcome = "rejected"

	// OutcomeTimeout: the member's own deadline elapsed first.
	OutcomeTimeout Outcome = "timeout"

	// OutcomeFailed: transport or other error.
	OutcomeFailed Outcome = "failed"
)

// Status is the aggregate verdict over all members.
type Status string

// Aggregate statuses.
const (
	StatusSuccess Status = "success" // every member succeeded
	StatusPartial Status = "partial" // some succeeded, some did not
	StatusFailed  Status = "failed"  // every member failed
)

// MemberResult is one member's isolated outcome.
type MemberResult struct {
	PlayerID string        `json:"player_id"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Result is the aggregated outcome of one group dispatch.
type Result struct {
	// DispatchID correlates logs, MQTT result messages, and telemetry
	// for one dispatch.
	DispatchID string `json:"dispatch_id"`

	// MasterID identifies the group the command targeted.
	MasterID string `json:"master_id"`

	// Command is the dispatched command.
	Command Command `json:"command"`

	// Status is the aggregate verdict.
	Status Status `json:"status"`

	// Members holds one entry per group member, keyed by player ID.
	Members map[string]MemberResult `json:"members"`

	// StartedAt is when the fan-out began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time until the last member concluded.
	Duration time.Duration `json:"duration"`
}

// aggregate derives the overall status from member outcomes.
func aggregate(members map[string]MemberResult) Status {
	succeeded, failed := 0, 0
	for _, m := range members {
		if m.Outcome == OutcomeSuccess {
			succeeded++
		} else {
			failed++
		}
	}

	switch {
	case failed == 0:
		return StatusSuccess
	case succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
