package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbeckert/wavelink/internal/grouping"
	"github.com/mbeckert/wavelink/internal/player"
)

// Logger defines the logging interface used by the Dispatcher.
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

// MetricsRecorder receives per-dispatch telemetry. Satisfied by the
// influxdb client; a nil recorder disables metrics.
type MetricsRecorder interface {
	WriteDispatchMetric(masterID, command, status string, members int, duration time.Duration)
}

// Dispatcher fans commands out to group members.
//
// Stateless between calls and safe for concurrent use.
type Dispatcher struct {
	client  Client
	logger  Logger
	metrics MetricsRecorder
}

// NewDispatcher creates a dispatcher over the given device client.
func NewDispatcher(client Client) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetMetrics sets an optional per-dispatch telemetry recorder.
func (d *Dispatcher) SetMetrics(metrics MetricsRecorder) {
	d.metrics = metrics
}

// Dispatch sends one command to every member of a group concurrently.
//
// The group is a snapshot taken by the caller; topology changes during
// the dispatch do not redirect in-flight sends. Each member's send is
// bounded by its own perMemberTimeout and contributes an isolated
// outcome — a timed-out member never blocks siblings that have already
// answered, and nothing is rolled back.
//
// Parameters:
//   - ctx: Parent context; cancellation aborts members still in flight
//   - group: The group snapshot to target (master + slaves)
//   - cmd: The command to fan out
//   - perMemberTimeout: Deadline applied to each member independently
//
// Returns:
//   - Result: Aggregate status plus one entry per member
func (d *Dispatcher) Dispatch(ctx context.Context, group grouping.Group, cmd Command, perMemberTimeout time.Duration) Result {
	dispatchID := uuid.NewString()
	members := group.Members()
	started := time.Now()

	d.logger.Info("dispatching group command",
		"dispatch_id", dispatchID,
		"master_id", group.MasterID,
		"command", cmd.Action,
		"members", len(members),
	)

	results := make(map[string]MemberResult, len(members))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, id := range members {
		wg.Add(1)
		go func(memberID string) {
			defer wg.Done()

			res := d.sendOne(ctx, memberID, cmd, perMemberTimeout)

			mu.Lock()
			results[memberID] = res
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	result := Result{
		DispatchID: dispatchID,
		MasterID:   group.MasterID,
		Command:    cmd,
		Status:     aggregate(results),
		Members:    results,
		StartedAt:  started,
		Duration:   time.Since(started),
	}

	d.logger.Info("group command dispatched",
		"dispatch_id", dispatchID,
		"status", result.Status,
		"duration", result.Duration,
	)

	if d.metrics != nil {
		d.metrics.WriteDispatchMetric(
			group.MasterID, cmd.Action, string(result.Status),
			len(members), result.Duration,
		)
	}

	return result
}

// sendOne issues the command to a single member and classifies the outcome.
func (d *Dispatcher) sendOne(ctx context.Context, memberID string, cmd Command, timeout time.Duration) MemberResult {
	start := time.Now()

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := d.client.Send(sctx, memberID, cmd)
	elapsed := time.Since(start)

	res := MemberResult{
		PlayerID: memberID,
		Outcome:  classify(err),
		Elapsed:  elapsed,
	}
	if err != nil {
		res.Error = err.Error()
		d.logger.Warn("member command failed",
			"player_id", memberID,
			"command", cmd.Action,
			"outcome", res.Outcome,
			"error", err,
		)
	}
	return res
}

// classify maps a send error onto a member outcome.
func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, player.ErrRejected):
		return OutcomeRejected
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeFailed
	}
}
