package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mbeckert/wavelink/internal/player"
)

// Phase is the coordinator's position in its refresh state machine.
type Phase string

// Coordinator phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseRefreshing Phase = "refreshing"
	PhaseBackoff    Phase = "backoff"
)

// Config contains the coordinator's timing parameters.
type Config struct {
	// Interval is the steady-state time between refreshes.
	Interval time.Duration

	// RefreshTimeout bounds a single status request.
	RefreshTimeout time.Duration

	// BackoffBase is the retry delay after the first failure.
	BackoffBase time.Duration

	// BackoffCap is the upper bound on the retry delay.
	BackoffCap time.Duration

	// StaleAfter is the consecutive-failure count at which the player
	// is flagged stale. 0 disables stale marking.
	StaleAfter int
}

// Status is a point-in-time view of the coordinator for diagnostics.
type Status struct {
	PlayerID            string        `json:"player_id"`
	Phase               Phase         `json:"phase"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	NextDelay           time.Duration `json:"next_delay"`
}

// refreshOutcome is delivered to RefreshNow waiters.
type refreshOutcome struct {
	state player.State
	err   error
}

// Coordinator owns the refresh loop for one player.
//
// It is the single writer for that player's registry entry. The loop is
// serial: at most one refresh is ever in flight, so a later refresh can
// never have its result applied before an earlier one's.
type Coordinator struct {
	playerID string
	client   Client
	registry *player.Registry
	cfg      Config

	mu        sync.Mutex
	phase     Phase
	failures  int
	nextDelay time.Duration
	waiters   []chan refreshOutcome
	started   bool
	stopped   bool

	triggerCh chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	subMu       sync.RWMutex
	subscribers []Subscriber

	metrics MetricsRecorder
	logger  Logger
	now     func() time.Time
}

// NewCoordinator creates a coordinator for one player.
//
// Parameters:
//   - playerID: The player this coordinator owns
//   - client: Device capability used to fetch raw status
//   - registry: Shared registry this coordinator writes its entry into
//   - cfg: Timing parameters
//
// Returns:
//   - *Coordinator: Ready to Start
func NewCoordinator(playerID string, client Client, registry *player.Registry, cfg Config) *Coordinator {
	return &Coordinator{
		playerID:  playerID,
		client:    client,
		registry:  registry,
		cfg:       cfg,
		phase:     PhaseIdle,
		nextDelay: cfg.Interval,
		triggerCh: make(chan struct{}, 1),
		done:      make(chan struct{}),
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetMetrics sets an optional per-refresh telemetry recorder.
func (c *Coordinator) SetMetrics(metrics MetricsRecorder) {
	c.metrics = metrics
}

// Subscribe registers a listener for state-change and error events.
// Must be called before Start; subscribers are not removable.
func (c *Coordinator) Subscribe(s Subscriber) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribers = append(c.subscribers, s)
}

// Start launches the refresh loop. The first refresh is issued
// immediately; subsequent refreshes follow Interval or, after
// failures, the backoff delay.
//
// Returns ErrAlreadyStarted if called twice.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	go c.run()
	c.logger.Info("coordinator started", "player_id", c.playerID, "interval", c.cfg.Interval)
	return nil
}

// Stop requests cancellation and returns immediately.
//
// An in-flight refresh is allowed to complete, but its result is
// discarded: no registry mutation, no notification. Waiters attached
// via RefreshNow receive ErrStopped. Use Done to wait for the loop to
// exit. Idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.logger.Info("coordinator stopping", "player_id", c.playerID)
}

// Done is closed when the refresh loop has fully exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// RefreshNow requests an immediate refresh, bypassing any backoff wait.
//
// If a refresh is already in flight, the call attaches to its result
// rather than issuing a second network call. The provided context
// bounds only this caller's wait, not the refresh itself.
//
// Returns:
//   - player.State: The accepted snapshot on success
//   - error: The refresh failure, ErrStopped, or ctx.Err()
func (c *Coordinator) RefreshNow(ctx context.Context) (player.State, error) {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return player.State{}, ErrStopped
	}
	w := make(chan refreshOutcome, 1)
	c.waiters = append(c.waiters, w)
	inflight := c.phase == PhaseRefreshing
	c.mu.Unlock()

	if !inflight {
		select {
		case c.triggerCh <- struct{}{}:
		default:
			// A trigger is already pending; that refresh serves us too.
		}
	}

	select {
	case out := <-w:
		return out.state, out.err
	case <-ctx.Done():
		return player.State{}, ctx.Err()
	}
}

// Status returns a snapshot of the coordinator's current phase.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		PlayerID:            c.playerID,
		Phase:               c.phase,
		ConsecutiveFailures: c.failures,
		NextDelay:           c.nextDelay,
	}
}

// run is the serial refresh loop.
func (c *Coordinator) run() {
	defer close(c.done)

	// Immediate first refresh populates the registry at startup.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-c.ctx.Done():
			c.flushWaiters(refreshOutcome{err: ErrStopped})
			return
		case <-timer.C:
			c.refresh()
		case <-c.triggerCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			c.refresh()
		}

		c.mu.Lock()
		delay := c.nextDelay
		c.mu.Unlock()
		timer.Reset(delay)
	}
}

// refresh performs one status request and applies its outcome.
func (c *Coordinator) refresh() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseRefreshing
	c.mu.Unlock()

	start := c.now()
	rctx, cancel := context.WithTimeout(c.ctx, c.cfg.RefreshTimeout)
	raw, err := c.client.Refresh(rctx, c.playerID)
	cancel()
	latency := c.now().Sub(start)

	// Discard results that complete after Stop: no mutation, no events.
	c.mu.Lock()
	if c.stopped {
		c.phase = PhaseIdle
		waiters := c.takeWaitersLocked()
		c.mu.Unlock()
		deliver(waiters, refreshOutcome{err: ErrStopped})
		return
	}
	c.mu.Unlock()

	if err != nil {
		c.recordMetric(false, latency)
		c.failRefresh(err)
		return
	}

	c.applyRaw(raw, latency)
}

// applyRaw folds an answered status request into the registry.
func (c *Coordinator) applyRaw(raw player.RawStatus, latency time.Duration) {
	prev, err := c.registry.Get(c.playerID)
	isNew := errors.Is(err, player.ErrNotFound)
	if isNew {
		prev = player.State{ID: c.playerID}
	}

	next, err := player.ApplyRefresh(prev, raw, c.now())
	if err != nil {
		// Malformed payload: previous snapshot retained; counts as a
		// failure for backoff and stale purposes.
		c.recordMetric(false, latency)
		c.failRefresh(err)
		return
	}

	// Recovering from stale is a change even when the observable
	// fields match the preloaded snapshot.
	changed := isNew || !prev.Equal(next) || prev.Stale

	c.registry.Upsert(next)

	c.mu.Lock()
	c.failures = 0
	c.phase = PhaseIdle
	c.nextDelay = c.cfg.Interval
	waiters := c.takeWaitersLocked()
	c.mu.Unlock()

	c.recordMetric(true, latency)

	if changed {
		c.logger.Debug("player state changed",
			"player_id", c.playerID,
			"play_state", next.PlayState,
			"role", next.Role,
		)
		c.notifyState(StateEvent{PlayerID: c.playerID, State: next, Changed: true})
	}

	deliver(waiters, refreshOutcome{state: next})
}

// failRefresh records a failed refresh: bookkeeping, backoff, stale
// marking, error notification, and waiter delivery.
func (c *Coordinator) failRefresh(err error) {
	c.mu.Lock()
	c.failures++
	failures := c.failures
	c.phase = PhaseBackoff
	c.nextDelay = backoffDelay(c.cfg.BackoffBase, c.cfg.BackoffCap, failures)
	delay := c.nextDelay
	waiters := c.takeWaitersLocked()
	c.mu.Unlock()

	stale := c.cfg.StaleAfter > 0 && failures >= c.cfg.StaleAfter

	// Note the failure on the snapshot, if one exists yet. The
	// previous observable state is retained, never zeroed.
	if s, gerr := c.registry.Get(c.playerID); gerr == nil {
		s.LastError = err.Error()
		if stale {
			s.Stale = true
		}
		c.registry.Upsert(s)
	}

	c.logger.Warn("refresh failed",
		"player_id", c.playerID,
		"error", err,
		"consecutive_failures", failures,
		"retry_in", delay,
		"stale", stale,
	)

	c.notifyError(ErrorEvent{
		PlayerID:            c.playerID,
		Err:                 err,
		ConsecutiveFailures: failures,
		Stale:               stale,
	})

	deliver(waiters, refreshOutcome{err: err})
}

// takeWaitersLocked detaches the current waiter list. Caller holds mu.
func (c *Coordinator) takeWaitersLocked() []chan refreshOutcome {
	waiters := c.waiters
	c.waiters = nil
	return waiters
}

// flushWaiters detaches and answers all waiters.
func (c *Coordinator) flushWaiters(out refreshOutcome) {
	c.mu.Lock()
	waiters := c.takeWaitersLocked()
	c.mu.Unlock()
	deliver(waiters, out)
}

// deliver answers waiters. Channels are buffered so this never blocks.
func deliver(waiters []chan refreshOutcome, out refreshOutcome) {
	for _, w := range waiters {
		w <- out
	}
}

func (c *Coordinator) recordMetric(success bool, latency time.Duration) {
	if c.metrics != nil {
		c.metrics.WriteRefreshMetric(c.playerID, success, latency)
	}
}

func (c *Coordinator) notifyState(event StateEvent) {
	c.subMu.RLock()
	subs := c.subscribers
	c.subMu.RUnlock()
	for _, s := range subs {
		s.OnState(event)
	}
}

func (c *Coordinator) notifyError(event ErrorEvent) {
	c.subMu.RLock()
	subs := c.subscribers
	c.subMu.RUnlock()
	for _, s := range subs {
		s.OnError(event)
	}
}
