// Wavelink - Multiroom Audio Coordination Core
//
// This is the main entry point for the Wavelink daemon. Wavelink polls
// LinkPlay-style speakers over HTTP, maintains an authoritative view of
// player state and multiroom group topology, and fans group commands
// out to members over MQTT.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	_ "github.com/mbeckert/wavelink/migrations"

	"github.com/mbeckert/wavelink/internal/dispatch"
	"github.com/mbeckert/wavelink/internal/grouping"
	"github.com/mbeckert/wavelink/internal/infrastructure/config"
	"github.com/mbeckert/wavelink/internal/infrastructure/database"
	"github.com/mbeckert/wavelink/internal/infrastructure/influxdb"
	"github.com/mbeckert/wavelink/internal/infrastructure/logging"
	"github.com/mbeckert/wavelink/internal/infrastructure/mqtt"
	"github.com/mbeckert/wavelink/internal/linkplay"
	"github.com/mbeckert/wavelink/internal/player"
	"github.com/mbeckert/wavelink/internal/poll"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Snapshot history housekeeping.
const (
	snapshotRetention = 7 * 24 * time.Hour
	pruneInterval     = time.Hour
)

// coordinatorStopTimeout bounds the wait for in-flight refreshes on shutdown.
const coordinatorStopTimeout = 5 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Wavelink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise player registry and snapshot history
	registry := player.NewRegistry()
	registry.SetLogger(log)

	snapshots := player.NewSnapshotStore(db)
	snapshots.SetLogger(log)

	// Preload the last known snapshot for each configured device so the
	// registry is warm before the first refresh. Preloaded entries are
	// marked stale: groups treat them as solo until live data arrives.
	if preloadErr := preloadSnapshots(ctx, cfg, registry, snapshots, log); preloadErr != nil {
		log.Warn("snapshot preload failed, starting cold", "error", preloadErr)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device HTTP client
	hosts := make(map[string]string, len(cfg.Devices))
	for _, dev := range cfg.Devices {
		hosts[dev.ID] = dev.Host
	}
	devices := linkplay.New(hosts)
	devices.SetLogger(log)

	// Group resolver publishes topology to MQTT whenever it changes
	resolver := grouping.NewResolver(registry)
	resolver.SetLogger(log)
	resolver.SetOnTopologyChange(newTopologyPublisher(mqttClient, log))

	// Group command dispatcher
	dispatcher := dispatch.NewDispatcher(devices)
	dispatcher.SetLogger(log)
	if influxClient != nil {
		dispatcher.SetMetrics(influxClient)
	}

	// One polling coordinator per configured device
	statePub := &statePublisher{mqtt: mqttClient, logger: log}
	recorder := &snapshotRecorder{store: snapshots, logger: log}

	coordinators := make([]*poll.Coordinator, 0, len(cfg.Devices))
	for _, dev := range cfg.Devices {
		coord := poll.NewCoordinator(dev.ID, devices, registry, poll.Config{
			Interval:       cfg.Poll.Interval,
			RefreshTimeout: cfg.Poll.RefreshTimeout,
			BackoffBase:    cfg.Poll.BackoffBase,
			BackoffCap:     cfg.Poll.BackoffCap,
			StaleAfter:     cfg.Poll.StaleAfter,
		})
		coord.SetLogger(log.With("player_id", dev.ID))
		if influxClient != nil {
			coord.SetMetrics(influxClient)
			coord.Subscribe(&telemetryRecorder{influx: influxClient})
		}
		coord.Subscribe(resolver)
		coord.Subscribe(statePub)
		coord.Subscribe(recorder)

		if startErr := coord.Start(ctx); startErr != nil {
			return fmt.Errorf("starting coordinator for %s: %w", dev.ID, startErr)
		}
		coordinators = append(coordinators, coord)
	}
	defer stopCoordinators(coordinators, log)
	log.Info("polling coordinators started", "devices", len(coordinators))

	// Group command intake over MQTT
	intake := &commandIntake{
		ctx:        ctx,
		mqtt:       mqttClient,
		registry:   registry,
		resolver:   resolver,
		dispatcher: dispatcher,
		timeout:    cfg.Dispatch.MemberTimeout,
		logger:     log,
	}
	topics := mqtt.Topics{}
	if subErr := mqttClient.Subscribe(topics.AllGroupCommands(), byte(cfg.MQTT.QoS), intake.handle); subErr != nil {
		return fmt.Errorf("subscribing to group commands: %w", subErr)
	}
	log.Info("group command intake subscribed", "topic", topics.AllGroupCommands())

	// Periodic snapshot history pruning
	go pruneLoop(ctx, snapshots, log)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Polling coordinators
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Wavelink stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses WAVELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WAVELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// preloadSnapshots seeds the registry with the last persisted snapshot
// of each configured device, flagged stale until the first live refresh.
func preloadSnapshots(ctx context.Context, cfg *config.Config, registry *player.Registry, snapshots *player.SnapshotStore, log *logging.Logger) error {
	configured := make(map[string]struct{}, len(cfg.Devices))
	for _, dev := range cfg.Devices {
		configured[dev.ID] = struct{}{}
	}

	states, err := snapshots.LatestAll(ctx)
	if err != nil {
		return fmt.Errorf("loading latest snapshots: %w", err)
	}

	loaded := 0
	for _, s := range states {
		if _, ok := configured[s.ID]; !ok {
			continue
		}
		s.Stale = true
		registry.Upsert(s)
		loaded++
	}

	log.Info("snapshot preload complete", "loaded", loaded, "configured", len(configured))
	return nil
}

// stopCoordinators requests every coordinator to stop and waits for
// their loops to exit, bounded by coordinatorStopTimeout.
func stopCoordinators(coordinators []*poll.Coordinator, log *logging.Logger) {
	log.Info("stopping polling coordinators", "count", len(coordinators))
	for _, c := range coordinators {
		c.Stop()
	}

	deadline := time.After(coordinatorStopTimeout)
	for _, c := range coordinators {
		select {
		case <-c.Done():
		case <-deadline:
			log.Warn("timed out waiting for coordinators to stop")
			return
		}
	}
	log.Info("polling coordinators stopped")
}

// pruneLoop trims snapshot history on an interval until shutdown.
func pruneLoop(ctx context.Context, snapshots *player.SnapshotStore, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := snapshots.Prune(ctx, time.Now().Add(-snapshotRetention))
			if err != nil {
				log.Error("snapshot prune failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Debug("snapshot history pruned", "removed", removed)
			}
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// statePublisher mirrors refresh outcomes onto MQTT: state changes go
// to a retained per-player topic, refresh failures to an event topic.
type statePublisher struct {
	mqtt   *mqtt.Client
	logger *logging.Logger
}

// errorEventPayload is the wire shape of a player error event.
type errorEventPayload struct {
	PlayerID            string    `json:"player_id"`
	Error               string    `json:"error"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Stale               bool      `json:"stale"`
	Timestamp           time.Time `json:"timestamp"`
}

func (p *statePublisher) OnState(event poll.StateEvent) {
	payload, err := json.Marshal(event.State)
	if err != nil {
		p.logger.Error("encoding player state", "player_id", event.PlayerID, "error", err)
		return
	}

	topic := mqtt.Topics{}.PlayerState(event.PlayerID)
	if err := p.mqtt.PublishRetained(topic, payload); err != nil {
		p.logger.Warn("publishing player state", "player_id", event.PlayerID, "error", err)
	}
}

func (p *statePublisher) OnError(event poll.ErrorEvent) {
	payload, err := json.Marshal(errorEventPayload{
		PlayerID:            event.PlayerID,
		Error:               event.Err.Error(),
		ConsecutiveFailures: event.ConsecutiveFailures,
		Stale:               event.Stale,
		Timestamp:           time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("encoding player error event", "player_id", event.PlayerID, "error", err)
		return
	}

	topic := mqtt.Topics{}.PlayerError(event.PlayerID)
	if err := p.mqtt.PublishEvent(topic, payload); err != nil {
		p.logger.Warn("publishing player error event", "player_id", event.PlayerID, "error", err)
	}
}

// snapshotRecorder persists every state change to snapshot history.
type snapshotRecorder struct {
	store  *player.SnapshotStore
	logger *logging.Logger
}

func (r *snapshotRecorder) OnState(event poll.StateEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.Record(ctx, event.State); err != nil {
		r.logger.Error("recording player snapshot", "player_id", event.PlayerID, "error", err)
	}
}

func (r *snapshotRecorder) OnError(poll.ErrorEvent) {}

// telemetryRecorder forwards state changes to InfluxDB.
type telemetryRecorder struct {
	influx *influxdb.Client
}

func (t *telemetryRecorder) OnState(event poll.StateEvent) {
	t.influx.WritePlayerMetric(
		event.PlayerID,
		string(event.State.PlayState),
		event.State.Volume,
		event.State.Grouped(),
	)
}

func (t *telemetryRecorder) OnError(poll.ErrorEvent) {}

// newTopologyPublisher returns the resolver callback that mirrors group
// membership onto retained MQTT topics. Dissolved groups get an empty
// retained publish so the broker drops the old membership.
func newTopologyPublisher(client *mqtt.Client, log *logging.Logger) func(groups []grouping.Group) {
	var mu sync.Mutex
	published := make(map[string]struct{})

	topics := mqtt.Topics{}
	return func(groups []grouping.Group) {
		mu.Lock()
		defer mu.Unlock()

		current := make(map[string]struct{}, len(groups))
		for _, g := range groups {
			current[g.MasterID] = struct{}{}

			payload, err := json.Marshal(g)
			if err != nil {
				log.Error("encoding group membership", "master_id", g.MasterID, "error", err)
				continue
			}
			if err := client.PublishRetained(topics.GroupMembers(g.MasterID), payload); err != nil {
				log.Warn("publishing group membership", "master_id", g.MasterID, "error", err)
			}
		}

		for master := range published {
			if _, still := current[master]; still {
				continue
			}
			if err := client.PublishRetained(topics.GroupMembers(master), nil); err != nil {
				log.Warn("clearing group membership", "master_id", master, "error", err)
			}
		}
		published = current
	}
}

// commandIntake handles group commands arriving over MQTT.
//
// Commands are published to wavelink/command/group/{master} with a JSON
// body of {action, params}. The target group is resolved at receipt; if
// the master is currently ungrouped the command goes to it alone. The
// dispatch runs off the MQTT handler goroutine and its result is
// published to wavelink/result/{dispatch_id}.
type commandIntake struct {
	ctx        context.Context
	mqtt       *mqtt.Client
	registry   *player.Registry
	resolver   *grouping.Resolver
	dispatcher *dispatch.Dispatcher
	timeout    time.Duration
	logger     *logging.Logger
}

func (ci *commandIntake) handle(topic string, payload []byte) error {
	masterID := path.Base(topic)
	if masterID == "" || masterID == "+" {
		return fmt.Errorf("group command on malformed topic %q", topic)
	}

	var cmd dispatch.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding group command for %s: %w", masterID, err)
	}
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid group command for %s: %w", masterID, err)
	}

	group, ok := ci.resolver.GroupFor(masterID)
	if !ok {
		// Not currently grouped: command the player alone, if known.
		if _, err := ci.registry.Get(masterID); err != nil {
			return fmt.Errorf("group command for unknown player %s: %w", masterID, err)
		}
		group = grouping.Group{MasterID: masterID}
	}

	go func() {
		result := ci.dispatcher.Dispatch(ci.ctx, group, cmd, ci.timeout)

		out, err := json.Marshal(result)
		if err != nil {
			ci.logger.Error("encoding dispatch result", "dispatch_id", result.DispatchID, "error", err)
			return
		}
		resultTopic := mqtt.Topics{}.DispatchResult(result.DispatchID)
		if err := ci.mqtt.PublishEvent(resultTopic, out); err != nil {
			ci.logger.Warn("publishing dispatch result", "dispatch_id", result.DispatchID, "error", err)
		}
	}()

	return nil
}
