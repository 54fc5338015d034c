// it600d - Salus iT600 gateway daemon
//
// it600d speaks the encrypted local protocol of a Salus iT600 universal
// gateway (UGE600/UG600), polls its device registry, and republishes
// decoded device state over MQTT. Accepted MQTT commands are written back
// to the gateway. State snapshots are recorded in SQLite, and climate,
// sensor, and energy readings are optionally forwarded to InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/it600-go/it600/internal/bridge"
	"github.com/it600-go/it600/internal/gateway"
	"github.com/it600-go/it600/internal/history"
	"github.com/it600-go/it600/internal/infrastructure/config"
	"github.com/it600-go/it600/internal/infrastructure/database"
	"github.com/it600-go/it600/internal/infrastructure/influxdb"
	"github.com/it600-go/it600/internal/infrastructure/logging"
	"github.com/it600-go/it600/internal/infrastructure/mqtt"
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

// Gateway connection retries at startup. The gateway firmware drops
// requests while it is still booting, so a couple of retries papers over
// daemon and gateway coming up together after a power cut.
const (
	connectAttempts = 3
	connectBackoff  = 5 * time.Second
)

// How often expired state history rows are pruned.
const pruneInterval = 24 * time.Hour

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting it600d",
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

	// Every state observation leaves the daemon over MQTT, so there is no
	// useful mode without a broker.
	if !cfg.MQTT.Enabled {
		return fmt.Errorf("mqtt.enabled must be true: it600d publishes all device state over MQTT")
	}

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

	historyRepo := history.NewSQLiteRepository(db.DB)

	// Connect to the gateway. Connect verifies reachability and that the
	// configured EUID decrypts the gateway's responses.
	gw := gateway.New(gateway.Config{
		Host:           cfg.Gateway.Host,
		Port:           cfg.Gateway.Port,
		EUID:           cfg.Gateway.EUID,
		RequestTimeout: cfg.GetRequestTimeout(),
		Logger:         log,
		Debug:          cfg.Gateway.Debug,
	})
	defer func() {
		log.Info("closing gateway client")
		gw.Close()
	}()

	mac, err := connectGateway(ctx, gw, log)
	if err != nil {
		return fmt.Errorf("connecting to gateway: %w", err)
	}
	log.Info("gateway connected",
		"host", cfg.Gateway.Host,
		"mac", mac,
	)

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

	// Set up MQTT logging callbacks
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var telemetry bridge.Telemetry
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
		telemetry = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Wire the bridge: poll cycle publishing plus command dispatch
	br, err := bridge.New(bridge.Config{
		Gateway:   gw,
		Bus:       mqttClient,
		History:   historyRepo,
		Telemetry: telemetry,
		Logger:    log,
		QoS:       byte(cfg.MQTT.QoS),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if startErr := br.Start(ctx); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	log.Info("bridge started", "poll_interval", cfg.GetPollInterval())

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Publish initial state before settling into the poll loop
	if pollErr := pollCycle(ctx, br, cfg.GetPollInterval()); pollErr != nil {
		log.Warn("initial poll failed", "error", pollErr)
	}

	log.Info("initialisation complete, polling")

	pollLoop(ctx, cfg, br, historyRepo, log)

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. MQTT
	// 3. Gateway client
	// 4. Database

	log.Info("it600d stopped")
	return nil
}

// pollLoop polls the gateway on the configured interval and prunes expired
// state history once a day. It returns when ctx is cancelled.
func pollLoop(ctx context.Context, cfg *config.Config, br *bridge.Bridge, repo history.Repository, log *logging.Logger) {
	interval := cfg.GetPollInterval()
	retention := cfg.GetHistoryRetention()

	poll := time.NewTicker(interval)
	defer poll.Stop()
	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-poll.C:
			if err := pollCycle(ctx, br, interval); err != nil {
				log.Warn("poll failed", "error", err)
			}

		case <-prune.C:
			if retention <= 0 {
				continue
			}
			pruned, err := repo.PruneHistory(ctx, retention)
			if err != nil {
				log.Error("pruning state history", "error", err)
				continue
			}
			if pruned > 0 {
				log.Info("pruned state history", "rows", pruned)
			}
		}
	}
}

// pollCycle runs one bridge poll bounded by the poll interval, so a hung
// gateway request cannot stack cycles behind it.
func pollCycle(ctx context.Context, br *bridge.Bridge, interval time.Duration) error {
	cycleCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()
	return br.PollOnce(cycleCtx)
}

// connectGateway attempts the initial gateway handshake, retrying a few
// times before giving up.
//
// Returns:
//   - string: The gateway's LAN MAC address
//   - error: Last connection error after all attempts, or ctx error
func connectGateway(ctx context.Context, gw *gateway.Client, log *logging.Logger) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		mac, err := gw.Connect(ctx)
		if err == nil {
			return mac, nil
		}
		lastErr = err
		if attempt < connectAttempts {
			log.Warn("gateway connection failed, retrying",
				"attempt", attempt,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(connectBackoff):
			}
		}
	}
	return "", lastErr
}

// getConfigPath returns the configuration file path.
// Uses IT600_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IT600_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
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

	// Gateway health is verified during Connect, and every poll cycle
	// republishes the gateway status topic.

	return nil
}
