// IronPin Core - Industrial I/O Controller Runtime
//
// This is the main entry point for the IronPin Core application.
// IronPin is a virtual-pin I/O controller runtime designed for:
//   - Deterministic tick-driven pin supervision
//   - Daisy-chained multi-unit installations over MQTT
//   - Plug-in expansion modules (relay, AIO, TC, PT)
//   - Offline-first operation with local persistence
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	_ "github.com/orehall/ironpin-core/migrations"

	"github.com/orehall/ironpin-core/internal/engine"
	"github.com/orehall/ironpin-core/internal/hal"
	"github.com/orehall/ironpin-core/internal/infrastructure/config"
	"github.com/orehall/ironpin-core/internal/infrastructure/database"
	"github.com/orehall/ironpin-core/internal/infrastructure/influxdb"
	"github.com/orehall/ironpin-core/internal/infrastructure/logging"
	"github.com/orehall/ironpin-core/internal/infrastructure/mqtt"
	"github.com/orehall/ironpin-core/internal/periph"
	"github.com/orehall/ironpin-core/internal/topology"
	"github.com/orehall/ironpin-core/internal/uservars"
	"github.com/orehall/ironpin-core/internal/vpin"
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
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()

	// Boot session ID ties log lines and status payloads from one boot
	// together across restarts.
	session := uuid.NewString()
	log.Info("starting IronPin Core",
		"version", version,
		"commit", commit,
		"build_date", date,
		"session", session,
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

	// Bring up the hardware adapter bundle
	hw, err := buildHardware(cfg.Controller, log)
	if err != nil {
		return fmt.Errorf("initialising hardware: %w", err)
	}

	// Discover expansion modules on the bus
	modules := topology.NewManager(hw.Bus)
	modules.SetLogger(log)
	moduleRepo := topology.NewSQLiteModuleRepository(db.DB)

	if discoverErr := modules.Discover(ctx); discoverErr != nil {
		// Fall back to the last persisted table so a flaky bus at boot
		// doesn't orphan every expansion pin config.
		log.Warn("module discovery failed, restoring persisted table", "error", discoverErr)
		records, loadErr := moduleRepo.LoadTable(ctx)
		if loadErr != nil {
			return fmt.Errorf("module discovery failed and no persisted table: %w", loadErr)
		}
		modules.Restore(records)
	} else if saveErr := moduleRepo.SaveTable(ctx, modules.Table()); saveErr != nil {
		log.Error("persisting module table", "error", saveErr)
	}
	log.Info("module table ready", "modules", len(modules.Table()))

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge = mqtt.NewBridge(mqttClient, cfg.Controller.ID, vpin.UnitRole(cfg.Controller.Role))
	} else {
		log.Info("MQTT disabled, running standalone")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var recorder *influxdb.Recorder
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = influxdb.NewRecorder(influxClient, cfg.Controller.ID)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the pin engine
	opts := engine.Options{
		Hardware:   hw,
		Role:       vpin.UnitRole(cfg.Controller.Role),
		TickPeriod: cfg.TickPeriod(),
		Modules:    modules,
		Repository: engine.NewSQLiteConfigRepository(db.DB),
		Logger:     log,
	}
	if bridge != nil {
		opts.Publisher = bridge
	}
	if recorder != nil {
		opts.Recorder = recorder
	}
	eng, err := engine.New(opts)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	if restoreErr := eng.RestoreConfigs(ctx); restoreErr != nil {
		return fmt.Errorf("restoring pin configs: %w", restoreErr)
	}
	log.Info("pin configs restored")

	// User variable bank
	var varPub uservars.Publisher
	if bridge != nil {
		varPub = bridge
	}
	bank := uservars.NewBank(varPub, uservars.NewSQLiteRepository(db.DB))
	bank.SetLogger(log)
	if restoreErr := bank.Restore(ctx); restoreErr != nil {
		return fmt.Errorf("restoring user variables: %w", restoreErr)
	}
	log.Info("user variables restored")

	// Wire the MQTT surface now that engine and bank exist
	if bridge != nil {
		if err := bridge.ListenCommands(eng); err != nil {
			return fmt.Errorf("subscribing to pin commands: %w", err)
		}
		if err := bridge.ListenPeerStates(eng); err != nil {
			return fmt.Errorf("subscribing to peer states: %w", err)
		}
		if err := bridge.ListenVarCommands(bank); err != nil {
			return fmt.Errorf("subscribing to var commands: %w", err)
		}
		bridge.PublishModuleTable(modules.Table())
	}

	// Open the auxiliary serial port (optional)
	if cfg.Serial.Enabled {
		serialCfg := periph.SerialConfig{
			Device: cfg.Serial.Device,
			Mode:   periph.SerialMode(cfg.Serial.Mode),
			Baud:   cfg.Serial.Baud,
		}
		port, serialErr := periph.OpenSerial(serialCfg)
		if serialErr != nil {
			return fmt.Errorf("opening serial port: %w", serialErr)
		}
		defer func() {
			log.Info("closing serial port")
			if closeErr := port.Close(); closeErr != nil {
				log.Error("error closing serial port", "error", closeErr)
			}
		}()
		log.Info("serial port open",
			"device", cfg.Serial.Device,
			"mode", cfg.Serial.Mode,
			"baud", serialCfg.Baud,
		)
	}

	// Validate the CAN interface settings (optional)
	if cfg.CAN.Enabled {
		canCfg := periph.CANConfig{
			Interface: cfg.CAN.Interface,
			Bitrate:   cfg.CAN.Bitrate,
		}
		if canErr := canCfg.Validate(); canErr != nil {
			return fmt.Errorf("validating CAN config: %w", canErr)
		}
		log.Info("CAN interface configured",
			"interface", canCfg.Interface,
			"bitrate", canCfg.Bitrate,
		)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Start the supervisor loop
	engineErr := make(chan error, 1)
	go func() {
		engineErr <- eng.Run(ctx)
	}()
	log.Info("supervisor running", "tick_ms", cfg.Controller.TickMs)

	// Forward queued remote writes to sibling units after each tick
	if bridge != nil {
		go forwardOutbound(ctx, eng, bridge, cfg.TickPeriod())
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
		if runErr := <-engineErr; runErr != nil {
			log.Error("supervisor stopped with error", "error", runErr)
		}
	case runErr := <-engineErr:
		if runErr != nil {
			return fmt.Errorf("supervisor: %w", runErr)
		}
	}

	log.Info("IronPin Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IRONPIN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IRONPIN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildHardware assembles the adapter bundle for this unit.
//
// The simulator is the only adapter set linked into this binary; board
// adapter sets are built and linked per target. Refusing to start with
// simulate=false is deliberate: silently running a plant controller
// against simulated I/O would be worse than failing loudly.
func buildHardware(cfg config.ControllerConfig, log *logging.Logger) (*hal.Context, error) {
	revision := hal.Revision(cfg.Revision)
	if !revision.IsValid() {
		return nil, fmt.Errorf("unknown hardware revision %q", cfg.Revision)
	}

	if !cfg.Simulate {
		return nil, fmt.Errorf("no board adapters linked into this binary; set controller.simulate=true")
	}

	hw, _ := hal.NewSimContext(revision)
	log.Info("hardware simulator initialised", "revision", cfg.Revision)
	return hw, nil
}

// forwardOutbound drains the engine's remote write queue once per tick
// and publishes each write to its owning unit.
func forwardOutbound(ctx context.Context, eng *engine.Engine, bridge *mqtt.Bridge, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if writes := eng.DrainOutbound(); len(writes) > 0 {
				bridge.ForwardOutbound(writes)
			}
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
