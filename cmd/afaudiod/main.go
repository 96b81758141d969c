// afaudiod - Windows audio telemetry supervisor daemon
//
// afaudiod supervises a single af-win-audio executable: it spawns the
// process, streams its newline-delimited JSON snapshots, diffs them into
// change events, and fans those events out to MQTT, InfluxDB, SQLite change
// history, and WebSocket clients. Volume and mute commands flow back to the
// executable over its stdin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WebAFilippov/af-win-audio/internal/api"
	"github.com/WebAFilippov/af-win-audio/internal/history"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/config"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/database"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/influxdb"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/logging"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/mqtt"
	"github.com/WebAFilippov/af-win-audio/internal/monitor"
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

// uptimeReportInterval is how often process uptime is written to InfluxDB
// while the child is running.
const uptimeReportInterval = 30 * time.Second

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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting afaudiod",
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
	db, err := database.Open(ctx, database.Config{
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

	// Initialise change-history storage
	historyRepo := history.NewSQLiteRepository(db.DB)
	if initErr := historyRepo.Init(ctx); initErr != nil {
		return fmt.Errorf("initialising change history: %w", initErr)
	}
	log.Info("change history initialised")

	// Create the monitor
	mon := monitor.New(monitor.Config{
		Binary:          cfg.Monitor.Binary,
		Variant:         monitor.Variant(cfg.Monitor.Variant),
		PollDelay:       cfg.GetPollDelay(),
		VolumeStep:      cfg.Monitor.VolumeStep,
		GracefulTimeout: cfg.GetGracefulTimeout(),
		MaxFrameSize:    cfg.Monitor.MaxFrameSize,
	})
	mon.SetLogger(log.With("component", "monitor"))

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

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

	// WebSocket hub is created here so the event fan-out can broadcast
	// before the API server starts.
	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))

	// Wire monitor events to history, MQTT, InfluxDB, and WebSocket clients
	wireEvents(mon, historyRepo, mqttClient, influxClient, hub, log)

	// Subscribe to inbound MQTT commands
	if mqttClient != nil {
		if subErr := subscribeCommands(mqttClient, mon, log); subErr != nil {
			return fmt.Errorf("subscribing to command topic: %w", subErr)
		}
		log.Info("subscribed to command topic", "topic", mqtt.Topics{}.Command())
	}

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.With("component", "api"),
		Monitor:     mon,
		History:     historyRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Spawn the audio executable if configured to do so
	if cfg.Monitor.Autostart {
		if startErr := mon.Start(ctx); startErr != nil {
			return fmt.Errorf("starting audio process: %w", startErr)
		}
		log.Info("audio process started", "pid", mon.PID(), "binary", cfg.Monitor.Binary)
	} else {
		log.Info("autostart disabled, audio process idle")
	}

	// Periodic uptime telemetry
	if influxClient != nil {
		go reportUptime(ctx, mon, influxClient)
	}

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Stop the child process first so its final events still reach the
	// fan-out targets before they are closed by the defer chain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetGracefulTimeout()+2*time.Second)
	defer cancel()
	if shutdownErr := mon.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("error shutting down audio process", "error", shutdownErr)
	}

	log.Info("afaudiod stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AFAUDIO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AFAUDIO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// reportUptime periodically writes the child's uptime to InfluxDB while it
// is running.
func reportUptime(ctx context.Context, mon *monitor.Monitor, influxClient *influxdb.Client) {
	ticker := time.NewTicker(uptimeReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if mon.IsRunning() {
				influxClient.WriteProcessUptime(mon.PID(), mon.Uptime())
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
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
