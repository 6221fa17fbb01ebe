// Pool Bridge - pool equipment to home automation bridge
//
// This is the main entry point for the pool bridge. It discovers the
// equipment behind a ConnectMyPool controller, keeps a local view of its
// state by polling, and exposes every device over MQTT and a REST API.
//
// For the topic layout, see: internal/bridges/accessory/doc.go
// For the HTTP routes, see: internal/api/doc.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"

	_ "github.com/nerrad567/poolbridge/migrations"

	"github.com/nerrad567/poolbridge/internal/api"
	"github.com/nerrad567/poolbridge/internal/astro"
	"github.com/nerrad567/poolbridge/internal/bridges/accessory"
	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/engine"
	"github.com/nerrad567/poolbridge/internal/infrastructure/config"
	"github.com/nerrad567/poolbridge/internal/infrastructure/database"
	"github.com/nerrad567/poolbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/poolbridge/internal/infrastructure/logging"
	"github.com/nerrad567/poolbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/poolbridge/internal/poolapi"
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

// envPrefix namespaces the environment variables read for command line flags.
const envPrefix = "POOLBRIDGE"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command line settings layered over the config file.
type options struct {
	configPath   string
	logLevel     string
	pollInterval time.Duration
}

// parseFlags reads flags from args, falling back to POOLBRIDGE_* environment
// variables (POOLBRIDGE_CONFIG, POOLBRIDGE_LOG_LEVEL, POOLBRIDGE_POLL_INTERVAL).
func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("poolbridge", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "path to the YAML configuration file")
	fs.StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	fs.DurationVar(&opts.pollInterval, "poll-interval", 0, "override pool.poll_interval_ms, e.g. 10s")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(envPrefix)); err != nil {
		return options{}, fmt.Errorf("parsing flags: %w", err)
	}
	return opts, nil
}

// loadConfig loads the config file and applies flag overrides on top.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	overridden := false
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
		overridden = true
	}
	if opts.pollInterval != 0 {
		cfg.Pool.PollIntervalMS = int(opts.pollInterval / time.Millisecond)
		overridden = true
	}
	if overridden {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validating overrides: %w", err)
		}
	}
	return cfg, nil
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, args []string) error {
	log := logging.Default()
	log.Info("starting pool bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "path", opts.configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(cfg.Database)
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	applied, _, err := db.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	log.Info("database migrations complete", "applied", len(applied))

	// Remote controller client
	scale := poolapi.Celsius
	if cfg.UsesFahrenheit() {
		scale = poolapi.Fahrenheit
	}
	poolClient, err := poolapi.NewClient(poolapi.Options{
		BaseURL: cfg.Pool.BaseURL,
		APIKey:  cfg.Pool.APIKey,
		Scale:   scale,
		Timeout: cfg.RequestTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating pool API client: %w", err)
	}

	registry := device.NewRegistry()
	registry.SetLogger(log)
	sun := astro.Sun{Latitude: cfg.Site.Location.Latitude, Longitude: cfg.Site.Location.Longitude}
	if !sun.Known() {
		log.Warn("site location not configured, solar heating treats every hour as daytime")
	}

	// Connect to InfluxDB (optional)
	var metrics engine.Metrics
	influxClient, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		influxClient = nil
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		metrics = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// State sinks are collected before the engine starts; the MQTT bridge
	// joins once the dispatcher it depends on exists.
	hub := api.NewHub(cfg.WebSocket, log, sun)
	go hub.Run(ctx)
	sinks := engine.Sinks{hub}

	poller, err := engine.NewPoller(engine.PollerOptions{
		Source:   poolClient,
		Registry: registry,
		Sink:     &sinks,
		Interval: cfg.PollInterval(),
		Logger:   log,
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("creating poller: %w", err)
	}
	defer func() {
		log.Info("stopping poller")
		poller.Stop()
	}()

	dispatcher, err := engine.NewDispatcher(engine.DispatcherOptions{
		Source:   poolClient,
		Registry: registry,
		Sink:     &sinks,
		Logger:   log,
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

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

		bridge, bridgeErr := accessory.NewBridge(accessory.BridgeOptions{
			MQTTClient: mqttClient,
			Dispatcher: dispatcher,
			Daylight:   sun,
			Poller:     poller,
			BridgeID:   cfg.Site.ID,
			Version:    version,
			Logger:     log,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating accessory bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting accessory bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping accessory bridge")
			bridge.Stop()
		}()
		sinks = append(sinks, bridge)
	} else {
		log.Info("MQTT disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	report, err := engine.Bootstrap(ctx, engine.BootstrapOptions{
		Source:   poolClient,
		Registry: registry,
		Store:    device.NewSQLiteRepository(db.DB),
		Sink:     &sinks,
		Scale:    scale,
		Poller:   poller,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("bootstrapping devices: %w", err)
	}
	log.Info("devices registered",
		"devices", report.Registered,
		"stale", len(report.Stale),
		"poll_interval", poller.Interval(),
	)

	// Start REST API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Security:   cfg.Security,
			Logger:     log,
			Registry:   registry,
			Dispatcher: dispatcher,
			Poller:     poller,
			Daylight:   sun,
			Hub:        hub,
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("REST API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: API, bridge, MQTT, poller, InfluxDB, database.

	log.Info("pool bridge stopped")
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
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
