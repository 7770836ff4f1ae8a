// Doorlatch - keypad door access controller
//
// This is the main entry point for the Doorlatch service. Doorlatch sits
// between a door keypad and an electric strike: keypads POST entered PINs
// for a grant/deny decision, admins manage the PIN and account sets over
// an authenticated REST API, and every decision lands in an audit log.
// Decisions can optionally be announced over MQTT for a relay controller.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nrowsell/doorlatch/migrations"

	"github.com/nrowsell/doorlatch/internal/access"
	"github.com/nrowsell/doorlatch/internal/api"
	"github.com/nrowsell/doorlatch/internal/audit"
	"github.com/nrowsell/doorlatch/internal/credential"
	"github.com/nrowsell/doorlatch/internal/infrastructure/config"
	"github.com/nrowsell/doorlatch/internal/infrastructure/database"
	"github.com/nrowsell/doorlatch/internal/infrastructure/logging"
	"github.com/nrowsell/doorlatch/internal/infrastructure/mqtt"
	"github.com/nrowsell/doorlatch/internal/ratelimit"
	"github.com/nrowsell/doorlatch/internal/session"
	"github.com/nrowsell/doorlatch/internal/store"
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
	log.Info("starting Doorlatch",
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

	// Build repositories and the hasher
	pinRepo := store.NewPinRepository(db.DB)
	adminRepo := store.NewAdminRepository(db.DB)
	hasher := credential.New(credential.Params{
		Time:    uint32(cfg.Security.Hasher.Time),
		Memory:  uint32(cfg.Security.Hasher.Memory),
		Threads: uint8(cfg.Security.Hasher.Threads),
	})

	// Seed the first admin account so a fresh install is reachable
	if _, seedErr := store.SeedAdmin(ctx, adminRepo, hasher,
		cfg.Security.Bootstrap.Username, cfg.Security.Bootstrap.Password, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Session authority: opaque server-side tokens or signed JWTs
	authority, err := buildAuthority(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info("session authority ready", "mode", cfg.Security.Session.Mode, "ttl", cfg.GetSessionTTL())

	// Login rate limiter with background eviction
	limiter := ratelimit.New(ratelimit.Config{
		Window:      cfg.GetRateLimitWindow(),
		MaxAttempts: cfg.Security.RateLimit.MaxAttempts,
	})
	go limiter.Run(ctx)

	// Optional MQTT announcer for the door relay controller
	var announcer access.Announcer
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
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
		announcer = mqttClient
	} else {
		log.Info("MQTT announcer disabled")
	}

	// Assemble the access service
	service := access.NewService(access.Deps{
		Pins:      pinRepo,
		Admins:    adminRepo,
		Hasher:    hasher,
		Authority: authority,
		Limiter:   limiter,
		Recorder:  audit.NewSQLiteRecorder(db.DB),
		Announcer: announcer,
		Logger:    log,
	})

	// Start the API server
	server, err := api.New(api.Deps{
		Config:  cfg.Server,
		Logger:  log,
		Service: service,
		DB:      db,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)
	// 3. Database

	log.Info("Doorlatch stopped")
	return nil
}

// buildAuthority constructs the configured session authority.
// Memory mode also starts its expiry sweep in the background.
func buildAuthority(ctx context.Context, cfg *config.Config) (session.Authority, error) {
	switch cfg.Security.Session.Mode {
	case config.SessionModeJWT:
		return session.NewJWT(cfg.Security.Session.Secret, cfg.GetSessionTTL()), nil
	case config.SessionModeMemory:
		authority := session.NewMemory(cfg.GetSessionTTL())
		go authority.Run(ctx)
		return authority, nil
	default:
		return nil, fmt.Errorf("unknown session mode %q", cfg.Security.Session.Mode)
	}
}

// getConfigPath returns the configuration file path.
// Uses DOORLATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOORLATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
