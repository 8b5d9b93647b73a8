package main

import (
	"fmt"
	"os"
	"time"

	"pixivsync/pkg/auth"
	"pixivsync/pkg/config"
	"pixivsync/pkg/logger"
	"pixivsync/pkg/pixiv"
	"pixivsync/pkg/ratelimit"
	"pixivsync/pkg/retry"
	"pixivsync/pkg/syncdb"
)

// loadConfig loads configuration and initializes the global logger. Exits on
// failure since nothing can proceed without valid configuration.
func loadConfig() *config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// openStore opens the sync database. A corrupt database aborts the run
// before any mutation.
func openStore(cfg *config.Config) *syncdb.Store {
	db, err := syncdb.Open(cfg.Sync.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open sync database")
	}
	return db
}

// saveStore persists the database with backup rotation.
func saveStore(cfg *config.Config, db *syncdb.Store) {
	if err := db.Save(cfg.Sync.MaxBackups); err != nil {
		logger.WithError(err).Error("Failed to save sync database")
	}
}

// newClientUnauthenticated builds a Pixiv client without any token lookup,
// for flows that bring their own refresh token.
func newClientUnauthenticated(cfg *config.Config) *pixiv.Client {
	log := logger.GetLogger()
	client := pixiv.NewClient(cfg.Download.Timeout, cfg.Pixiv.UserAgent, log)
	client.SetRateLimiter(ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute))
	client.SetRetryConfig(&retry.Config{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Multiplier:   cfg.Retry.Multiplier,
		Logger:       log,
	})
	return client
}

// newClient builds the Pixiv client and authenticates it when a refresh
// token is available. Precedence: configuration (including environment),
// then the token stored in the database, then the credential manager.
// Without a token the client stays unauthenticated and bookmark discovery is
// skipped with a warning.
func newClient(cfg *config.Config, db *syncdb.Store) *pixiv.Client {
	log := logger.GetLogger()
	client := newClientUnauthenticated(cfg)

	refreshToken := cfg.Pixiv.RefreshToken
	if refreshToken == "" {
		if token := db.Token(); token != nil {
			refreshToken = token.RefreshToken
		}
	}
	if refreshToken == "" {
		if manager, err := auth.NewManager(); err == nil {
			if account, err := manager.RetrieveDefault(); err == nil {
				refreshToken = account.RefreshToken
				log.WithField("account", account.Username).Info("Using stored credentials")
			}
		}
	}

	if refreshToken == "" {
		log.Warn("No refresh token configured, proceeding unauthenticated")
		return client
	}

	token, err := client.Authenticate(refreshToken)
	if err != nil {
		log.WithError(err).Warn("Authentication failed, proceeding unauthenticated")
		return client
	}
	db.SetToken(*token)

	return client
}
