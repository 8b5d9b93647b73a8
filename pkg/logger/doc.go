// Package logger provides structured logging for pixivsync.
//
// It wraps the zerolog library behind a small Logger interface with support
// for leveled logging, structured fields, pretty console output and optional
// file output. A global instance is initialized once from the logging
// configuration and shared across the process.
//
// Basic Usage:
//
//	cfg := &config.LoggingConfig{Level: "info"}
//	err := logger.Initialize(cfg)
//
//	logger.Info("sync started")
//	logger.WithField("author_id", "12345").Info("pulling illusts")
//	logger.WithError(err).Error("failed to save sync database")
package logger
