// Package logging provides structured logging for the iT600 daemon.
//
// It wraps the standard library's log/slog with:
//   - Configuration-driven format and level selection
//   - Default fields (service name, version) on every record
//   - Component-scoped child loggers via With
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("gateway connected", "mac", mac)
//
//	pollLogger := logger.With("component", "poller")
//	pollLogger.Debug("poll complete", "devices", n)
package logging
