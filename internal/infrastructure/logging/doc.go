// Package logging provides structured logging for graydb.
//
// This package wraps Go's standard log/slog package so every component
// logs the same way.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Component-scoped child loggers
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	p, err := pool.New(mgr, poolCfg, pool.WithLogger(logger.Component("pool")))
//
// # Security
//
// Never log raw connection URIs. Use ConnectOptions.Redacted or
// driver.Redact, which mask passwords and tokens.
package logging
