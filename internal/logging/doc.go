// Package logging provides structured logging for the wifiprov daemon and CLI.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the provisioning code: state transitions, credential
// events and setup-page requests.
//
// # Log Levels
//
//   - Debug: HTTP requests, radio polls, indicator edges
//   - Info: state transitions, credential events, startup
//   - Warn: non-fatal faults (store write rejected, AP restart failed)
//   - Error: unexpected failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and WIFIPROV_LOG_LEVEL is unset, a no-op logger is
// installed so CLI commands stay quiet.
//
// # Secrets
//
// LogCredentialEvent never writes the submitted secret; only its byte length
// is recorded.
package logging
