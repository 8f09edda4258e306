// Package ui renders terminal output for the wifiprov CLI.
//
// Most commands use the run-once components: a Printer writes headers,
// result boxes and status cards built with Lipgloss and exits. The watch
// command uses WatchModel, a Bubble Tea model fed with SnapshotMsg values
// from the device's live status feed.
//
// Logging is controlled by WIFIPROV_LOG_LEVEL. When unset, zap stays silent
// so the styled output is not interleaved with log lines.
package ui
