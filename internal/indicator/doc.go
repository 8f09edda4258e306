// Package indicator drives a single status output (usually an LED) as off,
// solid on, or blinking at a fixed period.
//
// The indicator never sleeps. The owner calls Tick from its loop with the
// current time and the blink cadence is derived from the differences between
// those timestamps, so a slow or stalled loop only delays edges and never
// blocks the caller.
//
// Drivers:
//
//   - LogOutput writes level changes to the debug log
//   - SysfsLED writes /sys/class/leds/<name>/brightness
//   - RecordingOutput keeps every write for tests
package indicator
