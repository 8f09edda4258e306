package indicator

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// LogOutput reports level changes through the structured logger. It is the
// default driver on hosts without an LED.
type LogOutput struct {
	Name string
}

// Set implements Output.
func (o LogOutput) Set(on bool) {
	logging.Debug("Indicator level", zap.String("led", o.Name), zap.Bool("on", on))
}

// DefaultLEDRoot is where the kernel exposes LED class devices.
const DefaultLEDRoot = "/sys/class/leds"

// SysfsLED drives a Linux LED class device by writing its brightness
// attribute.
type SysfsLED struct {
	path string
	max  []byte

	mu      sync.Mutex
	lastErr error
}

// OpenSysfsLED returns a driver for the LED called name under root. The LED
// must already exist; its max_brightness is used as the "on" value when
// readable.
func OpenSysfsLED(root, name string) (*SysfsLED, error) {
	if name == "" {
		return nil, errors.New("led name is required")
	}
	if root == "" {
		root = DefaultLEDRoot
	}

	dir := filepath.Join(root, name)
	brightness := filepath.Join(dir, "brightness")
	if _, err := os.Stat(brightness); err != nil {
		return nil, fmt.Errorf("led %q not available: %w", name, err)
	}

	on := []byte("1")
	if raw, err := os.ReadFile(filepath.Join(dir, "max_brightness")); err == nil {
		if v := bytes.TrimSpace(raw); len(v) > 0 {
			on = v
		}
	}

	return &SysfsLED{path: brightness, max: on}, nil
}

// Set implements Output. Write errors are logged once per distinct error so a
// missing LED does not flood the log from every tick.
func (l *SysfsLED) Set(on bool) {
	value := []byte("0")
	if on {
		value = l.max
	}

	err := os.WriteFile(l.path, value, 0644)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil && (l.lastErr == nil || l.lastErr.Error() != err.Error()) {
		logging.Warn("Failed to drive LED", zap.String("path", l.path), zap.Error(err))
	}
	l.lastErr = err
}

// Path returns the brightness attribute path.
func (l *SysfsLED) Path() string {
	return l.path
}

// RecordingOutput remembers every level written to it.
type RecordingOutput struct {
	mu     sync.Mutex
	levels []bool
}

// Set implements Output.
func (r *RecordingOutput) Set(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, on)
}

// Levels returns a copy of the recorded writes in order.
func (r *RecordingOutput) Levels() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.levels))
	copy(out, r.levels)
	return out
}

// Last returns the most recent level and whether anything was written.
func (r *RecordingOutput) Last() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.levels) == 0 {
		return false, false
	}
	return r.levels[len(r.levels)-1], true
}
