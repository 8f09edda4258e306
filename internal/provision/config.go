package provision

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/juju/clock"

	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/indicator"
)

// SubmitPolicy decides what happens after accepted credentials are saved.
type SubmitPolicy string

const (
	// SubmitReconnect starts a new attempt in the running session.
	SubmitReconnect SubmitPolicy = "reconnect"
	// SubmitRestart stops the machine with ErrRestartRequested so the
	// supervisor restarts the process into the new configuration.
	SubmitRestart SubmitPolicy = "restart"
)

// DualMode decides whether the setup network survives a station connection.
type DualMode string

const (
	// KeepAccessPoint leaves the setup network up while connected.
	KeepAccessPoint DualMode = "keep-ap"
	// TeardownAccessPoint stops the setup network once connected. It comes
	// back on the next failed or new attempt.
	TeardownAccessPoint DualMode = "teardown-ap"
)

// ParseSubmitPolicy accepts "reconnect" or "restart". Empty means reconnect.
func ParseSubmitPolicy(s string) (SubmitPolicy, error) {
	switch p := SubmitPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return SubmitReconnect, nil
	case SubmitReconnect, SubmitRestart:
		return p, nil
	default:
		return "", fmt.Errorf("unknown submit policy %q (want reconnect or restart)", s)
	}
}

// ParseDualMode accepts "keep-ap" or "teardown-ap". Empty means keep-ap.
func ParseDualMode(s string) (DualMode, error) {
	switch m := DualMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return KeepAccessPoint, nil
	case KeepAccessPoint, TeardownAccessPoint:
		return m, nil
	default:
		return "", fmt.Errorf("unknown dual mode %q (want keep-ap or teardown-ap)", s)
	}
}

// Config holds the machine's policies and timing.
type Config struct {
	SetupSSID       string
	SetupPassphrase string

	// Retry budget: MaxPolls status polls PollInterval apart.
	PollInterval time.Duration
	MaxPolls     int

	// LoopInterval is how often Run steps the machine.
	LoopInterval time.Duration
	BlinkPeriod  time.Duration

	SubmitPolicy SubmitPolicy
	DualMode     DualMode

	// Clock drives Run. Nil means the wall clock.
	Clock clock.Clock
}

// DefaultConfig returns the stock setup network and a 20 x 500ms budget.
func DefaultConfig() Config {
	return Config{
		SetupSSID:       "SetupNetwork",
		SetupPassphrase: "password123",
		PollInterval:    500 * time.Millisecond,
		MaxPolls:        20,
		LoopInterval:    50 * time.Millisecond,
		BlinkPeriod:     DefaultBlinkPeriod,
		SubmitPolicy:    SubmitReconnect,
		DualMode:        KeepAccessPoint,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SetupSSID == "" {
		c.SetupSSID = d.SetupSSID
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = d.MaxPolls
	}
	if c.LoopInterval <= 0 {
		c.LoopInterval = d.LoopInterval
	}
	if c.BlinkPeriod <= 0 {
		c.BlinkPeriod = d.BlinkPeriod
	}
	if c.SubmitPolicy == "" {
		c.SubmitPolicy = d.SubmitPolicy
	}
	if c.DualMode == "" {
		c.DualMode = d.DualMode
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	return c
}

// Budget is the wall-clock span of one attempt.
func (c Config) Budget() time.Duration {
	return time.Duration(c.MaxPolls) * c.PollInterval
}

// ModeFor maps s to an indicator mode using the configured blink period.
func (c Config) ModeFor(s State) indicator.Mode {
	period := c.BlinkPeriod
	if period <= 0 {
		period = DefaultBlinkPeriod
	}
	return modeFor(s, period)
}

// ValidateCredentials checks a submitted pair: both fields non-empty, at most
// credstore.FieldSize bytes, no NUL bytes.
func ValidateCredentials(network, secret string) error {
	if err := checkField("network", network); err != nil {
		return err
	}
	return checkField("secret", secret)
}

func checkField(name, value string) error {
	switch {
	case value == "":
		return &ConfigError{Field: name, Reason: "must not be empty"}
	case len(value) > credstore.FieldSize:
		return &ConfigError{Field: name, Reason: fmt.Sprintf("must be at most %d bytes, got %d", credstore.FieldSize, len(value))}
	case strings.IndexByte(value, 0) >= 0:
		return &ConfigError{Field: name, Reason: "must not contain NUL bytes"}
	case !utf8.ValidString(value):
		return &ConfigError{Field: name, Reason: "must be valid UTF-8"}
	}
	return nil
}
