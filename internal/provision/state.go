package provision

import (
	"time"

	"github.com/muurk/wifiprov/internal/indicator"
)

// State is the provisioning state owned by a Machine.
type State string

const (
	// AccessPointOnly: the setup network is up and no station attempt is
	// running. Entered on every boot.
	AccessPointOnly State = "access_point_only"
	// ConnectingStation: a bounded join attempt is in progress.
	ConnectingStation State = "connecting_station"
	// StationConnected: the radio reported a connection within budget.
	StationConnected State = "station_connected"
	// StationFailed: the last attempt ran out of budget or was refused. The
	// setup network is up again and new credentials are awaited.
	StationFailed State = "station_failed"
)

// DefaultBlinkPeriod is the blink period used while connecting.
const DefaultBlinkPeriod = 500 * time.Millisecond

// ModeFor maps a state to its indicator mode using DefaultBlinkPeriod.
func ModeFor(s State) indicator.Mode {
	return modeFor(s, DefaultBlinkPeriod)
}

func modeFor(s State, blink time.Duration) indicator.Mode {
	switch s {
	case AccessPointOnly, StationConnected:
		return indicator.Solid
	case ConnectingStation:
		return indicator.Blink(blink)
	default:
		return indicator.Off
	}
}

// ReadyForCredentials reports whether the setup page should invite a new
// submission.
func (s State) ReadyForCredentials() bool {
	return s == AccessPointOnly || s == StationFailed
}

// LinkStatus is the radio's station link as seen by a non-blocking poll.
type LinkStatus int

const (
	LinkIdle LinkStatus = iota
	LinkConnecting
	LinkConnected
	LinkFailed
)

func (s LinkStatus) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	case LinkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of a Machine, safe to hand to other
// goroutines.
type Snapshot struct {
	State               State     `json:"state"`
	AccessPointActive   bool      `json:"access_point_active"`
	HasCredentials      bool      `json:"has_credentials"`
	Network             string    `json:"network,omitempty"`
	Polls               int       `json:"polls"`
	MaxPolls            int       `json:"max_polls"`
	Indicator           string    `json:"indicator"`
	LastError           string    `json:"last_error,omitempty"`
	StoreError          string    `json:"store_error,omitempty"`
	ReadyForCredentials bool      `json:"ready_for_credentials"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// sameAs compares everything except the timestamp.
func (s Snapshot) sameAs(o Snapshot) bool {
	s.UpdatedAt = time.Time{}
	o.UpdatedAt = time.Time{}
	return s == o
}
