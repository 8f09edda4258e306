package provision

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// Radio is the platform network stack. Status must not block: it reports
// the link as it stands right now.
type Radio interface {
	StartAccessPoint(ssid, passphrase string) error
	StopAccessPoint() error
	Join(network, secret string) error
	Status() LinkStatus
}

// ErrRadioOff is returned by SimulatedRadio when it has been switched off.
var ErrRadioOff = errors.New("radio is off")

// SimulatedRadio is an in-process Radio. Joining a known network with the
// right secret connects after a configurable number of status polls, a wrong
// secret fails after the same number of polls, and an unknown network never
// connects.
type SimulatedRadio struct {
	mu sync.Mutex

	networks     map[string]string
	connectAfter int
	off          bool

	apSSID   string
	apActive bool

	target   string
	outcome  LinkStatus
	link     LinkStatus
	polls    int
	joins    int
	apStarts int
	apStops  int
}

// NewSimulatedRadio returns a radio that settles connectAfter polls after a
// join. Values below 1 settle on the first poll.
func NewSimulatedRadio(connectAfter int) *SimulatedRadio {
	if connectAfter < 1 {
		connectAfter = 1
	}
	return &SimulatedRadio{
		networks:     make(map[string]string),
		connectAfter: connectAfter,
	}
}

// AddNetwork makes a network visible to the radio.
func (r *SimulatedRadio) AddNetwork(name, secret string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[name] = secret
}

// SetConnectAfter changes the settle delay for future joins.
func (r *SimulatedRadio) SetConnectAfter(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 1 {
		n = 1
	}
	r.connectAfter = n
}

// SetOff makes every subsequent operation fail as if the radio were
// unpowered.
func (r *SimulatedRadio) SetOff(off bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.off = off
}

// StartAccessPoint implements Radio.
func (r *SimulatedRadio) StartAccessPoint(ssid, passphrase string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.off {
		return ErrRadioOff
	}
	r.apSSID = ssid
	r.apActive = true
	r.apStarts++
	logging.Debug("Simulated access point up", zap.String("ssid", ssid))
	return nil
}

// StopAccessPoint implements Radio.
func (r *SimulatedRadio) StopAccessPoint() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.off {
		return ErrRadioOff
	}
	r.apActive = false
	r.apStops++
	logging.Debug("Simulated access point down", zap.String("ssid", r.apSSID))
	return nil
}

// Join implements Radio.
func (r *SimulatedRadio) Join(network, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.off {
		return ErrRadioOff
	}

	r.joins++
	r.target = network
	r.polls = 0
	r.link = LinkConnecting

	want, known := r.networks[network]
	switch {
	case !known:
		r.outcome = LinkConnecting
	case want == secret:
		r.outcome = LinkConnected
	default:
		r.outcome = LinkFailed
	}
	return nil
}

// Status implements Radio.
func (r *SimulatedRadio) Status() LinkStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.off {
		return LinkIdle
	}
	if r.link != LinkConnecting {
		return r.link
	}

	r.polls++
	if r.polls >= r.connectAfter {
		r.link = r.outcome
	}
	return r.link
}

// AccessPoint reports the setup network name and whether it is up.
func (r *SimulatedRadio) AccessPoint() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apSSID, r.apActive
}

// Target returns the network named in the last join.
func (r *SimulatedRadio) Target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// Joins returns the number of join calls accepted.
func (r *SimulatedRadio) Joins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joins
}

// AccessPointStarts returns the number of successful StartAccessPoint calls.
func (r *SimulatedRadio) AccessPointStarts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apStarts
}

// AccessPointStops returns the number of successful StopAccessPoint calls.
func (r *SimulatedRadio) AccessPointStops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apStops
}
