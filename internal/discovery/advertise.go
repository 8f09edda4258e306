package discovery

import (
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// TXT record keys published by the daemon.
const (
	TxtState   = "state"
	TxtPath    = "path"
	TxtVersion = "ver"
	TxtReady   = "ready"
)

// Advertiser publishes the setup portal over mDNS and keeps its TXT record in
// step with the provisioning state.
type Advertiser struct {
	instance string
	port     int
	version  string

	mu     sync.Mutex
	server *zeroconf.Server
	state  string
	ready  bool
}

// Advertise registers instance on port and returns the running advertiser.
func Advertise(instance string, port int, version, state string, ready bool) (*Advertiser, error) {
	if instance == "" {
		return nil, fmt.Errorf("mDNS instance name is required")
	}

	a := &Advertiser{
		instance: instance,
		port:     port,
		version:  version,
		state:    state,
		ready:    ready,
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, a.text(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.server = server

	logging.Info("mDNS service registered",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return a, nil
}

// UpdateState republishes the TXT record when state or readiness changed.
func (a *Advertiser) UpdateState(state string, ready bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil || (state == a.state && ready == a.ready) {
		return
	}
	a.state = state
	a.ready = ready
	a.server.SetText(a.text())

	logging.Debug("mDNS TXT updated", zap.String("state", state), zap.Bool("ready", ready))
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	logging.Info("mDNS service withdrawn", zap.String("instance", a.instance))
}

func (a *Advertiser) text() []string {
	return buildText(a.state, a.version, a.ready)
}

func buildText(state, version string, ready bool) []string {
	txt := []string{TxtPath + "=/", TxtState + "=" + state}
	if version != "" {
		txt = append(txt, TxtVersion+"="+version)
	}
	if ready {
		txt = append(txt, TxtReady+"=1")
	} else {
		txt = append(txt, TxtReady+"=0")
	}
	return txt
}
