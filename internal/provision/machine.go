package provision

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/indicator"
	"github.com/muurk/wifiprov/internal/logging"
)

// CredentialStore is the persistence the machine needs.
type CredentialStore interface {
	Load() credstore.Credentials
	Save(credstore.Credentials) error
}

// Indicator is the status output the machine drives.
type Indicator interface {
	SetMode(indicator.Mode)
	Tick(now time.Time)
}

// Ack confirms a submission was accepted for processing. It says nothing
// about whether the join will succeed.
type Ack struct {
	Network string `json:"network"`
	Restart bool   `json:"restart"`
}

const subscriberBuffer = 8

// Machine is the provisioning state machine. Boot, Step and Run must be
// called from one goroutine; Submit, Snapshot and Subscribe are safe from
// any goroutine.
type Machine struct {
	cfg   Config
	store CredentialStore
	radio Radio
	led   Indicator
	inbox *mailbox

	// Owned by the stepping goroutine.
	booted   bool
	state    State
	creds    credstore.Credentials
	apActive bool
	polls    int
	nextPoll time.Time
	lastErr  error
	storeErr error
	restart  bool

	// Mirrors restart for Submit callers.
	restarting atomic.Bool

	snapMu sync.RWMutex
	snap   Snapshot

	subMu  sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
}

// New creates a machine. Nothing touches the radio or store until Boot.
func New(cfg Config, store CredentialStore, radio Radio, led Indicator) *Machine {
	cfg = cfg.withDefaults()
	m := &Machine{
		cfg:   cfg,
		store: store,
		radio: radio,
		led:   led,
		inbox: newMailbox(),
		state: AccessPointOnly,
		subs:  make(map[int]chan Snapshot),
	}
	m.snap = m.buildSnapshot(time.Time{})
	return m
}

// Config returns the effective configuration.
func (m *Machine) Config() Config {
	return m.cfg
}

// Boot loads the stored credentials, brings up the setup network and enters
// AccessPointOnly. With stored credentials it immediately begins an attempt.
// A setup network that fails to start is logged and retried on the next
// attempt failure.
func (m *Machine) Boot(now time.Time) {
	m.booted = true
	m.creds = m.store.Load()

	logging.Info("Provisioning boot",
		zap.Bool("has_credentials", !m.creds.Empty()),
		zap.String("network", m.creds.Name),
		zap.String("setup_ssid", m.cfg.SetupSSID),
	)

	m.startAccessPoint()
	m.state = AccessPointOnly
	m.led.SetMode(m.cfg.ModeFor(AccessPointOnly))

	if !m.creds.Empty() {
		m.beginAttempt(now)
	}

	m.led.Tick(now)
	m.publish(now)
}

// Step runs one loop iteration: consume a pending credential event, poll the
// radio when a poll is due, then tick the indicator. It never blocks on the
// radio. Under the restart policy it returns ErrRestartRequested once new
// credentials have been saved, and keeps returning it.
func (m *Machine) Step(now time.Time) error {
	if m.restart {
		return ErrRestartRequested
	}
	if !m.booted {
		m.Boot(now)
	}

	if creds, ok := m.inbox.take(); ok {
		m.consume(creds, now)
		if m.restart {
			m.led.Tick(now)
			m.publish(now)
			return ErrRestartRequested
		}
	}

	if m.state == ConnectingStation && !now.Before(m.nextPoll) {
		m.poll(now)
	}

	m.led.Tick(now)
	m.publish(now)
	return nil
}

// Run boots the machine and steps it every LoopInterval, and immediately
// whenever credentials are submitted, until ctx is done. It returns nil on
// cancellation and ErrRestartRequested under the restart policy.
func (m *Machine) Run(ctx context.Context) error {
	clk := m.cfg.Clock

	if err := m.Step(clk.Now()); err != nil {
		return err
	}

	timer := clk.NewTimer(m.cfg.LoopInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("Provisioning loop stopped", zap.Error(ctx.Err()))
			return nil
		case <-timer.Chan():
			timer.Reset(m.cfg.LoopInterval)
		case <-m.inbox.wake:
		}

		if err := m.Step(clk.Now()); err != nil {
			return err
		}
	}
}

// Submit validates a credential pair and hands it to the machine. Invalid
// pairs return a *ConfigError and change nothing. A valid pair replaces any
// submission the machine has not consumed yet. Once a restart is pending
// every submission fails with ErrRestartPending.
func (m *Machine) Submit(network, secret string) (Ack, error) {
	if m.restarting.Load() {
		return Ack{}, ErrRestartPending
	}
	if err := ValidateCredentials(network, secret); err != nil {
		logging.Warn("Rejected credential submission", zap.Error(err))
		return Ack{}, err
	}

	if m.inbox.put(credstore.Credentials{Name: network, Secret: secret}) {
		logging.Debug("Replaced unconsumed credential submission")
	}
	logging.LogCredentialEvent("submit", network, len(secret))

	return Ack{Network: network, Restart: m.cfg.SubmitPolicy == SubmitRestart}, nil
}

// Snapshot returns the latest published view.
func (m *Machine) Snapshot() Snapshot {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap
}

// Subscribe returns a channel that receives the current snapshot and then
// every change. A subscriber that falls behind misses intermediate
// snapshots. The returned func unsubscribes and closes the channel.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	ch <- m.Snapshot()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *Machine) consume(creds credstore.Credentials, now time.Time) {
	m.creds = creds
	m.storeErr = nil

	if err := m.store.Save(creds); err != nil {
		m.storeErr = err
		logging.Warn("Failed to persist credentials, keeping them for this session",
			zap.String("network", creds.Name),
			zap.Error(err),
		)
	}

	if m.cfg.SubmitPolicy == SubmitRestart {
		if m.storeErr == nil {
			m.restart = true
			m.restarting.Store(true)
			logging.Info("Restart requested to apply new credentials", zap.String("network", creds.Name))
			return
		}
		// A restart would boot without the pair.
		logging.Warn("Credentials not saved, joining without restart", zap.String("network", creds.Name))
	}

	m.beginAttempt(now)
}

func (m *Machine) beginAttempt(now time.Time) {
	m.startAccessPoint()
	m.polls = 0
	m.lastErr = nil
	m.enter(ConnectingStation, zap.String("network", m.creds.Name))

	if err := m.radio.Join(m.creds.Name, m.creds.Secret); err != nil {
		m.fail(fmt.Errorf("%w: %q: %w", ErrJoinFailed, m.creds.Name, err))
		return
	}
	m.nextPoll = now.Add(m.cfg.PollInterval)
}

func (m *Machine) poll(now time.Time) {
	m.polls++
	status := m.radio.Status()

	logging.Debug("Polled station link",
		zap.Int("poll", m.polls),
		zap.Int("max_polls", m.cfg.MaxPolls),
		zap.Stringer("status", status),
	)

	switch {
	case status == LinkConnected:
		m.enter(StationConnected, zap.String("network", m.creds.Name), zap.Int("polls", m.polls))
		if m.cfg.DualMode == TeardownAccessPoint {
			m.stopAccessPoint()
		}
	case status == LinkFailed:
		m.fail(fmt.Errorf("%w: %q: radio reported failure after %d polls", ErrJoinFailed, m.creds.Name, m.polls))
	case m.polls >= m.cfg.MaxPolls:
		m.fail(fmt.Errorf("%w: %q not joined after %d polls (%s)", ErrConnectionTimeout, m.creds.Name, m.polls, m.cfg.Budget()))
	default:
		m.nextPoll = now.Add(m.cfg.PollInterval)
	}
}

func (m *Machine) fail(err error) {
	m.lastErr = err
	logging.Warn("Station attempt failed", zap.Error(err))
	m.enter(StationFailed, zap.String("network", m.creds.Name))
	m.startAccessPoint()
}

func (m *Machine) enter(next State, fields ...zap.Field) {
	if next == m.state {
		return
	}
	logging.LogTransition(string(m.state), string(next), fields...)
	m.state = next
	m.led.SetMode(m.cfg.ModeFor(next))
}

func (m *Machine) startAccessPoint() {
	if m.apActive {
		return
	}
	if err := m.radio.StartAccessPoint(m.cfg.SetupSSID, m.cfg.SetupPassphrase); err != nil {
		logging.Error("Failed to start setup network", zap.String("ssid", m.cfg.SetupSSID), zap.Error(err))
		return
	}
	m.apActive = true
	logging.Info("Setup network active", zap.String("ssid", m.cfg.SetupSSID))
}

func (m *Machine) stopAccessPoint() {
	if !m.apActive {
		return
	}
	if err := m.radio.StopAccessPoint(); err != nil {
		logging.Warn("Failed to stop setup network", zap.Error(err))
		return
	}
	m.apActive = false
	logging.Info("Setup network stopped", zap.String("ssid", m.cfg.SetupSSID))
}

func (m *Machine) buildSnapshot(now time.Time) Snapshot {
	s := Snapshot{
		State:               m.state,
		AccessPointActive:   m.apActive,
		HasCredentials:      !m.creds.Empty(),
		Network:             m.creds.Name,
		Polls:               m.polls,
		MaxPolls:            m.cfg.MaxPolls,
		Indicator:           m.cfg.ModeFor(m.state).String(),
		ReadyForCredentials: m.state.ReadyForCredentials(),
		UpdatedAt:           now,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	if m.storeErr != nil {
		s.StoreError = m.storeErr.Error()
	}
	return s
}

// publish stores a new snapshot and fans it out when anything but the
// timestamp changed.
func (m *Machine) publish(now time.Time) {
	next := m.buildSnapshot(now)

	m.snapMu.Lock()
	if next.sameAs(m.snap) && !m.snap.UpdatedAt.IsZero() {
		m.snapMu.Unlock()
		return
	}
	m.snap = next
	m.snapMu.Unlock()

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- next:
		default:
		}
	}
}
