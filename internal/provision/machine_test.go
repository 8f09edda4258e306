package provision_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/juju/clock/testclock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/indicator"
	"github.com/muurk/wifiprov/internal/provision"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// rig wires a machine to in-memory collaborators and steps it on synthetic
// time.
type rig struct {
	region *credstore.MemoryRegion
	store  *credstore.Store
	radio  *provision.SimulatedRadio
	out    *indicator.RecordingOutput
	led    *indicator.Indicator
	m      *provision.Machine
	now    time.Time
}

func newRig(cfg provision.Config, saved credstore.Credentials) *rig {
	r := &rig{
		region: credstore.NewMemoryRegion(),
		radio:  provision.NewSimulatedRadio(3),
		out:    &indicator.RecordingOutput{},
		now:    epoch,
	}
	r.store = credstore.New(r.region)
	if !saved.Empty() {
		Expect(r.store.Save(saved)).To(Succeed())
	}
	r.led = indicator.New(r.out)
	r.m = provision.New(cfg, r.store, r.radio, r.led)
	return r
}

func (r *rig) boot() {
	r.m.Boot(r.now)
}

// step advances one loop interval and steps the machine.
func (r *rig) step() error {
	r.now = r.now.Add(r.m.Config().LoopInterval)
	return r.m.Step(r.now)
}

// stepFor steps the machine until d of synthetic time has passed.
func (r *rig) stepFor(d time.Duration) {
	end := r.now.Add(d)
	for r.now.Before(end) {
		Expect(r.step()).To(Succeed())
	}
}

// stepUntil steps until the machine reaches state or the limit passes.
func (r *rig) stepUntil(state provision.State, limit time.Duration) {
	end := r.now.Add(limit)
	for r.m.Snapshot().State != state && r.now.Before(end) {
		Expect(r.step()).To(Succeed())
	}
}

var _ = Describe("Machine", func() {
	var cfg provision.Config

	BeforeEach(func() {
		cfg = provision.DefaultConfig()
	})

	Context("booting without stored credentials", func() {
		var r *rig

		BeforeEach(func() {
			r = newRig(cfg, credstore.Credentials{})
			r.boot()
		})

		It("brings up the setup network and waits", func() {
			ssid, up := r.radio.AccessPoint()
			Expect(up).To(BeTrue())
			Expect(ssid).To(Equal("SetupNetwork"))

			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.AccessPointOnly))
			Expect(snap.AccessPointActive).To(BeTrue())
			Expect(snap.HasCredentials).To(BeFalse())
			Expect(snap.ReadyForCredentials).To(BeTrue())
			Expect(r.led.Mode()).To(Equal(indicator.Solid))
			Expect(r.led.Level()).To(BeTrue())
		})

		It("never attempts a station connection", func() {
			r.stepFor(3 * cfg.Budget())

			Expect(r.radio.Joins()).To(BeZero())
			Expect(r.m.Snapshot().State).To(Equal(provision.AccessPointOnly))
		})
	})

	Context("booting with stored credentials", func() {
		var r *rig

		BeforeEach(func() {
			r = newRig(cfg, credstore.Credentials{Name: "HomeNet", Secret: "secret123"})
		})

		It("enters the access point state before connecting", func() {
			r.boot()

			Expect(r.radio.AccessPointStarts()).To(Equal(1))
			Expect(r.radio.Joins()).To(Equal(1))
			Expect(r.radio.Target()).To(Equal("HomeNet"))
			Expect(r.m.Snapshot().State).To(Equal(provision.ConnectingStation))
			Expect(r.led.Mode()).To(Equal(indicator.Blink(500 * time.Millisecond)))
		})

		It("reaches StationConnected with a solid indicator when the radio connects in budget", func() {
			r.radio.AddNetwork("HomeNet", "secret123")
			r.boot()

			r.stepUntil(provision.StationConnected, cfg.Budget())

			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.StationConnected))
			Expect(snap.Polls).To(Equal(3))
			Expect(snap.LastError).To(BeEmpty())
			Expect(snap.ReadyForCredentials).To(BeFalse())
			Expect(r.led.Mode()).To(Equal(indicator.Solid))
			Expect(r.led.Level()).To(BeTrue())
		})

		It("keeps the setup network up once connected by default", func() {
			r.radio.AddNetwork("HomeNet", "secret123")
			r.boot()
			r.stepUntil(provision.StationConnected, cfg.Budget())

			_, up := r.radio.AccessPoint()
			Expect(up).To(BeTrue())
			Expect(r.radio.AccessPointStops()).To(BeZero())
			Expect(r.m.Snapshot().AccessPointActive).To(BeTrue())
		})

		It("blinks while connecting", func() {
			r.boot()
			r.stepFor(2 * time.Second)

			Expect(r.m.Snapshot().Indicator).To(Equal("blink(500ms)"))
			Expect(r.led.Toggles()).To(BeNumerically(">=", 3))
		})

		It("fails after exactly the retry budget when the radio never connects", func() {
			r.boot()

			r.stepFor(cfg.Budget() - cfg.LoopInterval)
			Expect(r.m.Snapshot().State).To(Equal(provision.ConnectingStation))

			Expect(r.step()).To(Succeed())
			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.StationFailed))
			Expect(snap.Polls).To(Equal(20))
			Expect(snap.LastError).To(ContainSubstring("connection timeout"))
			Expect(snap.AccessPointActive).To(BeTrue())
			Expect(snap.ReadyForCredentials).To(BeTrue())
		})

		It("stops blinking and does not restart after a failed attempt", func() {
			r.boot()
			r.stepUntil(provision.StationFailed, 2*cfg.Budget())
			Expect(r.m.Snapshot().State).To(Equal(provision.StationFailed))

			toggles := r.led.Toggles()
			for i := 0; i < 100; i++ {
				Expect(r.step()).To(Succeed())
			}

			Expect(r.led.Toggles()).To(Equal(toggles))
			Expect(r.led.Mode()).To(Equal(indicator.Off))
			Expect(r.led.Level()).To(BeFalse())
			Expect(r.radio.Joins()).To(Equal(1))
			Expect(r.store.Load().Name).To(Equal("HomeNet"))
		})

		It("fails early when the radio reports a refused link", func() {
			r.radio.AddNetwork("HomeNet", "other-secret")
			r.boot()
			r.stepUntil(provision.StationFailed, cfg.Budget())

			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.StationFailed))
			Expect(snap.Polls).To(Equal(3))
			Expect(snap.LastError).To(ContainSubstring("join failed"))
		})
	})

	Context("receiving credentials", func() {
		var r *rig

		BeforeEach(func() {
			r = newRig(cfg, credstore.Credentials{})
			r.radio.SetConnectAfter(5)
			r.radio.AddNetwork("HomeNet", "secret123")
			r.boot()
		})

		It("persists and connects to HomeNet", func() {
			ack, err := r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(ack).To(Equal(provision.Ack{Network: "HomeNet"}))

			Expect(r.step()).To(Succeed())
			Expect(r.store.Load()).To(Equal(credstore.Credentials{Name: "HomeNet", Secret: "secret123"}))
			Expect(r.m.Snapshot().State).To(Equal(provision.ConnectingStation))

			r.stepUntil(provision.StationConnected, 10*cfg.PollInterval)

			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.StationConnected))
			Expect(snap.Polls).To(BeNumerically("<=", 10))
			Expect(snap.Network).To(Equal("HomeNet"))
			Expect(r.led.Mode()).To(Equal(indicator.Solid))
			Expect(r.led.Level()).To(BeTrue())
		})

		DescribeTable("rejects invalid pairs without touching the store",
			func(network, secret, field string) {
				_, err := r.m.Submit(network, secret)
				Expect(err).To(MatchError(provision.ErrInvalidCredentials))

				var cfgErr *provision.ConfigError
				Expect(errors.As(err, &cfgErr)).To(BeTrue())
				Expect(cfgErr.Field).To(Equal(field))

				Expect(r.step()).To(Succeed())
				Expect(r.region.Writes()).To(BeZero())
				Expect(r.store.Load().Empty()).To(BeTrue())
				Expect(r.m.Snapshot().State).To(Equal(provision.AccessPointOnly))
			},
			Entry("empty network", "", "x", "network"),
			Entry("oversized network", strings.Repeat("n", 33), "s", "network"),
			Entry("empty secret", "HomeNet", "", "secret"),
			Entry("oversized secret", "HomeNet", strings.Repeat("s", 33), "secret"),
			Entry("NUL in network", "Home\x00Net", "s", "network"),
		)

		It("keeps the stored pair when a later submission is invalid", func() {
			_, err := r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.step()).To(Succeed())

			_, err = r.m.Submit(strings.Repeat("n", 40), "s")
			Expect(err).To(HaveOccurred())
			Expect(r.step()).To(Succeed())

			Expect(r.store.Load().Name).To(Equal("HomeNet"))
		})

		It("consumes only the last of overlapping submissions", func() {
			_, err := r.m.Submit("First", "aaaaaaaa")
			Expect(err).NotTo(HaveOccurred())
			_, err = r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())

			Expect(r.step()).To(Succeed())
			Expect(r.step()).To(Succeed())

			Expect(r.radio.Joins()).To(Equal(1))
			Expect(r.radio.Target()).To(Equal("HomeNet"))
			Expect(r.store.Load().Name).To(Equal("HomeNet"))
			Expect(r.region.Writes()).To(Equal(1))
		})

		It("continues with in-memory credentials when the store rejects the write", func() {
			r.region.SetWriteBudget(0)

			_, err := r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.step()).To(Succeed())

			snap := r.m.Snapshot()
			Expect(snap.StoreError).To(ContainSubstring("write failed"))
			Expect(snap.State).To(Equal(provision.ConnectingStation))

			r.stepUntil(provision.StationConnected, cfg.Budget())
			Expect(r.m.Snapshot().State).To(Equal(provision.StationConnected))
			Expect(r.store.Load().Empty()).To(BeTrue())
		})

		It("restarts the attempt when credentials arrive after a failure", func() {
			_, err := r.m.Submit("Nowhere", "secret123")
			Expect(err).NotTo(HaveOccurred())
			r.stepUntil(provision.StationFailed, 2*cfg.Budget())
			Expect(r.m.Snapshot().State).To(Equal(provision.StationFailed))

			_, err = r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			r.stepUntil(provision.StationConnected, cfg.Budget())

			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.StationConnected))
			Expect(snap.LastError).To(BeEmpty())
		})

		It("fails the attempt immediately when the radio refuses to join", func() {
			r.radio.SetOff(true)

			_, err := r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.step()).To(Succeed())

			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.StationFailed))
			Expect(snap.Polls).To(BeZero())
			Expect(snap.LastError).To(ContainSubstring(provision.ErrRadioOff.Error()))
		})
	})

	Context("with the restart policy", func() {
		var r *rig

		BeforeEach(func() {
			cfg.SubmitPolicy = provision.SubmitRestart
			r = newRig(cfg, credstore.Credentials{})
			r.boot()
		})

		It("saves the pair and asks for a restart instead of joining", func() {
			ack, err := r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(ack.Restart).To(BeTrue())

			Expect(r.step()).To(MatchError(provision.ErrRestartRequested))
			Expect(r.step()).To(MatchError(provision.ErrRestartRequested))

			Expect(r.store.Load().Name).To(Equal("HomeNet"))
			Expect(r.radio.Joins()).To(BeZero())
		})

		It("rejects submissions once a restart is pending", func() {
			_, err := r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.step()).To(MatchError(provision.ErrRestartRequested))

			_, err = r.m.Submit("OtherNet", "secret456")
			Expect(err).To(MatchError(provision.ErrRestartPending))
			Expect(r.store.Load().Name).To(Equal("HomeNet"))
		})

		It("joins in this session when the pair could not be saved", func() {
			r.radio.AddNetwork("HomeNet", "secret123")
			r.region.SetWriteBudget(0)

			ack, err := r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(ack.Restart).To(BeTrue())

			Expect(r.step()).To(Succeed())
			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.ConnectingStation))
			Expect(snap.Network).To(Equal("HomeNet"))
			Expect(snap.StoreError).NotTo(BeEmpty())
			Expect(r.radio.Joins()).To(Equal(1))

			r.stepUntil(provision.StationConnected, cfg.Budget())
			Expect(r.m.Snapshot().State).To(Equal(provision.StationConnected))

			_, err = r.m.Submit("OtherNet", "secret456")
			Expect(err).NotTo(HaveOccurred())
		})

		It("does not restart on a failed attempt", func() {
			Expect(r.store.Save(credstore.Credentials{Name: "Nowhere", Secret: "x"})).To(Succeed())
			again := provision.New(cfg, r.store, r.radio, r.led)
			again.Boot(r.now)

			now := r.now
			for i := 0; i < 500; i++ {
				now = now.Add(cfg.LoopInterval)
				Expect(again.Step(now)).To(Succeed())
			}
			Expect(again.Snapshot().State).To(Equal(provision.StationFailed))
		})
	})

	Context("with the teardown dual-mode policy", func() {
		var r *rig

		BeforeEach(func() {
			cfg.DualMode = provision.TeardownAccessPoint
			r = newRig(cfg, credstore.Credentials{Name: "HomeNet", Secret: "secret123"})
			r.radio.AddNetwork("HomeNet", "secret123")
			r.radio.AddNetwork("Office", "hunter22")
			r.boot()
			r.stepUntil(provision.StationConnected, cfg.Budget())
		})

		It("stops the setup network once connected", func() {
			_, up := r.radio.AccessPoint()
			Expect(up).To(BeFalse())
			Expect(r.m.Snapshot().AccessPointActive).To(BeFalse())
		})

		It("brings the setup network back for the next attempt", func() {
			_, err := r.m.Submit("Office", "hunter22")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.step()).To(Succeed())

			_, up := r.radio.AccessPoint()
			Expect(up).To(BeTrue())
			Expect(r.radio.AccessPointStarts()).To(Equal(2))
		})
	})

	Context("when the setup network cannot start", func() {
		It("keeps running and retries with the next attempt", func() {
			r := newRig(cfg, credstore.Credentials{})
			r.radio.SetOff(true)
			r.boot()

			snap := r.m.Snapshot()
			Expect(snap.State).To(Equal(provision.AccessPointOnly))
			Expect(snap.AccessPointActive).To(BeFalse())

			r.radio.SetOff(false)
			_, err := r.m.Submit("Nowhere", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.step()).To(Succeed())

			Expect(r.m.Snapshot().AccessPointActive).To(BeTrue())
		})
	})

	Context("subscriptions", func() {
		It("delivers the current snapshot and later transitions", func() {
			r := newRig(cfg, credstore.Credentials{})
			r.radio.AddNetwork("HomeNet", "secret123")

			ch, cancel := r.m.Subscribe()
			defer cancel()

			r.boot()
			_, err := r.m.Submit("HomeNet", "secret123")
			Expect(err).NotTo(HaveOccurred())
			r.stepUntil(provision.StationConnected, cfg.Budget())

			var states []provision.State
			Eventually(ch).Should(Receive())
		drain:
			for {
				select {
				case s := <-ch:
					states = append(states, s.State)
				default:
					break drain
				}
			}
			Expect(states).To(ContainElement(provision.ConnectingStation))
			Expect(states[len(states)-1]).To(Equal(provision.StationConnected))
		})

		It("closes the channel on unsubscribe", func() {
			r := newRig(cfg, credstore.Credentials{})
			ch, cancel := r.m.Subscribe()
			Eventually(ch).Should(Receive())

			cancel()
			cancel()
			Eventually(ch).Should(BeClosed())

			r.boot()
		})
	})
})

var _ = Describe("Run", func() {
	It("steps on the clock and connects with stored credentials", func() {
		clk := testclock.NewClock(epoch)
		cfg := provision.DefaultConfig()
		cfg.Clock = clk
		cfg.LoopInterval = cfg.PollInterval

		r := newRig(cfg, credstore.Credentials{Name: "HomeNet", Secret: "secret123"})
		r.radio.AddNetwork("HomeNet", "secret123")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- r.m.Run(ctx) }()

		Eventually(func() provision.State { return r.m.Snapshot().State }).Should(Equal(provision.ConnectingStation))

		for i := 0; i < 3; i++ {
			Expect(clk.WaitAdvance(cfg.LoopInterval, time.Second, 1)).To(Succeed())
		}
		Eventually(func() provision.State { return r.m.Snapshot().State }).Should(Equal(provision.StationConnected))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("wakes immediately on submission", func() {
		cfg := provision.DefaultConfig()
		cfg.LoopInterval = time.Hour
		cfg.PollInterval = time.Millisecond

		r := newRig(cfg, credstore.Credentials{})
		r.radio.SetConnectAfter(1)
		r.radio.AddNetwork("HomeNet", "secret123")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- r.m.Run(ctx) }()

		Eventually(func() bool { return r.m.Snapshot().AccessPointActive }).Should(BeTrue())

		_, err := r.m.Submit("HomeNet", "secret123")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() provision.State { return r.m.Snapshot().State }).Should(Equal(provision.ConnectingStation))
		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("returns ErrRestartRequested under the restart policy", func() {
		cfg := provision.DefaultConfig()
		cfg.SubmitPolicy = provision.SubmitRestart
		cfg.LoopInterval = 5 * time.Millisecond

		r := newRig(cfg, credstore.Credentials{})
		done := make(chan error, 1)
		go func() { done <- r.m.Run(context.Background()) }()

		Eventually(func() bool { return r.m.Snapshot().AccessPointActive }).Should(BeTrue())
		_, err := r.m.Submit("HomeNet", "secret123")
		Expect(err).NotTo(HaveOccurred())

		var runErr error
		Eventually(done).Should(Receive(&runErr))
		Expect(runErr).To(MatchError(provision.ErrRestartRequested))
		Expect(r.store.Load().Name).To(Equal("HomeNet"))
	})
})
