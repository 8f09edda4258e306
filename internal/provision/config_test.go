package provision_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/muurk/wifiprov/internal/indicator"
	"github.com/muurk/wifiprov/internal/provision"
)

var _ = Describe("ModeFor", func() {
	DescribeTable("maps every state to one indicator mode",
		func(state provision.State, want indicator.Mode) {
			Expect(provision.ModeFor(state)).To(Equal(want))
		},
		Entry("access point only", provision.AccessPointOnly, indicator.Solid),
		Entry("connecting", provision.ConnectingStation, indicator.Blink(500*time.Millisecond)),
		Entry("connected", provision.StationConnected, indicator.Solid),
		Entry("failed", provision.StationFailed, indicator.Off),
	)

	It("uses the configured blink period", func() {
		cfg := provision.DefaultConfig()
		cfg.BlinkPeriod = 250 * time.Millisecond
		Expect(cfg.ModeFor(provision.ConnectingStation)).To(Equal(indicator.Blink(250 * time.Millisecond)))
	})
})

var _ = Describe("Policies", func() {
	DescribeTable("ParseSubmitPolicy",
		func(in string, want provision.SubmitPolicy, ok bool) {
			got, err := provision.ParseSubmitPolicy(in)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("empty", "", provision.SubmitReconnect, true),
		Entry("reconnect", "reconnect", provision.SubmitReconnect, true),
		Entry("restart upper", "RESTART", provision.SubmitRestart, true),
		Entry("unknown", "reboot-loop", provision.SubmitPolicy(""), false),
	)

	DescribeTable("ParseDualMode",
		func(in string, want provision.DualMode, ok bool) {
			got, err := provision.ParseDualMode(in)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("empty", "", provision.KeepAccessPoint, true),
		Entry("keep", "keep-ap", provision.KeepAccessPoint, true),
		Entry("teardown", " teardown-ap ", provision.TeardownAccessPoint, true),
		Entry("unknown", "both", provision.DualMode(""), false),
	)

	It("defaults to a 20 poll, 10 second budget", func() {
		cfg := provision.DefaultConfig()
		Expect(cfg.MaxPolls).To(Equal(20))
		Expect(cfg.Budget()).To(Equal(10 * time.Second))
		Expect(cfg.SubmitPolicy).To(Equal(provision.SubmitReconnect))
		Expect(cfg.DualMode).To(Equal(provision.KeepAccessPoint))
	})
})

var _ = Describe("ValidateCredentials", func() {
	It("accepts slot-sized fields", func() {
		Expect(provision.ValidateCredentials("abcdefghijklmnopqrstuvwxyz012345", "s")).To(Succeed())
	})

	It("rejects invalid UTF-8", func() {
		Expect(provision.ValidateCredentials("bad\xffname", "s")).To(MatchError(provision.ErrInvalidCredentials))
	})
})

var _ = Describe("SimulatedRadio", func() {
	It("connects to a known network after the configured polls", func() {
		radio := provision.NewSimulatedRadio(2)
		radio.AddNetwork("HomeNet", "secret123")

		Expect(radio.Join("HomeNet", "secret123")).To(Succeed())
		Expect(radio.Status()).To(Equal(provision.LinkConnecting))
		Expect(radio.Status()).To(Equal(provision.LinkConnected))
		Expect(radio.Status()).To(Equal(provision.LinkConnected))
	})

	It("never connects to an unknown network", func() {
		radio := provision.NewSimulatedRadio(1)
		Expect(radio.Join("Nowhere", "x")).To(Succeed())
		for i := 0; i < 50; i++ {
			Expect(radio.Status()).To(Equal(provision.LinkConnecting))
		}
	})

	It("is idle before any join", func() {
		Expect(provision.NewSimulatedRadio(1).Status()).To(Equal(provision.LinkIdle))
	})
})
