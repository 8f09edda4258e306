package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/discovery"
	"github.com/muurk/wifiprov/internal/indicator"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/portal"
	"github.com/muurk/wifiprov/internal/provision"
	"github.com/muurk/wifiprov/internal/version"
)

var (
	logLevel string
	httpHost string
	httpPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the provisioning daemon",
	Long: `Start the setup network, the configuration page and the status indicator.

With saved credentials the daemon immediately tries to join that network.
Submitted credentials are saved before the join is attempted. Under the
restart submit policy the daemon exits with status 3 after saving, and the
saved network is joined on the next start.`,
	Example: `  # Run with the default configuration file
  wifiprovd run

  # Serve the setup page on another port with debug logging
  wifiprovd run --port 8080 --log-level debug

  # Use a specific configuration file
  wifiprovd run --config ./wifiprovd.yaml`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&httpHost, "host", "", "Setup page listen address (overrides http.host)")
	runCmd.Flags().IntVar(&httpPort, "port", 0, "Setup page port (overrides http.port)")

	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.HTTP.Host = httpHost
	}
	if cmd.Flags().Changed("port") {
		cfg.HTTP.Port = httpPort
	}
	if err := validationError(cfg.Validate()); err != nil {
		return err
	}

	logging.Info("Starting wifiprovd",
		zap.String("version", version.Full()),
		zap.String("config", configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(cfg)
	if err != nil {
		return err
	}

	err = d.run(ctx)
	if errors.Is(err, provision.ErrRestartRequested) {
		logging.Info("New credentials saved, exiting for restart")
		return &exitError{code: exitRestart, err: err}
	}
	return err
}

// daemon holds the wired components of a running wifiprovd.
type daemon struct {
	cfg     *config.Config
	store   *credstore.Store
	radio   *provision.SimulatedRadio
	led     *indicator.Indicator
	machine *provision.Machine
	portal  *portal.Server
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	pcfg, err := cfg.Provision()
	if err != nil {
		return nil, err
	}

	out, err := openOutput(cfg.Indicator)
	if err != nil {
		return nil, err
	}

	d := &daemon{
		cfg:   cfg,
		store: credstore.New(credstore.NewFileRegion(cfg.Store.Path)),
		radio: newRadio(cfg.Simulation),
		led:   indicator.New(out),
	}
	d.machine = provision.New(pcfg, d.store, d.radio, d.led)
	d.portal = portal.New(portal.Config{Host: cfg.HTTP.Host, Port: cfg.HTTP.Port}, d.machine)
	return d, nil
}

// run blocks until ctx is done or a component fails. The listener is bound
// before anything else starts so a port conflict fails fast.
func (d *daemon) run(ctx context.Context) error {
	addr, err := d.portal.Listen()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.machine.Run(ctx)
	})
	g.Go(func() error {
		return d.portal.Serve(ctx)
	})
	if d.cfg.Discovery.Enabled {
		port := d.cfg.HTTP.Port
		if tcp, ok := addr.(*net.TCPAddr); ok {
			port = tcp.Port
		}
		g.Go(func() error {
			advertise(ctx, d.cfg.Discovery.Instance, port, d.machine)
			return nil
		})
	}

	return g.Wait()
}

// advertise publishes the portal over mDNS and follows state changes until
// ctx is done. Registration failure is logged and tolerated.
func advertise(ctx context.Context, instance string, port int, m *provision.Machine) {
	snap := m.Snapshot()
	adv, err := discovery.Advertise(instance, port, version.Short(), string(snap.State), snap.ReadyForCredentials)
	if err != nil {
		logging.Warn("mDNS advertisement disabled", zap.Error(err))
		return
	}
	defer adv.Shutdown()

	updates, unsubscribe := m.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			adv.UpdateState(string(s.State), s.ReadyForCredentials)
		}
	}
}

func openOutput(cfg config.Indicator) (indicator.Output, error) {
	switch cfg.Driver {
	case "sysfs":
		root := cfg.LEDRoot
		if root == "" {
			root = indicator.DefaultLEDRoot
		}
		led, err := indicator.OpenSysfsLED(root, cfg.LED)
		if err != nil {
			return nil, err
		}
		logging.Info("Using sysfs status LED", zap.String("path", led.Path()))
		return led, nil
	case "log", "":
		return indicator.LogOutput{Name: "status"}, nil
	default:
		return nil, fmt.Errorf("unknown indicator driver %q", cfg.Driver)
	}
}

func newRadio(cfg config.Simulation) *provision.SimulatedRadio {
	r := provision.NewSimulatedRadio(cfg.ConnectAfter)
	for _, n := range cfg.Networks {
		r.AddNetwork(n.Name, n.Secret)
	}
	return r
}

func validationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = "  - " + err.Error()
	}
	return fmt.Errorf("invalid configuration:\n%s", strings.Join(msgs, "\n"))
}
