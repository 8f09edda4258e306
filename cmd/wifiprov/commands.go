package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/wifiprov/internal/discovery"
	"github.com/muurk/wifiprov/internal/portal"
	"github.com/muurk/wifiprov/internal/provision"
	"github.com/muurk/wifiprov/internal/ui"
)

// Device selection flags
var (
	deviceAddr   string
	devicePort   int
	instanceName string
	scanTimeout  time.Duration
	outputFormat string
)

// configure/watch flags
var (
	ssid         string
	secret       string
	secretStdin  bool
	follow       bool
	untilSettled bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "Device address or URL (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", discovery.DefaultPort, "Device HTTP port when --device is a bare IP")
	rootCmd.PersistentFlags().StringVar(&instanceName, "instance", "", "mDNS instance name to select")
	rootCmd.PersistentFlags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Discovery timeout")

	statusCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")

	configureCmd.Flags().StringVar(&ssid, "ssid", "", "Network name to join (required)")
	configureCmd.Flags().StringVar(&secret, "secret", "", "Network secret (prompted when omitted)")
	configureCmd.Flags().BoolVar(&secretStdin, "secret-stdin", false, "Read the secret from stdin")
	configureCmd.Flags().BoolVar(&follow, "follow", true, "Follow the join attempt until it settles")
	_ = configureCmd.MarkFlagRequired("ssid")

	watchCmd.Flags().BoolVar(&untilSettled, "until-settled", false, "Exit once a join attempt connects or fails")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(watchCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for provisioning devices",
	Long: `Scan for devices advertising a wifiprovd setup portal over mDNS.

Devices marked green are waiting for credentials.`,
	Example: `  # Scan for 5 seconds (default)
  wifiprov scan

  # Longer scan on a busy network
  wifiprov scan --timeout 15s`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning for wifiprov devices (timeout: %s)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	devices, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Fprintln(out, ui.RenderDevices(devices))
	if len(devices) == 0 {
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Join the device's setup network first")
		fmt.Fprintln(out, "  - Try increasing --timeout")
		fmt.Fprintln(out, "  - Use --device to give the address directly")
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a device's provisioning status",
	Example: `  # Status of the only device found by discovery
  wifiprov status

  # Status of a known device, as JSON
  wifiprov status --device 192.168.4.1 --format json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, _, err := resolveClient(cmd.Context())
	if err != nil {
		return err
	}

	snap, err := client.Status(cmd.Context())
	if err != nil {
		printClientError(cmd.OutOrStdout(), "Status unavailable", err)
		return err
	}

	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderStatus(*snap, ui.GetTerminalWidth()))
	}
	return nil
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Send WiFi credentials to a device",
	Long: `Send the network name and secret the device should join.

The secret is prompted for without echo unless --secret or --secret-stdin is
given. By default the command then follows the join attempt.`,
	Example: `  # Prompt for the secret
  wifiprov configure --ssid HomeNet

  # Scripted
  echo "$PSK" | wifiprov configure --device 192.168.4.1 --ssid HomeNet --secret-stdin`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	pw, err := readSecret(cmd)
	if err != nil {
		return err
	}
	if err := provision.ValidateCredentials(ssid, pw); err != nil {
		return err
	}

	client, target, err := resolveClient(cmd.Context())
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Configure", "wifiprov configure", map[string]string{
		"Device":  target,
		"Network": ssid,
		"Secret":  strings.Repeat("*", len(pw)),
	})

	reply, err := client.Configure(cmd.Context(), ssid, pw)
	if err != nil {
		printClientError(cmd.OutOrStdout(), "Credentials not accepted", err)
		return err
	}
	p.PrintSuccess("Credentials sent", map[string]string{"Device says": reply})

	if !follow || strings.HasPrefix(reply, "Rebooting") {
		return nil
	}
	return watch(cmd.Context(), client, target, true)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a device's live status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, target, err := resolveClient(cmd.Context())
		if err != nil {
			return err
		}
		return watch(cmd.Context(), client, target, untilSettled)
	},
}

// watch runs the live status view until the user quits, the feed ends or,
// with settle, the join attempt finishes.
func watch(ctx context.Context, client *portal.Client, target string, settle bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(ui.NewWatchModel(target, settle))

	go func() {
		err := client.Watch(ctx, func(s provision.Snapshot) {
			prog.Send(ui.SnapshotMsg(s))
		})
		if ctx.Err() == nil {
			prog.Send(ui.FeedClosedMsg{Err: err})
		}
	}()

	final, err := prog.Run()
	if err != nil {
		return err
	}

	m := final.(ui.WatchModel)
	if m.Err() != nil {
		return m.Err()
	}
	if s, ok := m.Snapshot(); ok && settle && s.State == provision.StationFailed {
		return fmt.Errorf("device could not join %s: %s", s.Network, s.LastError)
	}
	return nil
}

// resolveClient returns a client for --device, or for the device found by
// discovery (by --instance, or the only one answering).
func resolveClient(ctx context.Context) (*portal.Client, string, error) {
	if deviceAddr != "" {
		if strings.Contains(deviceAddr, "://") || strings.Contains(deviceAddr, ":") {
			return portal.NewClient(deviceAddr), deviceAddr, nil
		}
		return portal.NewClientFor(deviceAddr, devicePort), fmt.Sprintf("%s:%d", deviceAddr, devicePort), nil
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout

	if instanceName != "" {
		device, err := scanner.WaitFor(ctx, instanceName)
		if err != nil {
			return nil, "", err
		}
		return portal.NewClient(device.BaseURL()), device.String(), nil
	}

	devices, err := scanner.Scan(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("discovery failed: %w", err)
	}
	device, err := pickDevice(devices)
	if err != nil {
		return nil, "", err
	}
	return portal.NewClient(device.BaseURL()), device.String(), nil
}

func pickDevice(devices []*discovery.Device) (*discovery.Device, error) {
	switch len(devices) {
	case 0:
		return nil, errors.New("no devices found (use --device to give the address)")
	case 1:
		return devices[0], nil
	default:
		names := make([]string, len(devices))
		for i, d := range devices {
			names[i] = d.Instance
		}
		return nil, fmt.Errorf("found %d devices (%s); choose one with --instance", len(devices), strings.Join(names, ", "))
	}
}

func readSecret(cmd *cobra.Command) (string, error) {
	if secret != "" {
		return secret, nil
	}
	if secretStdin {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1024))
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal for the secret prompt (use --secret or --secret-stdin)")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Secret for %s: ", ssid)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return string(raw), nil
}

func printClientError(w io.Writer, title string, err error) {
	hints := strings.Split(portal.TroubleshootingHint(err), "\n")
	ui.NewPrinter(w).PrintError(title, err, hints)
}
