// Wifiprovd is the WiFi provisioning daemon.
//
// It brings up a setup network, serves a page where a user enters the WiFi
// network the device should join, stores that pair and connects to it. The
// status indicator shows what the device is doing, and the setup portal is
// advertised over mDNS so the wifiprov CLI can find it.
//
// Usage:
//
//	wifiprovd run [flags]
//
// See 'wifiprovd --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/version"
)

// exitRestart is returned when a submission asked for a restart. A process
// supervisor is expected to start the daemon again.
const exitRestart = 3

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wifiprovd",
	Short: "WiFi provisioning daemon",
	Long: `A daemon that provisions WiFi credentials for a headless device.

On start it broadcasts a setup network and serves a configuration page. A
submitted network name and secret are saved and the device tries to join
that network, reporting progress through its status indicator.

The configuration file is read from --config, $WIFIPROV_CONFIG, or
/etc/wifiprov/wifiprovd.yaml. A missing file means defaults.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to configuration file")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifiprovd %s\n", version.Full())
	},
}
