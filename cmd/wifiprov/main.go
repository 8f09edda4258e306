// Wifiprov is the operator CLI for wifiprovd devices.
//
// It finds devices advertising a setup portal over mDNS, shows their
// provisioning status, submits WiFi credentials and follows a device's live
// status feed while it joins the network.
//
// Usage:
//
//	wifiprov [command] [flags]
//
// See 'wifiprov --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wifiprov",
	Short: "WiFi provisioning client",
	Long: `A client for devices running wifiprovd.

Join the device's setup network, then use 'wifiprov scan' to find it and
'wifiprov configure' to give it the network it should join.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless WIFIPROV_LOG_LEVEL is set.
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifiprov %s\n", version.Full())
	},
}
