package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/ui"
)

var (
	forceInit bool
	assumeYes bool
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to --config so it can be edited.

An existing file is left alone unless --force is given.`,
	RunE: runInitConfig,
}

var clearStoreCmd = &cobra.Command{
	Use:   "clear-store",
	Short: "Erase the saved WiFi credentials",
	Long: `Erase the saved network name and secret from the credential store.

On its next start the daemon only offers the setup network. Stop the daemon
first; a running daemon keeps the credentials it loaded at boot.`,
	Example: `  # Erase after confirming
  wifiprovd clear-store

  # Erase without prompting (scripts)
  wifiprovd clear-store --yes`,
	RunE: runClearStore,
}

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Validate and print the effective configuration",
	RunE:  runShowConfig,
}

func init() {
	initConfigCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
	clearStoreCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(clearStoreCmd)
	rootCmd.AddCommand(showConfigCmd)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	if err := config.Default().Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", configPath)
	return nil
}

func runClearStore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	path := cfg.Store.Path
	if !assumeYes && !ui.ConfirmClearStore(cmd.InOrStdin(), cmd.OutOrStdout(), path) {
		return nil
	}

	store := credstore.New(credstore.NewFileRegion(path))
	if err := store.Clear(); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Saved network erased", map[string]string{"Store": path})
	return nil
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := validationError(cfg.Validate()); err != nil {
		return err
	}

	pcfg, err := cfg.Provision()
	if err != nil {
		return err
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration OK", map[string]string{
		"File":          configPath,
		"Setup network": cfg.SetupNetwork.SSID,
		"Portal":        fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		"Store":         cfg.Store.Path,
		"Budget":        fmt.Sprintf("%d x %s (%s)", pcfg.MaxPolls, pcfg.PollInterval, pcfg.Budget()),
		"Submit policy": string(pcfg.SubmitPolicy),
		"Dual mode":     string(pcfg.DualMode),
		"Indicator":     cfg.Indicator.Driver,
	})
	return nil
}
