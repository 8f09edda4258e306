package config

import (
	"fmt"

	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/provision"
)

// Validate checks the whole configuration and returns every problem found
// (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("version: must be %d, got %d", CurrentVersion, c.Version))
	}

	if err := ValidateSSID(c.SetupNetwork.SSID); err != nil {
		errs = append(errs, fmt.Errorf("setup_network.ssid: %w", err))
	}
	if err := ValidatePassphrase(c.SetupNetwork.Passphrase); err != nil {
		errs = append(errs, fmt.Errorf("setup_network.passphrase: %w", err))
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port: must be 0-65535, got %d", c.HTTP.Port))
	}

	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path: must not be empty"))
	}

	if c.Connect.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("connect.poll_interval: must be positive, got %s", c.Connect.PollInterval))
	}
	if c.Connect.MaxPolls <= 0 {
		errs = append(errs, fmt.Errorf("connect.max_polls: must be positive, got %d", c.Connect.MaxPolls))
	}
	if c.Connect.LoopInterval <= 0 {
		errs = append(errs, fmt.Errorf("connect.loop_interval: must be positive, got %s", c.Connect.LoopInterval))
	} else if c.Connect.PollInterval > 0 && c.Connect.LoopInterval > c.Connect.PollInterval {
		errs = append(errs, fmt.Errorf("connect.loop_interval: %s is longer than poll_interval %s", c.Connect.LoopInterval, c.Connect.PollInterval))
	}
	if _, err := provision.ParseSubmitPolicy(c.Connect.SubmitPolicy); err != nil {
		errs = append(errs, fmt.Errorf("connect.submit_policy: %w", err))
	}
	if _, err := provision.ParseDualMode(c.Connect.DualMode); err != nil {
		errs = append(errs, fmt.Errorf("connect.dual_mode: %w", err))
	}

	switch c.Indicator.Driver {
	case "log":
	case "sysfs":
		if c.Indicator.LED == "" {
			errs = append(errs, fmt.Errorf("indicator.led: required for the sysfs driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("indicator.driver: unknown driver %q (want log or sysfs)", c.Indicator.Driver))
	}
	if c.Indicator.BlinkPeriod <= 0 {
		errs = append(errs, fmt.Errorf("indicator.blink_period: must be positive, got %s", c.Indicator.BlinkPeriod))
	}

	if c.Discovery.Enabled && c.Discovery.Instance == "" {
		errs = append(errs, fmt.Errorf("discovery.instance: required when discovery is enabled"))
	}

	if c.Simulation.ConnectAfter < 0 {
		errs = append(errs, fmt.Errorf("simulation.connect_after: must not be negative"))
	}
	for i, n := range c.Simulation.Networks {
		if err := ValidateSSID(n.Name); err != nil {
			errs = append(errs, fmt.Errorf("simulation.networks[%d].name: %w", i, err))
		}
	}

	return errs
}

// ValidateSSID checks a network name: 1-32 bytes.
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return fmt.Errorf("SSID cannot be empty")
	}
	if len(ssid) > credstore.FieldSize {
		return fmt.Errorf("SSID too long (max %d bytes): %d bytes", credstore.FieldSize, len(ssid))
	}
	return nil
}

// ValidatePassphrase checks a setup network passphrase: empty for an open
// network, otherwise 8-63 characters as WPA2 requires.
func ValidatePassphrase(pass string) error {
	if pass == "" {
		return nil
	}
	if len(pass) < 8 {
		return fmt.Errorf("WPA2 passphrase too short (min 8 chars): %d chars", len(pass))
	}
	if len(pass) > 63 {
		return fmt.Errorf("WPA2 passphrase too long (max 63 chars): %d chars", len(pass))
	}
	return nil
}

// Provision converts the connect and setup sections to a provision.Config.
func (c *Config) Provision() (provision.Config, error) {
	submit, err := provision.ParseSubmitPolicy(c.Connect.SubmitPolicy)
	if err != nil {
		return provision.Config{}, err
	}
	dual, err := provision.ParseDualMode(c.Connect.DualMode)
	if err != nil {
		return provision.Config{}, err
	}

	return provision.Config{
		SetupSSID:       c.SetupNetwork.SSID,
		SetupPassphrase: c.SetupNetwork.Passphrase,
		PollInterval:    c.Connect.PollInterval,
		MaxPolls:        c.Connect.MaxPolls,
		LoopInterval:    c.Connect.LoopInterval,
		BlinkPeriod:     c.Indicator.BlinkPeriod,
		SubmitPolicy:    submit,
		DualMode:        dual,
	}, nil
}
