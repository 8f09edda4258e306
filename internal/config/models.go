package config

import "time"

// CurrentVersion is the only config file version understood.
const CurrentVersion = 1

// Config is the wifiprovd configuration file.
type Config struct {
	Version      int          `yaml:"version"`
	SetupNetwork SetupNetwork `yaml:"setup_network"`
	HTTP         HTTP         `yaml:"http"`
	Store        Store        `yaml:"store"`
	Connect      Connect      `yaml:"connect"`
	Indicator    Indicator    `yaml:"indicator"`
	Discovery    Discovery    `yaml:"discovery"`
	Simulation   Simulation   `yaml:"simulation"`
}

// SetupNetwork is the access point the device broadcasts for provisioning.
type SetupNetwork struct {
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"` // Empty means an open network
}

// HTTP is the setup portal listener.
type HTTP struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Store is where the credential region lives.
type Store struct {
	Path string `yaml:"path"`
}

// Connect controls station attempts and what follows a submission.
type Connect struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
	LoopInterval time.Duration `yaml:"loop_interval"`
	SubmitPolicy string        `yaml:"submit_policy"` // reconnect | restart
	DualMode     string        `yaml:"dual_mode"`     // keep-ap | teardown-ap
}

// Indicator selects the status output driver.
type Indicator struct {
	Driver      string        `yaml:"driver"` // log | sysfs
	LED         string        `yaml:"led,omitempty"`
	LEDRoot     string        `yaml:"led_root,omitempty"`
	BlinkPeriod time.Duration `yaml:"blink_period"`
}

// Discovery controls the mDNS advertisement.
type Discovery struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

// Simulation configures the in-process radio.
type Simulation struct {
	ConnectAfter int          `yaml:"connect_after"` // status polls before a join settles
	Networks     []SimNetwork `yaml:"networks,omitempty"`
}

// SimNetwork is a network the simulated radio can join.
type SimNetwork struct {
	Name   string `yaml:"name"`
	Secret string `yaml:"secret"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		SetupNetwork: SetupNetwork{
			SSID:       "SetupNetwork",
			Passphrase: "password123",
		},
		HTTP: HTTP{
			Port: 80,
		},
		Store: Store{
			Path: "/var/lib/wifiprov/credentials.bin",
		},
		Connect: Connect{
			PollInterval: 500 * time.Millisecond,
			MaxPolls:     20,
			LoopInterval: 50 * time.Millisecond,
			SubmitPolicy: "reconnect",
			DualMode:     "keep-ap",
		},
		Indicator: Indicator{
			Driver:      "log",
			BlinkPeriod: 500 * time.Millisecond,
		},
		Discovery: Discovery{
			Enabled:  true,
			Instance: "wifiprov",
		},
		Simulation: Simulation{
			ConnectAfter: 3,
		},
	}
}
