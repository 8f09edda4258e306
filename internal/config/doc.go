// Package config loads and saves the wifiprovd YAML configuration.
//
// # Configuration File Location
//
// The daemon reads $WIFIPROV_CONFIG, or /etc/wifiprov/wifiprovd.yaml when the
// variable is unset. A missing file is not an error: every field has a
// default, and fields left out of the file keep theirs.
//
// # Example
//
//	version: 1
//	setup_network:
//	  ssid: SetupNetwork
//	  passphrase: password123
//	http:
//	  port: 80
//	store:
//	  path: /var/lib/wifiprov/credentials.bin
//	connect:
//	  poll_interval: 500ms
//	  max_polls: 20
//	  loop_interval: 50ms
//	  submit_policy: reconnect
//	  dual_mode: keep-ap
//	indicator:
//	  driver: sysfs
//	  led: status
//	  blink_period: 500ms
//	discovery:
//	  enabled: true
//	  instance: wifiprov-kitchen
//
// # Security
//
// The file holds the setup network passphrase and is written 0600. Saved
// station credentials are never stored here.
package config
