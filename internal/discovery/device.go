package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device is a provisioning daemon found on the network.
type Device struct {
	// Instance is the advertised instance name (e.g., "wifiprov-kitchen")
	Instance string

	// Hostname is the mDNS hostname (e.g., "kitchen.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the setup portal port
	Port int

	// Metadata holds the TXT record: state, path, ver, ready
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s [%s]", d.Instance, d.Hostname, net.JoinHostPort(d.IP, strconv.Itoa(d.Port)), d.State())
}

// BaseURL returns the setup portal URL for the device.
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// State returns the advertised provisioning state, or "unknown".
func (d *Device) State() string {
	if s := d.GetMetadata(TxtState); s != "" {
		return s
	}
	return "unknown"
}

// Ready reports whether the device advertises that it accepts credentials.
func (d *Device) Ready() bool {
	return d.GetMetadata(TxtReady) == "1"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
