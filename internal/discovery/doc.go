// Package discovery advertises and finds provisioning daemons with multicast
// DNS.
//
// wifiprovd registers a "_wifiprov._tcp" service in "local." pointing at its
// setup portal, with a TXT record describing the current state:
//
//	path=/                         portal root
//	state=access_point_only        provisioning state
//	ready=1                        accepts new credentials
//	ver=v1.2.0                     daemon version
//
// The TXT record is republished whenever the state changes, so "wifiprov scan"
// shows live state without contacting each portal.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
