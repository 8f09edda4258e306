// Package portal is the setup page served on the device's setup network and
// the client used by the wifiprov CLI to talk to it.
//
// # Routes
//
//	GET  /           setup form (HTML)
//	POST /configure  {"ssid": "...", "password": "..."} as JSON or a form post
//	GET  /status     provisioning snapshot as JSON
//	GET  /ws         websocket feed of snapshots
//
// # Configure responses
//
//	202  "Trying to connect..." (or "Rebooting to apply new network...")
//	400  "Bad JSON"
//	422  reason the pair was rejected
//
// A 202 means the pair was handed to the state machine, not that the device
// joined the network. Poll /status or watch /ws for that.
package portal
