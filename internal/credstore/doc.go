// Package credstore persists the single WiFi credential pair used by the
// provisioning daemon.
//
// # Layout
//
// The pair lives in a reserved 64-byte region:
//
//	offset  0..31  network name, zero padded
//	offset 32..63  secret, zero padded
//
// A slot filled completely carries no terminator. An empty network name (a
// zero first byte) means "no credentials", whatever the secret slot holds.
//
// # Failure semantics
//
// Load never fails: read faults and malformed images yield the empty pair.
// Save and Clear return a *StoreError that matches ErrWriteFailed when the
// medium rejects the write; the previous image stays intact.
package credstore
