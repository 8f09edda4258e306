// Package provision decides, at every moment, whether the device broadcasts
// its setup network, tries to join a saved network, or waits for new
// credentials.
//
// # States
//
//	AccessPointOnly    setup network up, nothing to join (always entered at boot)
//	ConnectingStation  bounded join attempt in progress, indicator blinking
//	StationConnected   joined; setup network kept or torn down per DualMode
//	StationFailed      budget exhausted or join refused; setup network up
//
// # Loop
//
// A Machine is stepped by a single goroutine. Each Step consumes at most one
// pending submission, polls the radio if a poll is due and ticks the
// indicator. Nothing in a Step waits on the radio, so the retry budget is a
// count of polls spaced PollInterval apart rather than a sleep.
//
// Submissions arrive through Submit from any goroutine. Validation happens in
// the caller so a bad pair is rejected synchronously; accepted pairs sit in a
// one-slot mailbox and a later submission replaces an unconsumed one.
//
// No failure in this package stops the machine. The only way out of Run
// besides cancellation is ErrRestartRequested under the SubmitRestart policy.
package provision
