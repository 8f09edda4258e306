package provision

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials matches every ConfigError.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConnectionTimeout means the retry budget ran out without a
	// connection.
	ErrConnectionTimeout = errors.New("connection timeout")

	// ErrJoinFailed means the radio refused the join or reported a failed
	// link before the budget ran out.
	ErrJoinFailed = errors.New("join failed")

	// ErrRestartRequested is returned by Step and Run once accepted
	// credentials must be applied by restarting the process.
	ErrRestartRequested = errors.New("restart requested to apply new credentials")

	// ErrRestartPending rejects submissions made after a restart was
	// requested. They would never be consumed.
	ErrRestartPending = errors.New("restart pending, try again after the device restarts")
)

// ConfigError rejects a credential submission.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidCredentials) true for every ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
