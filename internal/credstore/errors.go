package credstore

import (
	"errors"
	"fmt"
)

// ErrWriteFailed is matched (via errors.Is) by every StoreError raised when the
// underlying medium rejects a write, e.g. on erase-cycle exhaustion.
var ErrWriteFailed = errors.New("write failed")

// ErrFieldTooLong is matched by FieldError values for oversized fields.
var ErrFieldTooLong = errors.New("field exceeds slot size")

// ErrRegionSize is returned by regions asked to read or write an image of the
// wrong length.
var ErrRegionSize = errors.New("region image has wrong size")

// StoreError describes a failed store operation.
type StoreError struct {
	Op  string // "save" or "clear"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("credstore %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// FieldError reports a credential field that cannot be stored in its slot.
type FieldError struct {
	Field string
	Len   int
	NUL   bool // contains a zero byte
}

func (e *FieldError) Error() string {
	if e.NUL {
		return fmt.Sprintf("%s contains a NUL byte", e.Field)
	}
	return fmt.Sprintf("%s too long (max %d bytes): %d bytes", e.Field, FieldSize, e.Len)
}

// Is lets callers match oversized fields with errors.Is(err, ErrFieldTooLong).
func (e *FieldError) Is(target error) bool {
	return target == ErrFieldTooLong && !e.NUL
}

func writeFailed(op string, cause error) error {
	return &StoreError{Op: op, Err: fmt.Errorf("%w: %w", ErrWriteFailed, cause)}
}
