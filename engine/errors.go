package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrStateNotFound indicates no persisted pool state exists for the
	// requested identity.
	ErrStateNotFound = errors.New("pool state not found")

	// ErrDecryptionFailed indicates persisted state exists but could not be
	// opened with the supplied key, either because the key is wrong or the
	// blob has been tampered with.
	ErrDecryptionFailed = errors.New("pool state decryption failed")

	// ErrInvalidState indicates the persisted blob decrypted correctly but
	// does not carry a state layout this engine understands.
	ErrInvalidState = errors.New("pool state is invalid")

	// ErrNotSeeded is returned by operations that require a seeded pool
	// (block generation, state persistence) before Initialize has succeeded.
	ErrNotSeeded = errors.New("pool is not seeded")

	// ErrDestroyed is returned once the pool has been torn down.
	ErrDestroyed = errors.New("pool is destroyed")
)

// HardwareError reports a fault in an entropy source itself, as opposed to a
// sample that was merely too weak. Callers must treat it as non-retryable:
// collecting again from a broken source cannot help.
type HardwareError struct {
	Source string
	Err    error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("entropy source %s failed: %v", e.Source, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}
