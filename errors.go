package randpool

import "errors"

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("rng is closed")

	// ErrNoSecret is returned when an operation requiring a secret receives
	// none and no environment fallback is configured.
	ErrNoSecret = errors.New("secret is required")

	// ErrNotInitialized is returned by GetBytes and SaveState before a
	// successful Initialize.
	ErrNotInitialized = errors.New("rng is not initialized")

	// ErrEntropyExhausted is returned by Initialize when the engine still
	// reports a weak entropy pool at the maximum effort level.
	ErrEntropyExhausted = errors.New("not enough entropy")
)
