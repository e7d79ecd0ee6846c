package randpool

import (
	"time"
)

// Probe checks asynchronously whether valid persisted state exists for the
// identity under the normalized secret. Argument validation is synchronous;
// the storage round trip runs on its own goroutine and the caller is never
// blocked. The returned channel is buffered and delivers exactly one
// Outcome:
//
//	StatusSuccess         — state exists and opens under the key
//	StatusFileNotFound    — no state persisted for the identity
//	StatusDecryptionError — state exists but does not open under the key
//	StatusUnknownError    — storage or environment failure
//
// Probe never mutates persisted state.
func (r *RNG) Probe(secret []byte, identity string) (<-chan Outcome, error) {
	startTime := time.Now()
	requestID := r.newRequestID()

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	sec := r.options.resolveSecret(secret)
	if sec == nil {
		return nil, ErrNoSecret
	}
	id := r.options.resolveIdentity(identity)
	key := NormalizeKey(sec)

	ch := make(chan Outcome, 1)
	go func() {
		outcome := outcomeFromError(r.eng.IsInitialized(id, key))

		r.logAudit(requestID, "PROBE_COMPLETED", outcome.Err, map[string]interface{}{
			"identity":    id,
			"status":      outcome.Message,
			"duration_ms": time.Since(startTime).Milliseconds(),
		})
		ch <- outcome
	}()
	return ch, nil
}

// SaveState seals the current generator state under the key bound at
// Initialize and persists it asynchronously, replacing any previous blob for
// the identity. The returned channel delivers exactly one Outcome.
//
// Concurrent SaveState calls on one handle are not atomic with respect to
// each other; callers wanting a defined final blob serialize their saves.
func (r *RNG) SaveState() (<-chan Outcome, error) {
	startTime := time.Now()
	requestID := r.newRequestID()

	r.mu.RLock()
	closed, initialized, id := r.closed, r.initialized, r.identity
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !initialized {
		return nil, ErrNotInitialized
	}

	ch := make(chan Outcome, 1)
	go func() {
		outcome := outcomeFromError(r.eng.SaveState())

		r.logAudit(requestID, "SAVE_STATE_COMPLETED", outcome.Err, map[string]interface{}{
			"identity":    id,
			"status":      outcome.Message,
			"duration_ms": time.Since(startTime).Milliseconds(),
		})
		ch <- outcome
	}()
	return ch, nil
}
