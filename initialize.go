package randpool

import (
	"time"

	"southwinds.dev/randpool/internal/debug"
)

// maxEntropyAttempts bounds the escalating-effort seeding loop. Each attempt
// passes its ordinal to the engine as the entropy effort multiplier, so the
// final attempt gathers six times the baseline sample.
const maxEntropyAttempts = 6

// Initialize seeds the generator for the identity, resuming persisted state
// when it exists under the normalized secret, and binds the RNG to that
// identity for subsequent GetBytes/SaveState calls.
//
// When the engine reports the gathered entropy as too weak, the attempt is
// retried at the next effort level up to maxEntropyAttempts times before
// giving up with ErrEntropyExhausted. Engine errors, hardware faults
// included, are not retried and propagate immediately.
//
// Initialize is synchronous: seeding is a cold-start cost the caller pays
// once, and the escalation loop needs the result of each attempt before
// starting the next.
func (r *RNG) Initialize(secret []byte, identity string) (bool, error) {
	startTime := time.Now()
	requestID := r.newRequestID()

	sec := r.options.resolveSecret(secret)
	if sec == nil {
		return false, ErrNoSecret
	}
	id := r.options.resolveIdentity(identity)
	key := NormalizeKey(sec)

	r.logAudit(requestID, "INITIALIZE_INITIATED", nil, map[string]interface{}{
		"identity": id,
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logAudit(requestID, "INITIALIZE_FAILED", ErrClosed, map[string]interface{}{
			"identity":    id,
			"duration_ms": time.Since(startTime).Milliseconds(),
		})
		return false, ErrClosed
	}

	for attempt := 0; attempt < maxEntropyAttempts; attempt++ {
		debug.Print("initialize identity=%s attempt=%d\n", id, attempt)

		ok, err := r.eng.Initialize(id, attempt, key)
		if err != nil {
			r.logAudit(requestID, "INITIALIZE_FAILED", err, map[string]interface{}{
				"identity":    id,
				"attempt":     attempt,
				"duration_ms": time.Since(startTime).Milliseconds(),
			})
			return false, err
		}
		if ok {
			r.identity = id
			r.initialized = true
			r.logAudit(requestID, "INITIALIZE_COMPLETED", nil, map[string]interface{}{
				"identity":    id,
				"attempts":    attempt + 1,
				"duration_ms": time.Since(startTime).Milliseconds(),
			})
			return true, nil
		}
	}

	r.logAudit(requestID, "INITIALIZE_FAILED", ErrEntropyExhausted, map[string]interface{}{
		"identity":    id,
		"attempts":    maxEntropyAttempts,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})
	return false, ErrEntropyExhausted
}
