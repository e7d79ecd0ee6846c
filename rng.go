package randpool

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"southwinds.dev/randpool/audit"
	"southwinds.dev/randpool/engine"
	"southwinds.dev/randpool/internal/mem"
	"southwinds.dev/randpool/persist"
)

// Engine is the generator capability behind the facade. The default
// implementation is engine.Pool; tests substitute stubs.
type Engine interface {
	// IsInitialized reports whether valid persisted state exists for the
	// identity under the key, without mutating anything.
	IsInitialized(identity string, key []byte) error

	// Initialize seeds the generator, resuming persisted state when it
	// exists. A false return with nil error means the entropy gathered at
	// this effort level was insufficient and a retry at higher effort may
	// succeed. A HardwareError is fatal.
	Initialize(identity string, effort int, key []byte) (bool, error)

	// SaveState seals and persists the current generator state.
	SaveState() error

	// GenerateBlock fills p with random bytes.
	GenerateBlock(p []byte) error

	// EntropyStrength classifies the configured entropy sources.
	EntropyStrength() engine.Strength

	// Destroy tears the generator down with a best-effort state save.
	Destroy() error
}

// RNG is the lifecycle facade over one generator engine. All methods are safe
// for concurrent use; destructive operations are serialized internally.
type RNG struct {
	mu      sync.RWMutex
	eng     Engine
	store   persist.Store
	audit   audit.Logger
	options Options

	protection  mem.ProtectionLevel
	identity    string // bound by the first successful Initialize
	initialized bool
	closed      bool
}

// New creates an RNG persisting through the given store. A nil auditLogger
// disables auditing. Engine options configure the default engine, e.g.
// engine.WithCollector to register extra entropy sources.
func New(options Options, store persist.Store, auditLogger audit.Logger, engOpts ...engine.Option) (*RNG, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := store.Ping(); err != nil {
		return nil, fmt.Errorf("store not reachable: %w", err)
	}

	if auditLogger == nil {
		auditLogger = audit.NewNoOpLogger()
	}

	protection := mem.ProtectionNone
	if options.EnableMemoryLock {
		var err error
		if protection, err = mem.Lock(); err != nil {
			return nil, fmt.Errorf("failed to lock memory: %w", err)
		}
	}

	eng, err := engine.New(store, engOpts...)
	if err != nil {
		return nil, err
	}

	r := &RNG{
		eng:        eng,
		store:      store,
		audit:      auditLogger,
		options:    options,
		protection: protection,
	}

	r.logAudit(r.newRequestID(), "RNG_CREATED", nil, map[string]interface{}{
		"store_type":        store.GetType(),
		"memory_protection": int(protection),
		"entropy_strength":  eng.EntropyStrength().String(),
	})

	return r, nil
}

// GetBytes returns n random bytes. The RNG must have been initialized;
// n == 0 returns an empty slice without touching the generator.
func (r *RNG) GetBytes(n uint32) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	if n == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, n)
	if err := r.eng.GenerateBlock(buf); err != nil {
		return nil, fmt.Errorf("failed to generate block: %w", err)
	}
	return buf, nil
}

// EntropyStrength reports how strong the configured entropy gathering is.
func (r *RNG) EntropyStrength() engine.Strength {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.eng.EntropyStrength()
}

// MemoryProtection reports the protection level achieved at construction.
func (r *RNG) MemoryProtection() mem.ProtectionLevel {
	return r.protection
}

// Audit returns the audit logger in use.
func (r *RNG) Audit() audit.Logger {
	return r.audit
}

// Close tears the RNG down: best-effort state save through the engine,
// generator wipe, memory unlock and audit flush. Close is idempotent; a
// second call is a no-op returning nil.
func (r *RNG) Close() error {
	startTime := time.Now()
	requestID := r.newRequestID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	err := r.eng.Destroy()

	if r.options.EnableMemoryLock {
		if unlockErr := mem.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}

	r.logAudit(requestID, "RNG_CLOSED", err, map[string]interface{}{
		"identity":    r.identity,
		"initialized": r.initialized,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	if auditErr := r.audit.Close(); auditErr != nil && err == nil {
		err = auditErr
	}
	return err
}

// outcomeFromError maps engine and store errors onto the stable status codes
// delivered through Outcome channels.
func outcomeFromError(err error) Outcome {
	switch {
	case err == nil:
		return newOutcome(StatusSuccess, nil)
	case errors.Is(err, engine.ErrStateNotFound) || errors.Is(err, persist.ErrStateNotFound):
		return newOutcome(StatusFileNotFound, nil)
	case errors.Is(err, engine.ErrDecryptionFailed) || errors.Is(err, engine.ErrInvalidState):
		return newOutcome(StatusDecryptionError, err)
	default:
		return newOutcome(StatusUnknownError, err)
	}
}

func (r *RNG) logAudit(requestID, action string, err error, metadata map[string]interface{}) {
	if r.audit == nil {
		return
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	metadata["request_id"] = requestID
	metadata["timestamp"] = time.Now().UTC()

	success := err == nil
	if err != nil {
		metadata["error"] = err.Error()
	}

	if auditErr := r.audit.Log(action, success, metadata); auditErr != nil {
		log.Printf("ERROR: audit logging failed for action %s: %v\n", action, auditErr)
	}
}

func (r *RNG) newRequestID() string {
	return "r_" + uuid.NewString()
}
