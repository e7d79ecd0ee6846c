// Package engine implements the entropy-pooled random generator behind the
// randpool facade: entropy collection with escalating effort, seed
// conditioning, a ratcheting ChaCha20 keystream generator, and encrypted
// persistence of generator state through a persist.Store.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"

	"southwinds.dev/randpool/persist"
)

// KeySize is the exact key length the pool accepts for sealing and
// unsealing persisted state.
const KeySize = 32

// Pool is a seeded random generator whose state can be sealed to, and
// resumed from, a persist.Store. A Pool starts unseeded; Initialize either
// resumes persisted state or seeds from freshly gathered entropy. One Pool
// belongs to exactly one facade instance and must not be shared.
type Pool struct {
	store      persist.Store
	collectors []Collector
	log        *logrus.Entry

	mu        sync.Mutex
	gen       *generator
	identity  string
	key       *memguard.Enclave // sealing key bound at Initialize
	seeded    bool
	destroyed bool
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithCollector registers an auxiliary entropy source in addition to the
// always-present OS source.
func WithCollector(c Collector) Option {
	return func(p *Pool) {
		p.collectors = append(p.collectors, c)
	}
}

// WithLogger replaces the default logrus logger.
func WithLogger(log *logrus.Logger) Option {
	return func(p *Pool) {
		p.log = log.WithField("component", "engine")
	}
}

// New creates an unseeded Pool persisting through the given store. The OS
// CSPRNG and a scheduling-jitter sampler are registered by default; further
// collectors raise the reported entropy strength.
func New(store persist.Store, opts ...Option) (*Pool, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	p := &Pool{
		store:      store,
		collectors: []Collector{osCollector{}, JitterCollector{}},
		log:        logrus.StandardLogger().WithField("component", "engine"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// IsInitialized checks whether valid persisted state exists for the
// identity under the given key. It never mutates the pool or the persisted
// blob: the sealed state is loaded, opened and discarded.
func (p *Pool) IsInitialized(identity string, key []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	sealed, err := p.store.LoadState(identity)
	if err != nil {
		if errors.Is(err, persist.ErrStateNotFound) {
			return ErrStateNotFound
		}
		return fmt.Errorf("failed to load pool state: %w", err)
	}

	st, err := openState(sealed, key)
	if err != nil {
		return err
	}
	st.wipe()
	return nil
}

// Initialize brings the pool into a seeded state. If sealed state exists
// for the identity and opens under the key, the generator resumes from it
// with a fresh OS sample mixed in. Otherwise entropy is gathered at the
// given effort level and conditioned into a new seed.
//
// The return value reports whether seeding succeeded; false with a nil
// error means the gathered sample was too weak and the caller should retry
// at a higher effort. A HardwareError is fatal and must not be retried.
func (p *Pool) Initialize(identity string, effort int, key []byte) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return false, ErrDestroyed
	}

	log := p.log.WithFields(logrus.Fields{
		"identity": identity,
		"effort":   effort,
	})

	if gen, ok := p.resumeLocked(identity, key, log); ok {
		p.bindLocked(gen, identity, key)
		log.Info("pool resumed from persisted state")
		return true, nil
	}

	pool, err := gather(p.collectors, effort, log)
	if err != nil {
		return false, err
	}
	defer memguard.WipeBytes(pool)

	if poolIsWeak(pool) {
		log.WithField("pool_size", len(pool)).Warn("gathered entropy too weak")
		return false, nil
	}

	seed, err := conditionSeed(pool)
	if err != nil {
		return false, err
	}

	gen, err := newGenerator(seed)
	if err != nil {
		return false, err
	}

	p.bindLocked(gen, identity, key)
	log.Info("pool seeded from gathered entropy")
	return true, nil
}

// resumeLocked attempts to rebuild the generator from persisted state.
// Missing state is the normal cold-start path; state that fails to open is
// logged and left untouched so a later save under the new key is a
// deliberate overwrite, not a silent one.
//
// The resumed key is never used to emit output directly: it is folded with
// a fresh OS sample into a new seed, so keystream emitted before the save
// can never be replayed, and a copied state file diverges immediately.
func (p *Pool) resumeLocked(identity string, key []byte, log *logrus.Entry) (*generator, bool) {
	sealed, err := p.store.LoadState(identity)
	if err != nil {
		if !errors.Is(err, persist.ErrStateNotFound) {
			log.WithError(err).Warn("failed to load persisted state, reseeding")
		}
		return nil, false
	}

	st, err := openState(sealed, key)
	if err != nil {
		log.WithError(err).Warn("persisted state unusable, reseeding")
		return nil, false
	}
	defer st.wipe()

	sample, err := (osCollector{}).Sample(generatorKeySize)
	if err != nil {
		log.WithError(err).Warn("failed to sample OS entropy for resume, reseeding")
		return nil, false
	}
	defer memguard.WipeBytes(sample)

	mix := sha3.New256()
	mix.Write(st.key)
	mix.Write(st.nonce)
	mix.Write(sample)
	seed := mix.Sum(nil)

	gen, err := newGenerator(seed)
	if err != nil {
		log.WithError(err).Warn("failed to rebuild generator, reseeding")
		return nil, false
	}
	return gen, true
}

func (p *Pool) bindLocked(gen *generator, identity string, key []byte) {
	if p.gen != nil {
		p.gen.wipe()
	}
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	p.gen = gen
	p.identity = identity
	p.key = memguard.NewEnclave(keyCopy)
	p.seeded = true
}

// SaveState seals the current generator state under the key bound at
// Initialize and writes it through the store, replacing any previous blob
// for the identity.
func (p *Pool) SaveState() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveStateLocked()
}

func (p *Pool) saveStateLocked() error {
	if p.destroyed {
		return ErrDestroyed
	}
	if !p.seeded {
		return ErrNotSeeded
	}

	key, nonce, counter, err := p.gen.snapshot()
	if err != nil {
		return err
	}
	st := &poolState{key: key, nonce: nonce, counter: counter, savedAt: time.Now().UTC()}
	defer st.wipe()

	keyBuf, err := p.key.Open()
	if err != nil {
		return fmt.Errorf("failed to open sealing key: %w", err)
	}
	defer keyBuf.Destroy()

	sealed, err := sealState(st, keyBuf.Bytes())
	if err != nil {
		return err
	}

	if err = p.store.SaveState(p.identity, sealed); err != nil {
		return fmt.Errorf("failed to persist pool state: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"identity": p.identity,
		"size":     len(sealed),
	}).Debug("pool state persisted")
	return nil
}

// GenerateBlock fills p with random bytes. The pool must be seeded.
func (p *Pool) GenerateBlock(buf []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return ErrDestroyed
	}
	if !p.seeded {
		return ErrNotSeeded
	}
	if len(buf) == 0 {
		return nil
	}
	return p.gen.read(buf)
}

// EntropyStrength classifies the configured entropy sources.
func (p *Pool) EntropyStrength() Strength {
	aux := len(p.collectors) - 1
	switch {
	case aux >= 2:
		return StrengthStrong
	case aux == 1:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

// Destroy tears the pool down with a best-effort state save, then wipes the
// generator and sealing key. Destroy is idempotent.
func (p *Pool) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil
	}

	var saveErr error
	if p.seeded {
		if saveErr = p.saveStateLocked(); saveErr != nil {
			p.log.WithError(saveErr).Warn("best-effort state save on destroy failed")
		}
		p.gen.wipe()
		p.gen = nil
	}

	p.seeded = false
	p.destroyed = true
	p.key = nil
	return saveErr
}

func validateKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	return nil
}
