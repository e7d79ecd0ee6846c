package engine

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"
)

const (
	// baseSampleSize is the number of bytes requested from each collector at
	// effort level 0. Every additional effort level adds another multiple,
	// so a level-5 attempt pulls six times as much raw material.
	baseSampleSize = 64

	// seedSaltSize is the size of the random salt mixed into the Argon2id
	// conditioning step.
	seedSaltSize = 16

	// Argon2id parameters for seed conditioning. Memory is deliberately
	// modest: conditioning runs once per cold start, not per request.
	seedArgonTime    uint32 = 2
	seedArgonMemory  uint32 = 64 * 1024
	seedArgonThreads uint8  = 2
)

// Collector is a single source of raw entropy. Implementations must return
// exactly n bytes or an error; partial samples are not acceptable seed
// material.
type Collector interface {
	// Name identifies the source in logs and fault reports.
	Name() string

	// Sample reads n bytes of raw entropy from the source.
	Sample(n int) ([]byte, error)
}

// osCollector reads from the operating system CSPRNG. It is always present
// and is the only collector whose failure is fatal: if the OS cannot supply
// randomness the host is broken and retrying cannot fix it.
type osCollector struct{}

func (osCollector) Name() string { return "os" }

func (osCollector) Sample(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// JitterCollector derives entropy from scheduling and clock jitter. It is an
// auxiliary source: cheap, available everywhere, and independent of the OS
// CSPRNG, but of modest quality on its own.
type JitterCollector struct{}

func (JitterCollector) Name() string { return "jitter" }

// Sample measures the low-order bits of wall-clock deltas across forced
// reschedule points. Each output byte folds eight timing measurements.
func (JitterCollector) Sample(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		var b byte
		for bit := 0; bit < 8; bit++ {
			start := time.Now().UnixNano()
			runtime.Gosched()
			delta := time.Now().UnixNano() - start
			b = b<<1 | byte(delta&1)
		}
		buf[i] = b
	}
	return buf, nil
}

// gather pulls one sample per collector at the given effort level and
// returns the concatenated pool. The OS collector failing produces a
// HardwareError; auxiliary collector failures are logged and skipped so a
// broken microphone-class source cannot take initialization down with it.
func gather(collectors []Collector, effort int, log *logrus.Entry) ([]byte, error) {
	sampleSize := baseSampleSize * (effort + 1)
	pool := make([]byte, 0, sampleSize*len(collectors))

	for _, c := range collectors {
		sample, err := c.Sample(sampleSize)
		if err != nil {
			if c.Name() == "os" {
				return nil, &HardwareError{Source: c.Name(), Err: err}
			}
			log.WithFields(logrus.Fields{
				"source": c.Name(),
				"error":  err,
			}).Warn("auxiliary entropy source failed, skipping")
			continue
		}
		pool = append(pool, sample...)
	}

	log.WithFields(logrus.Fields{
		"effort":      effort,
		"sample_size": sampleSize,
		"pool_size":   len(pool),
		"collectors":  len(collectors),
	}).Debug("entropy gathered")

	return pool, nil
}

// poolIsWeak applies a cheap diversity test to a gathered pool. It cannot
// prove a pool is strong, only reject obviously degenerate samples such as
// a stuck source returning constant bytes.
func poolIsWeak(pool []byte) bool {
	if len(pool) < baseSampleSize {
		return true
	}

	seen := make(map[byte]struct{}, 256)
	for _, b := range pool {
		seen[b] = struct{}{}
	}

	// A healthy pool of 128+ bytes covers well over a quarter of the byte
	// space. Stuck or looping sources fall far below this line.
	minUnique := len(pool) / 4
	if minUnique > 64 {
		minUnique = 64
	}
	if minUnique < 16 {
		minUnique = 16
	}
	return len(seen) < minUnique
}

// conditionSeed mixes a raw entropy pool down to a 32-byte generator key
// using Argon2id with a fresh random salt.
func conditionSeed(pool []byte) ([]byte, error) {
	salt := make([]byte, seedSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, &HardwareError{Source: "os", Err: fmt.Errorf("salt generation: %w", err)}
	}

	return argon2.IDKey(pool, salt, seedArgonTime, seedArgonMemory, seedArgonThreads, generatorKeySize), nil
}
