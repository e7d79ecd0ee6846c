package engine

import (
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20"
)

const (
	generatorKeySize   = chacha20.KeySize
	generatorNonceSize = chacha20.NonceSize

	// ratchetBlocks is the number of 64-byte keystream blocks produced under
	// one key before the generator ratchets to a fresh key. 2^16 blocks is
	// 4 MiB of output per epoch.
	ratchetBlocks uint32 = 1 << 16
)

// generator is a ChaCha20 keystream generator with forward secrecy through
// periodic key ratcheting. The key lives in a memguard enclave and is only
// materialized for the duration of a single operation.
//
// The keystream block at the epoch boundary is reserved for deriving the
// next key and is never emitted as output, so ratcheting cannot reuse
// keystream.
type generator struct {
	key     *memguard.Enclave
	nonce   [generatorNonceSize]byte
	counter uint32 // next unused keystream block within the current epoch
}

// newGenerator seeds a generator from a 32-byte key. The seed slice is wiped
// by the enclave constructor.
func newGenerator(seed []byte) (*generator, error) {
	if len(seed) != generatorKeySize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", generatorKeySize, len(seed))
	}

	g := &generator{key: memguard.NewEnclave(seed)}
	if _, err := rand.Read(g.nonce[:]); err != nil {
		return nil, &HardwareError{Source: "os", Err: fmt.Errorf("nonce generation: %w", err)}
	}
	return g, nil
}

// read fills p with keystream output, ratcheting the key whenever the
// current epoch runs out of blocks.
func (g *generator) read(p []byte) error {
	for len(p) > 0 {
		if g.counter >= ratchetBlocks {
			if err := g.ratchet(); err != nil {
				return err
			}
		}

		// Whole blocks available before the next ratchet point.
		available := int(ratchetBlocks-g.counter) * 64
		n := len(p)
		if n > available {
			n = available
		}

		if err := g.stream(p[:n], g.counter); err != nil {
			return err
		}

		// Partial tail blocks are discarded, never resumed.
		g.counter += uint32((n + 63) / 64)
		p = p[n:]
	}
	return nil
}

// ratchet derives the next epoch key from the reserved block at the end of
// the current epoch, then advances the nonce and resets the block counter.
func (g *generator) ratchet() error {
	next := make([]byte, generatorKeySize)
	if err := g.stream(next, ratchetBlocks); err != nil {
		return err
	}

	g.key = memguard.NewEnclave(next)
	for i := range g.nonce {
		g.nonce[i]++
		if g.nonce[i] != 0 {
			break
		}
	}
	g.counter = 0
	return nil
}

// stream writes keystream starting at the given block counter into dst.
func (g *generator) stream(dst []byte, counter uint32) error {
	keyBuf, err := g.key.Open()
	if err != nil {
		return fmt.Errorf("failed to open generator key: %w", err)
	}
	defer keyBuf.Destroy()

	c, err := chacha20.NewUnauthenticatedCipher(keyBuf.Bytes(), g.nonce[:])
	if err != nil {
		return fmt.Errorf("failed to build keystream cipher: %w", err)
	}
	c.SetCounter(counter)

	for i := range dst {
		dst[i] = 0
	}
	c.XORKeyStream(dst, dst)
	return nil
}

// snapshot copies the generator state out for serialization. The returned
// key copy must be wiped by the caller.
func (g *generator) snapshot() (key []byte, nonce []byte, counter uint32, err error) {
	keyBuf, err := g.key.Open()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to open generator key: %w", err)
	}
	defer keyBuf.Destroy()

	key = make([]byte, generatorKeySize)
	copy(key, keyBuf.Bytes())
	nonce = make([]byte, generatorNonceSize)
	copy(nonce, g.nonce[:])
	return key, nonce, g.counter, nil
}

// wipe destroys the key material. The generator is unusable afterwards.
func (g *generator) wipe() {
	if buf, err := g.key.Open(); err == nil {
		buf.Destroy()
	}
	g.key = nil
}
