package randpool

import (
	"golang.org/x/crypto/sha3"

	"southwinds.dev/randpool/engine"
)

// NormalizeKey maps a caller-supplied secret of any length onto the exact
// key size the engine seals state with.
//
// Secrets shorter than the key size are hashed with SHA3-256, so low-entropy
// or empty secrets still yield a full-width key. Secrets of the key size or
// longer contribute their leading bytes verbatim; the remainder is ignored.
// The function is pure and never fails, and the result never aliases the
// input.
func NormalizeKey(secret []byte) []byte {
	if len(secret) < engine.KeySize {
		digest := sha3.Sum256(secret)
		return digest[:]
	}

	key := make([]byte, engine.KeySize)
	copy(key, secret[:engine.KeySize])
	return key
}
