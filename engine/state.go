package engine

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
)

// Persisted state layout, before sealing:
//
//	[4 bytes: magic "RPS1"]
//	[1 byte:  layout version]
//	[32 bytes: generator key]
//	[12 bytes: generator nonce]
//	[4 bytes: block counter (big-endian)]
//	[8 bytes: save time, unix seconds (big-endian)]
//
// The whole record is sealed with ChaCha20-Poly1305 under the caller's
// normalized key and stored as [12-byte nonce][ciphertext+tag]. The
// authentication tag is what turns a wrong key into a detectable
// decryption failure rather than garbage state.
var stateMagic = [4]byte{'R', 'P', 'S', '1'}

const (
	stateVersion    = 1
	statePlainSize  = 4 + 1 + generatorKeySize + generatorNonceSize + 4 + 8
	sealedNonceSize = chacha20poly1305.NonceSize
)

// poolState is the decoded persisted form of a generator.
type poolState struct {
	key     []byte
	nonce   []byte
	counter uint32
	savedAt time.Time
}

func (s *poolState) wipe() {
	memguard.WipeBytes(s.key)
}

// sealState serializes and encrypts generator state under the given key.
func sealState(st *poolState, key []byte) ([]byte, error) {
	plain := make([]byte, 0, statePlainSize)
	plain = append(plain, stateMagic[:]...)
	plain = append(plain, stateVersion)
	plain = append(plain, st.key...)
	plain = append(plain, st.nonce...)
	plain = binary.BigEndian.AppendUint32(plain, st.counter)
	plain = binary.BigEndian.AppendUint64(plain, uint64(st.savedAt.Unix()))
	defer memguard.WipeBytes(plain)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create state cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate state nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plain, nil)

	sealed := make([]byte, len(nonce)+len(ciphertext))
	copy(sealed[:len(nonce)], nonce)
	copy(sealed[len(nonce):], ciphertext)
	return sealed, nil
}

// openState decrypts and decodes a sealed state blob. A failed
// authentication check surfaces as ErrDecryptionFailed; a blob that opens
// but does not parse surfaces as ErrInvalidState.
func openState(sealed []byte, key []byte) (*poolState, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create state cipher: %w", err)
	}

	if len(sealed) < sealedNonceSize+aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed blob too short", ErrInvalidState)
	}

	nonce := sealed[:sealedNonceSize]
	ciphertext := sealed[sealedNonceSize:]

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	defer memguard.WipeBytes(plain)

	if len(plain) != statePlainSize {
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidState, len(plain))
	}
	if !bytes.Equal(plain[:4], stateMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidState)
	}
	if plain[4] != stateVersion {
		return nil, fmt.Errorf("%w: unsupported layout version %d", ErrInvalidState, plain[4])
	}

	off := 5
	st := &poolState{
		key:   make([]byte, generatorKeySize),
		nonce: make([]byte, generatorNonceSize),
	}
	copy(st.key, plain[off:off+generatorKeySize])
	off += generatorKeySize
	copy(st.nonce, plain[off:off+generatorNonceSize])
	off += generatorNonceSize
	st.counter = binary.BigEndian.Uint32(plain[off : off+4])
	off += 4
	st.savedAt = time.Unix(int64(binary.BigEndian.Uint64(plain[off:off+8])), 0).UTC()

	return st, nil
}
