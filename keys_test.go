package randpool

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"southwinds.dev/randpool/engine"
)

func TestNormalizeKeyShortSecretIsHashed(t *testing.T) {
	secret := []byte("short secret")
	expected := sha3.Sum256(secret)

	key := NormalizeKey(secret)
	assert.Len(t, key, engine.KeySize)
	assert.Equal(t, expected[:], key)
}

func TestNormalizeKeyEmptySecret(t *testing.T) {
	expected := sha3.Sum256(nil)

	key := NormalizeKey(nil)
	assert.Len(t, key, engine.KeySize)
	assert.Equal(t, expected[:], key)

	assert.Equal(t, key, NormalizeKey([]byte{}))
}

func TestNormalizeKeyLongSecretIsTruncated(t *testing.T) {
	secret := make([]byte, 64)
	for i := range secret {
		secret[i] = byte(i)
	}

	key := NormalizeKey(secret)
	assert.Len(t, key, engine.KeySize)
	assert.Equal(t, secret[:engine.KeySize], key)
}

func TestNormalizeKeyExactSizeSecret(t *testing.T) {
	secret := make([]byte, engine.KeySize)
	for i := range secret {
		secret[i] = byte(255 - i)
	}

	key := NormalizeKey(secret)
	assert.Equal(t, secret, key)
}

func TestNormalizeKeyNeverAliasesInput(t *testing.T) {
	secret := bytes.Repeat([]byte{0xAA}, 48)
	key := NormalizeKey(secret)

	secret[0] = 0x00
	assert.Equal(t, byte(0xAA), key[0], "key must not share backing array with secret")
}

func TestNormalizeKeyDeterministic(t *testing.T) {
	for _, secret := range [][]byte{nil, []byte("a"), bytes.Repeat([]byte{7}, 100)} {
		assert.Equal(t, NormalizeKey(secret), NormalizeKey(secret))
	}
}

func TestNormalizeKeyDistinctInputsDistinctKeys(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		secret := make([]byte, 16)
		_, err := rand.Read(secret)
		require.NoError(t, err)

		key := string(NormalizeKey(secret))
		_, dup := seen[key]
		require.False(t, dup, "collision after %d keys", i)
		seen[key] = struct{}{}
	}
}

func TestNormalizeKeyLengthBoundary(t *testing.T) {
	// One byte below the key size hashes, at the key size copies.
	below := bytes.Repeat([]byte{1}, engine.KeySize-1)
	at := bytes.Repeat([]byte{1}, engine.KeySize)

	hashed := sha3.Sum256(below)
	assert.Equal(t, hashed[:], NormalizeKey(below))
	assert.Equal(t, at, NormalizeKey(at))
}

func ExampleNormalizeKey() {
	key := NormalizeKey([]byte("correct horse battery staple"))
	fmt.Println(len(key))
	// Output: 32
}
