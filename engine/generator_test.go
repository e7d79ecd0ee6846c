package engine

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T) *generator {
	t.Helper()
	seed := make([]byte, generatorKeySize)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	g, err := newGenerator(seed)
	require.NoError(t, err)
	return g
}

func TestNewGeneratorRejectsBadSeed(t *testing.T) {
	_, err := newGenerator(make([]byte, 16))
	assert.Error(t, err)

	_, err = newGenerator(nil)
	assert.Error(t, err)
}

func TestGeneratorSuccessiveReadsDiffer(t *testing.T) {
	g := newTestGenerator(t)

	first := make([]byte, 64)
	second := make([]byte, 64)
	require.NoError(t, g.read(first))
	require.NoError(t, g.read(second))

	assert.False(t, bytes.Equal(first, second))
}

func TestGeneratorDiscardsPartialBlocks(t *testing.T) {
	g := newTestGenerator(t)

	one := make([]byte, 1)
	require.NoError(t, g.read(one))
	assert.Equal(t, uint32(1), g.counter, "a partial block still consumes a whole counter slot")

	require.NoError(t, g.read(one))
	assert.Equal(t, uint32(2), g.counter)
}

func TestGeneratorRatchetsAtEpochBoundary(t *testing.T) {
	g := newTestGenerator(t)

	keyBefore, nonceBefore, _, err := g.snapshot()
	require.NoError(t, err)

	// Start one block before the boundary so a 128-byte read crosses it.
	g.counter = ratchetBlocks - 1
	buf := make([]byte, 128)
	require.NoError(t, g.read(buf))

	keyAfter, nonceAfter, counterAfter, err := g.snapshot()
	require.NoError(t, err)

	assert.False(t, bytes.Equal(keyBefore, keyAfter), "ratchet must replace the key")
	assert.False(t, bytes.Equal(nonceBefore, nonceAfter), "ratchet must advance the nonce")
	assert.Equal(t, uint32(1), counterAfter, "one block consumed in the new epoch")
}

func TestGeneratorSnapshotShape(t *testing.T) {
	g := newTestGenerator(t)

	key, nonce, counter, err := g.snapshot()
	require.NoError(t, err)
	assert.Len(t, key, generatorKeySize)
	assert.Len(t, nonce, generatorNonceSize)
	assert.Zero(t, counter)
}

func TestGeneratorOutputNotAllZero(t *testing.T) {
	g := newTestGenerator(t)

	buf := make([]byte, 4096)
	require.NoError(t, g.read(buf))
	assert.NotEqual(t, make([]byte, 4096), buf)
}
