package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"southwinds.dev/randpool/persist"
)

func newTestPool(t *testing.T) (*Pool, persist.Store) {
	t.Helper()
	store, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	p, err := New(store)
	require.NoError(t, err)
	return p, store
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestInitializeColdStart(t *testing.T) {
	p, store := newTestPool(t)
	key := randomKey(t)

	ok, err := p.Initialize("cold", 0, key)
	require.NoError(t, err)
	require.True(t, ok)

	buf := make([]byte, 64)
	require.NoError(t, p.GenerateBlock(buf))
	assert.NotEqual(t, make([]byte, 64), buf)

	// Nothing persisted until SaveState.
	exists, err := store.StateExists("cold")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInitializeRejectsBadKey(t *testing.T) {
	p, _ := newTestPool(t)

	_, err := p.Initialize("id", 0, []byte("short"))
	assert.Error(t, err)

	err = p.IsInitialized("id", nil)
	assert.Error(t, err)
}

func TestGenerateBlockBeforeSeeding(t *testing.T) {
	p, _ := newTestPool(t)

	err := p.GenerateBlock(make([]byte, 8))
	assert.ErrorIs(t, err, ErrNotSeeded)
}

func TestSaveStateAndProbe(t *testing.T) {
	p, store := newTestPool(t)
	key := randomKey(t)

	ok, err := p.Initialize("probe-me", 0, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, p.SaveState())

	exists, err := store.StateExists("probe-me")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, p.IsInitialized("probe-me", key))
	assert.ErrorIs(t, p.IsInitialized("probe-me", randomKey(t)), ErrDecryptionFailed)
	assert.ErrorIs(t, p.IsInitialized("absent", key), ErrStateNotFound)
}

func TestSaveStateBeforeSeeding(t *testing.T) {
	p, _ := newTestPool(t)
	assert.ErrorIs(t, p.SaveState(), ErrNotSeeded)
}

func TestResumeFromPersistedState(t *testing.T) {
	store, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	key := randomKey(t)

	p1, err := New(store)
	require.NoError(t, err)

	ok, err := p1.Initialize("resume", 0, key)
	require.NoError(t, err)
	require.True(t, ok)

	before := make([]byte, 64)
	require.NoError(t, p1.GenerateBlock(before))
	require.NoError(t, p1.SaveState())

	p2, err := New(store)
	require.NoError(t, err)

	ok, err = p2.Initialize("resume", 0, key)
	require.NoError(t, err)
	require.True(t, ok)

	after := make([]byte, 64)
	require.NoError(t, p2.GenerateBlock(after))
	assert.NotEqual(t, before, after,
		"a resumed generator must never replay earlier output")
}

func TestResumeWithWrongKeyReseeds(t *testing.T) {
	store, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	p1, err := New(store)
	require.NoError(t, err)
	ok, err := p1.Initialize("reseed", 0, randomKey(t))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, p1.SaveState())

	// A different key cannot open the blob; the pool seeds fresh instead.
	p2, err := New(store)
	require.NoError(t, err)
	ok, err = p2.Initialize("reseed", 0, randomKey(t))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDestroy(t *testing.T) {
	p, store := newTestPool(t)
	key := randomKey(t)

	ok, err := p.Initialize("bye", 0, key)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, p.Destroy())

	// Destroy saves state on the way out.
	exists, err := store.StateExists("bye")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.ErrorIs(t, p.GenerateBlock(make([]byte, 8)), ErrDestroyed)
	_, err = p.Initialize("bye", 0, key)
	assert.ErrorIs(t, err, ErrDestroyed)

	assert.NoError(t, p.Destroy(), "Destroy is idempotent")
}

func TestDestroyUnseeded(t *testing.T) {
	p, _ := newTestPool(t)
	assert.NoError(t, p.Destroy())
}

func TestEntropyStrengthClassification(t *testing.T) {
	p, _ := newTestPool(t)

	// Default configuration: OS plus the jitter sampler.
	assert.Equal(t, StrengthMedium, p.EntropyStrength())

	p.collectors = []Collector{osCollector{}}
	assert.Equal(t, StrengthWeak, p.EntropyStrength())

	p.collectors = []Collector{osCollector{}, JitterCollector{}, &recordingCollector{name: "extra"}}
	assert.Equal(t, StrengthStrong, p.EntropyStrength())
}

func TestWithCollectorOption(t *testing.T) {
	store, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	p, err := New(store, WithCollector(&recordingCollector{name: "extra", payload: 1}))
	require.NoError(t, err)
	assert.Equal(t, StrengthStrong, p.EntropyStrength())
}

func TestStrengthString(t *testing.T) {
	assert.Equal(t, "WEAK", StrengthWeak.String())
	assert.Equal(t, "MEDIUM", StrengthMedium.String())
	assert.Equal(t, "STRONG", StrengthStrong.String())
}
