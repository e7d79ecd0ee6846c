package randpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"southwinds.dev/randpool/persist"
)

func newInitializedRNG(t *testing.T, secret []byte, identity string) *RNG {
	t.Helper()
	store, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	rng, err := New(Options{}, store, nil)
	require.NoError(t, err)
	t.Cleanup(func() { rng.Close() })

	ok, err := rng.Initialize(secret, identity)
	require.NoError(t, err)
	require.True(t, ok)
	return rng
}

func TestExportStateRequiresInitialize(t *testing.T) {
	store, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	rng, err := New(Options{}, store, nil)
	require.NoError(t, err)
	defer rng.Close()

	_, err = rng.ExportState("passphrase")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestExportStateRequiresPassphrase(t *testing.T) {
	rng := newInitializedRNG(t, []byte("secret"), "exp-1")

	_, err := rng.ExportState("")
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	secret := []byte("bundle-secret")
	source := newInitializedRNG(t, secret, "mover")

	bundle, err := source.ExportState("transit passphrase")
	require.NoError(t, err)
	assert.Equal(t, "mover", bundle.Identity)
	assert.Equal(t, StateBundleVersion, bundle.BundleVersion)
	assert.NotEmpty(t, bundle.BundleID)
	assert.NotEmpty(t, bundle.Checksum)

	// Import into a completely separate store.
	destStore, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	dest, err := New(Options{}, destStore, nil)
	require.NoError(t, err)
	defer dest.Close()

	require.NoError(t, dest.ImportState(bundle, "transit passphrase"))

	// The imported state opens under the original secret.
	ch, err := dest.Probe(secret, "mover")
	require.NoError(t, err)
	outcome := <-ch
	assert.Equal(t, StatusSuccess, outcome.Code)

	ok, err := dest.Initialize(secret, "mover")
	require.NoError(t, err)
	assert.True(t, ok)

	buf, err := dest.GetBytes(32)
	require.NoError(t, err)
	assert.Len(t, buf, 32)
}

func TestImportStateWrongPassphrase(t *testing.T) {
	source := newInitializedRNG(t, []byte("secret"), "imp-1")

	bundle, err := source.ExportState("right")
	require.NoError(t, err)

	destStore, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	dest, err := New(Options{}, destStore, nil)
	require.NoError(t, err)
	defer dest.Close()

	assert.Error(t, dest.ImportState(bundle, "wrong"))
}

func TestImportStateTamperedPayload(t *testing.T) {
	source := newInitializedRNG(t, []byte("secret"), "imp-2")

	bundle, err := source.ExportState("passphrase")
	require.NoError(t, err)
	bundle.Checksum = "0000000000000000000000000000000000000000000000000000000000000000"

	destStore, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	dest, err := New(Options{}, destStore, nil)
	require.NoError(t, err)
	defer dest.Close()

	err = dest.ImportState(bundle, "passphrase")
	assert.ErrorContains(t, err, "checksum")
}

func TestImportStateValidation(t *testing.T) {
	destStore, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	dest, err := New(Options{}, destStore, nil)
	require.NoError(t, err)
	defer dest.Close()

	assert.Error(t, dest.ImportState(nil, "passphrase"))
	assert.Error(t, dest.ImportState(&StateBundle{BundleVersion: "9.9.9"}, "passphrase"))
	assert.Error(t, dest.ImportState(&StateBundle{BundleVersion: StateBundleVersion}, ""))
}
