package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemStore(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err, "Failed to create FileSystemStore")

	testStoreImplementation(t, store)
}

func TestFileSystemStoreEmptyBasePath(t *testing.T) {
	_, err := NewFileSystemStore("")
	assert.Error(t, err)
}

func TestFileSystemStoreFilePermissions(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewFileSystemStore(baseDir)
	require.NoError(t, err)
	defer store.Close()

	err = store.SaveState("perm-check", []byte("sealed"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(baseDir, "perm-check"+stateFileSuffix))
	require.NoError(t, err)
	assert.Equal(t, FilePermissions, info.Mode().Perm(),
		"State files should only be readable by the owner")
}

func TestFileSystemStoreLeavesNoTempFiles(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewFileSystemStore(baseDir)
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		err = store.SaveState("tmp-check", []byte("sealed"))
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(baseDir, tempDirName))
	require.NoError(t, err)
	assert.Empty(t, entries, "Temp directory should be empty after saves complete")
}

func TestFileSystemStoreListIgnoresTempDir(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveState("only-one", []byte("sealed")))

	identities, err := store.ListIdentities()
	require.NoError(t, err)
	assert.Equal(t, []string{"only-one"}, identities)
}
