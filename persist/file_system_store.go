package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// FilePermissions restricts state files to the owning user. Sealed
	// blobs are ciphertext, but the file's existence and size leak less
	// when nobody else can read them.
	FilePermissions os.FileMode = 0600
	DirPermissions  os.FileMode = 0700

	stateFileSuffix = ".state"
	tempDirName     = "temp"
)

// FileSystemStore implements Store on the local filesystem. Each identity
// maps to one file, <basePath>/<identity>.state, and writes go through a
// temp-file-and-rename sequence so readers never observe partial blobs.
type FileSystemStore struct {
	basePath string
	tempDir  string
}

// NewFileSystemStore initializes a FileSystemStore rooted at basePath,
// creating the directory layout if needed.
func NewFileSystemStore(basePath string) (*FileSystemStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	fs := &FileSystemStore{
		basePath: basePath,
		tempDir:  filepath.Join(basePath, tempDirName),
	}

	for _, dir := range []string{fs.basePath, fs.tempDir} {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return fs, nil
}

// NewFileSystemStoreFromConfig creates a FileSystemStore from StoreConfig.
func NewFileSystemStoreFromConfig(config StoreConfig) (*FileSystemStore, error) {
	basePath, ok := config.Config["base_path"].(string)
	if !ok {
		return nil, fmt.Errorf("base_path is required for filesystem store")
	}
	return NewFileSystemStore(basePath)
}

func (fs *FileSystemStore) statePath(identity string) string {
	return filepath.Join(fs.basePath, identity+stateFileSuffix)
}

// SaveState writes the sealed blob atomically: the data lands in a temp
// file first and is renamed into place, so a crash mid-write leaves the
// previous blob intact.
func (fs *FileSystemStore) SaveState(identity string, sealed []byte) error {
	if err := validateIdentity(identity); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}
	if sealed == nil {
		return fmt.Errorf("sealed state cannot be nil")
	}

	tmp, err := os.CreateTemp(fs.tempDir, identity+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err = tmp.Chmod(FilePermissions); err != nil {
		cleanup()
		return fmt.Errorf("failed to restrict temp file permissions: %w", err)
	}
	if _, err = tmp.Write(sealed); err != nil {
		cleanup()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Rename(tmpName, fs.statePath(identity)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move state into place: %w", err)
	}

	return nil
}

// LoadState reads the sealed blob for the identity.
func (fs *FileSystemStore) LoadState(identity string) ([]byte, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, fmt.Errorf("invalid identity: %w", err)
	}

	data, err := os.ReadFile(fs.statePath(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	return data, nil
}

// StateExists reports whether a state file exists for the identity.
func (fs *FileSystemStore) StateExists(identity string) (bool, error) {
	if err := validateIdentity(identity); err != nil {
		return false, fmt.Errorf("invalid identity: %w", err)
	}

	_, err := os.Stat(fs.statePath(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat state: %w", err)
	}
	return true, nil
}

// DeleteState removes the state file for the identity.
func (fs *FileSystemStore) DeleteState(identity string) error {
	if err := validateIdentity(identity); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}

	if err := os.Remove(fs.statePath(identity)); err != nil {
		if os.IsNotExist(err) {
			return ErrStateNotFound
		}
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// ListIdentities returns all identities with a state file, sorted.
func (fs *FileSystemStore) ListIdentities() ([]string, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read base directory: %w", err)
	}

	var identities []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, stateFileSuffix) {
			continue
		}
		identities = append(identities, strings.TrimSuffix(name, stateFileSuffix))
	}

	sort.Strings(identities)
	return identities, nil
}

// Ping verifies the base path is usable.
func (fs *FileSystemStore) Ping() error {
	info, err := os.Stat(fs.basePath)
	if err != nil {
		return fmt.Errorf("base path not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("base path %s is not a directory", fs.basePath)
	}
	return nil
}

// Close is a no-op for the filesystem backend.
func (fs *FileSystemStore) Close() error {
	return nil
}

// GetType returns the backend type.
func (fs *FileSystemStore) GetType() string {
	return string(StoreTypeFileSystem)
}
