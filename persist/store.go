// Package persist provides pluggable storage backends for sealed generator
// state. All data passing through a Store is already encrypted by the engine
// layer; a backend only ever sees opaque blobs keyed by identity.
package persist

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStateNotFound is returned by LoadState and DeleteState when no blob
// exists for the requested identity. Callers distinguish it from transport
// or permission failures with errors.Is.
var ErrStateNotFound = errors.New("no persisted state for identity")

// Store is the interface for persisting sealed pool state.
type Store interface {

	// SaveState writes the sealed blob for the identity, replacing any
	// previous blob. The write must be atomic with respect to readers: a
	// concurrent LoadState sees either the old blob or the new one, never a
	// partial write.
	SaveState(identity string, sealed []byte) error

	// LoadState reads the sealed blob for the identity. Returns
	// ErrStateNotFound if no blob exists.
	LoadState(identity string) ([]byte, error)

	// StateExists reports whether a blob exists for the identity without
	// reading it.
	StateExists(identity string) (bool, error)

	// DeleteState removes the blob for the identity. Returns
	// ErrStateNotFound if no blob exists.
	DeleteState(identity string) error

	// ListIdentities returns the identities that currently have persisted
	// state, sorted.
	ListIdentities() ([]string, error)

	// Ping tests connectivity for remote backends.
	Ping() error

	// Close releases any resources the store holds.
	Close() error

	// GetType returns the backend type, e.g. "filesystem" or "s3".
	GetType() string
}

// StoreConfig selects and configures a storage backend.
//
// Example:
//
//	config := StoreConfig{
//	    Type:   StoreTypeFileSystem,
//	    Config: map[string]interface{}{"base_path": "/var/lib/randpool"},
//	}
type StoreConfig struct {
	// Type must be one of the StoreType constants.
	Type StoreType `json:"type"`

	// Config holds backend-specific settings. Filesystem stores require
	// "base_path"; S3 stores require bucket and credential settings, see
	// S3Config.
	Config map[string]interface{} `json:"config"`
}

// StoreType represents the supported storage backends.
type StoreType string

const (
	// StoreTypeFileSystem persists state as files under a base path.
	StoreTypeFileSystem StoreType = "filesystem"

	// StoreTypeS3 persists state as objects in an S3-compatible bucket.
	StoreTypeS3 StoreType = "s3"
)

// validateIdentity rejects identities that could escape the store's
// namespace. Identities become file names and object keys, so path
// separators and traversal sequences are not allowed.
func validateIdentity(identity string) error {
	if identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}

	if strings.Contains(identity, "..") ||
		strings.ContainsAny(identity, "/\\") ||
		strings.ContainsAny(identity, " \t\n") {
		return fmt.Errorf("identity contains invalid characters")
	}

	if len(identity) > 100 {
		return fmt.Errorf("identity too long (max 100 characters)")
	}

	return nil
}
