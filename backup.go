package randpool

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"southwinds.dev/randpool/internal/crypto"
)

// StateBundleVersion identifies the bundle layout for forward compatibility.
const StateBundleVersion = "1.0.0"

// StateBundle is a portable, passphrase-encrypted copy of persisted
// generator state, for moving an identity between stores. The payload is the
// already-sealed state blob wrapped a second time with a passphrase-derived
// key, so a bundle alone reveals nothing even to someone who knows the
// passphrase but not the original secret.
type StateBundle struct {
	BundleID         string    `json:"bundle_id"`
	BundleVersion    string    `json:"bundle_version"`
	CreatedAt        time.Time `json:"created_at"`
	Identity         string    `json:"identity"`
	EncryptionMethod string    `json:"encryption_method"`
	EncryptedData    string    `json:"encrypted_data"` // base64
	Checksum         string    `json:"checksum"`       // SHA-256 of the sealed blob
}

// ExportState saves the current generator state and wraps the persisted blob
// into a passphrase-encrypted bundle. The RNG must be initialized.
func (r *RNG) ExportState(passphrase string) (*StateBundle, error) {
	startTime := time.Now()
	requestID := r.newRequestID()

	if passphrase == "" {
		return nil, fmt.Errorf("passphrase is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	// Persist first so the bundle captures the generator as it is now.
	if err := r.eng.SaveState(); err != nil {
		r.logAudit(requestID, "STATE_EXPORT", err, map[string]interface{}{
			"identity": r.identity,
		})
		return nil, fmt.Errorf("failed to save state for export: %w", err)
	}

	sealed, err := r.store.LoadState(r.identity)
	if err != nil {
		r.logAudit(requestID, "STATE_EXPORT", err, map[string]interface{}{
			"identity": r.identity,
		})
		return nil, fmt.Errorf("failed to load state for export: %w", err)
	}

	encrypted, err := crypto.EncryptWithPassphrase(sealed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt bundle: %w", err)
	}

	bundle := &StateBundle{
		BundleID:         "bundle_" + uuid.NewString(),
		BundleVersion:    StateBundleVersion,
		CreatedAt:        time.Now().UTC(),
		Identity:         r.identity,
		EncryptionMethod: "PBKDF2-ChaCha20-Poly1305",
		EncryptedData:    base64.StdEncoding.EncodeToString(encrypted),
		Checksum:         crypto.CalculateChecksum(sealed),
	}

	r.logAudit(requestID, "STATE_EXPORT", nil, map[string]interface{}{
		"identity":    r.identity,
		"bundle_id":   bundle.BundleID,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})
	return bundle, nil
}

// ImportState unwraps a bundle and writes the sealed state blob into this
// RNG's store under the bundle's identity, replacing any existing blob. The
// imported state becomes usable through Initialize with the original secret;
// the bundle passphrase plays no part after import.
func (r *RNG) ImportState(bundle *StateBundle, passphrase string) error {
	startTime := time.Now()
	requestID := r.newRequestID()

	if bundle == nil {
		return fmt.Errorf("bundle is required")
	}
	if passphrase == "" {
		return fmt.Errorf("passphrase is required")
	}
	if bundle.BundleVersion != StateBundleVersion {
		return fmt.Errorf("unsupported bundle version: %s", bundle.BundleVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	encrypted, err := base64.StdEncoding.DecodeString(bundle.EncryptedData)
	if err != nil {
		return fmt.Errorf("malformed bundle payload: %w", err)
	}

	sealed, err := crypto.DecryptWithPassphrase(encrypted, passphrase)
	if err != nil {
		r.logAudit(requestID, "STATE_IMPORT", err, map[string]interface{}{
			"identity":  bundle.Identity,
			"bundle_id": bundle.BundleID,
		})
		return fmt.Errorf("failed to decrypt bundle: %w", err)
	}

	if sum := crypto.CalculateChecksum(sealed); sum != bundle.Checksum {
		err = fmt.Errorf("bundle checksum mismatch")
		r.logAudit(requestID, "STATE_IMPORT", err, map[string]interface{}{
			"identity":  bundle.Identity,
			"bundle_id": bundle.BundleID,
		})
		return err
	}

	if err = r.store.SaveState(bundle.Identity, sealed); err != nil {
		return fmt.Errorf("failed to persist imported state: %w", err)
	}

	r.logAudit(requestID, "STATE_IMPORT", nil, map[string]interface{}{
		"identity":    bundle.Identity,
		"bundle_id":   bundle.BundleID,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})
	return nil
}
