package randpool

import (
	"fmt"
	"os"
)

// DefaultIdentity names the persisted state blob when the caller does not
// supply an identity of their own.
const DefaultIdentity = "default"

// Options holds configuration for an RNG instance.
//
// Secrets are deliberately kept out of Options: they are passed per call to
// Probe and Initialize so they never sit in a long-lived configuration
// struct. The one exception is EnvSecretVar, which names an environment
// variable to fall back to when a call passes an empty secret; the variable
// name itself is not sensitive and is safe to serialize.
type Options struct {
	// Identity used when Probe or Initialize receive an empty identity.
	// Empty means DefaultIdentity.
	Identity string `json:"identity,omitempty"`

	// EnvSecretVar names an environment variable holding the secret.
	// Enables deployment automation to deliver the secret without putting
	// it on a command line or in a config file.
	EnvSecretVar string `json:"env_secret_var,omitempty"`

	// EnableMemoryLock attempts to lock process memory so key material is
	// never swapped to disk. Requires appropriate privileges; failure to
	// achieve a full lock is reported, not fatal.
	EnableMemoryLock bool `json:"enable_memory_lock"`
}

// Validate checks the options for consistency.
func (o Options) Validate() error {
	if o.Identity != "" {
		if len(o.Identity) > 100 {
			return fmt.Errorf("identity too long (max 100 characters)")
		}
	}
	return nil
}

// resolveIdentity applies the option default to a per-call identity.
func (o Options) resolveIdentity(identity string) string {
	if identity != "" {
		return identity
	}
	if o.Identity != "" {
		return o.Identity
	}
	return DefaultIdentity
}

// resolveSecret applies the environment fallback to a per-call secret.
func (o Options) resolveSecret(secret []byte) []byte {
	if len(secret) > 0 {
		return secret
	}
	if o.EnvSecretVar != "" {
		if v := os.Getenv(o.EnvSecretVar); v != "" {
			return []byte(v)
		}
	}
	return nil
}
