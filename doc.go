// Package randpool provides a cryptographically seeded random number
// generator whose internal state is persisted to, and restored from,
// encrypted storage.
//
// An RNG is created against a persist.Store and bound to an identity. Callers
// probe for valid saved state, initialize from persisted state or freshly
// gathered entropy, extract random byte blocks, persist state on demand, and
// tear down with a best-effort save:
//
//	store, _ := persist.NewFileSystemStore("/var/lib/randpool")
//	rng, _ := randpool.New(randpool.Options{}, store, nil)
//	defer rng.Close()
//
//	ok, err := rng.Initialize([]byte("secret"), "node-1")
//	if err != nil || !ok {
//	    // handle
//	}
//	buf, _ := rng.GetBytes(64)
//
// Probe and SaveState run asynchronously and report through single-shot
// Outcome channels; Initialize, GetBytes and Close are synchronous. All state
// that leaves the process is sealed with ChaCha20-Poly1305 under a key
// normalized from the caller's secret.
package randpool
