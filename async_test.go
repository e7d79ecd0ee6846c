package randpool

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"southwinds.dev/randpool/engine"
	"southwinds.dev/randpool/persist"
)

func TestProbeDoesNotBlockCaller(t *testing.T) {
	eng := &stubEngine{probeDelay: 200 * time.Millisecond}
	rng := newStubRNG(t, eng)

	start := time.Now()
	ch, err := rng.Probe([]byte("secret"), "id")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"Probe must return before the store round trip finishes")

	select {
	case outcome := <-ch:
		assert.Equal(t, StatusSuccess, outcome.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("outcome never delivered")
	}
}

func TestProbeOutcomeMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    Status
		message string
	}{
		{"Success", nil, StatusSuccess, "Success"},
		{"StateNotFound", engine.ErrStateNotFound, StatusFileNotFound, "File Not Found"},
		{"StoreNotFound", persist.ErrStateNotFound, StatusFileNotFound, "File Not Found"},
		{"DecryptionFailed", engine.ErrDecryptionFailed, StatusDecryptionError, "Decryption Error"},
		{"InvalidState", engine.ErrInvalidState, StatusDecryptionError, "Decryption Error"},
		{"Other", fmt.Errorf("disk on fire"), StatusUnknownError, "Unknown Error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rng := newStubRNG(t, &stubEngine{probeErr: tc.err})

			ch, err := rng.Probe([]byte("secret"), "id")
			require.NoError(t, err)

			outcome := <-ch
			assert.Equal(t, tc.code, outcome.Code)
			assert.Equal(t, tc.message, outcome.Message)
		})
	}
}

func TestProbeNotFoundCarriesNoError(t *testing.T) {
	rng := newStubRNG(t, &stubEngine{probeErr: engine.ErrStateNotFound})

	ch, err := rng.Probe([]byte("secret"), "id")
	require.NoError(t, err)

	outcome := <-ch
	assert.Equal(t, StatusFileNotFound, outcome.Code)
	assert.NoError(t, outcome.Err, "absent state is an expected answer, not a failure")
}

func TestSaveStateRequiresInitialize(t *testing.T) {
	rng := newStubRNG(t, &stubEngine{succeedOn: 0})

	_, err := rng.SaveState()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSaveStateDoesNotBlockCaller(t *testing.T) {
	eng := &stubEngine{succeedOn: 0, saveDelay: 200 * time.Millisecond}
	rng := newStubRNG(t, eng)

	ok, err := rng.Initialize([]byte("secret"), "id")
	require.NoError(t, err)
	require.True(t, ok)

	start := time.Now()
	ch, err := rng.SaveState()
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"SaveState must return before the persist finishes")

	outcome := <-ch
	assert.Equal(t, StatusSuccess, outcome.Code)
}

func TestSaveStateFailureOutcome(t *testing.T) {
	eng := &stubEngine{succeedOn: 0, saveErr: fmt.Errorf("bucket gone")}
	rng := newStubRNG(t, eng)

	ok, err := rng.Initialize([]byte("secret"), "id")
	require.NoError(t, err)
	require.True(t, ok)

	ch, err := rng.SaveState()
	require.NoError(t, err)

	outcome := <-ch
	assert.Equal(t, StatusUnknownError, outcome.Code)
	assert.Error(t, outcome.Err)
}

func TestOutcomeChannelIsBuffered(t *testing.T) {
	rng := newStubRNG(t, &stubEngine{})

	ch, err := rng.Probe([]byte("secret"), "id")
	require.NoError(t, err)

	// The goroutine must finish even if nobody reads immediately.
	time.Sleep(50 * time.Millisecond)
	outcome := <-ch
	assert.Equal(t, StatusSuccess, outcome.Code)
}
