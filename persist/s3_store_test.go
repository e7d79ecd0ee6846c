package persist

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestS3Store runs the common store suite against a live S3-compatible
// endpoint, e.g. a local minio:
//
//	RANDPOOL_TEST_S3_ENDPOINT=localhost:9000 \
//	RANDPOOL_TEST_S3_ACCESS_KEY=minioadmin \
//	RANDPOOL_TEST_S3_SECRET_KEY=minioadmin \
//	RANDPOOL_TEST_S3_BUCKET=randpool-test \
//	go test ./persist/ -run TestS3Store
func TestS3Store(t *testing.T) {
	endpoint := os.Getenv("RANDPOOL_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("RANDPOOL_TEST_S3_ENDPOINT not set, skipping S3 store test")
	}

	config := S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     os.Getenv("RANDPOOL_TEST_S3_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("RANDPOOL_TEST_S3_SECRET_KEY"),
		Bucket:          os.Getenv("RANDPOOL_TEST_S3_BUCKET"),
		KeyPrefix:       "store-test/",
		UseSSL:          os.Getenv("RANDPOOL_TEST_S3_USE_SSL") == "true",
	}

	store, err := NewS3Store(config)
	require.NoError(t, err, "Failed to create S3Store")

	// Start from a clean prefix so the common suite's existence checks hold.
	identities, err := store.ListIdentities()
	require.NoError(t, err)
	for _, identity := range identities {
		require.NoError(t, store.DeleteState(identity))
	}

	testStoreImplementation(t, store)
}

func TestS3StoreConfigValidation(t *testing.T) {
	_, err := NewS3Store(S3Config{Endpoint: "localhost:9000"})
	require.Error(t, err, "Missing bucket should be rejected")

	_, err = NewS3Store(S3Config{Bucket: "some-bucket"})
	require.Error(t, err, "Missing endpoint should be rejected")
}
