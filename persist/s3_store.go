package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the settings for an S3-compatible backend.
type S3Config struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Bucket          string `json:"bucket"`
	KeyPrefix       string `json:"key_prefix"`
	UseSSL          bool   `json:"use_ssl"`
	Region          string `json:"region"`
}

// S3Store implements Store on an S3-compatible object store using the minio
// client. Each identity maps to one object, <prefix><identity>.state.
// Object PUTs are atomic on S3, which satisfies the Store contract without
// a temp-object dance.
type S3Store struct {
	client *minio.Client
	config S3Config
}

// NewS3Store initializes an S3Store and verifies the bucket is reachable.
func NewS3Store(config S3Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for S3 store")
	}
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required for S3 store")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	s := &S3Store{client: client, config: config}
	if err = s.Ping(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewS3StoreFromConfig creates an S3Store from StoreConfig.
func NewS3StoreFromConfig(config StoreConfig) (*S3Store, error) {
	s3cfg := S3Config{
		UseSSL: true,
		Region: "us-east-1",
	}

	if v, ok := config.Config["endpoint"].(string); ok {
		s3cfg.Endpoint = v
	}
	if v, ok := config.Config["access_key_id"].(string); ok {
		s3cfg.AccessKeyID = v
	}
	if v, ok := config.Config["secret_access_key"].(string); ok {
		s3cfg.SecretAccessKey = v
	}
	if v, ok := config.Config["bucket"].(string); ok {
		s3cfg.Bucket = v
	}
	if v, ok := config.Config["key_prefix"].(string); ok {
		s3cfg.KeyPrefix = v
	}
	if v, ok := config.Config["use_ssl"].(bool); ok {
		s3cfg.UseSSL = v
	}
	if v, ok := config.Config["region"].(string); ok {
		s3cfg.Region = v
	}

	return NewS3Store(s3cfg)
}

func (s *S3Store) objectKey(identity string) string {
	return s.config.KeyPrefix + identity + stateFileSuffix
}

// SaveState uploads the sealed blob for the identity.
func (s *S3Store) SaveState(identity string, sealed []byte) error {
	if err := validateIdentity(identity); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}
	if sealed == nil {
		return fmt.Errorf("sealed state cannot be nil")
	}

	_, err := s.client.PutObject(
		context.Background(),
		s.config.Bucket,
		s.objectKey(identity),
		bytes.NewReader(sealed),
		int64(len(sealed)),
		minio.PutObjectOptions{
			ContentType: "application/octet-stream",
			UserMetadata: map[string]string{
				"randpool-state": "true",
				"saved-at":       time.Now().UTC().Format(time.RFC3339),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to upload state: %w", err)
	}
	return nil
}

// LoadState downloads the sealed blob for the identity.
func (s *S3Store) LoadState(identity string) ([]byte, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, fmt.Errorf("invalid identity: %w", err)
	}

	obj, err := s.client.GetObject(
		context.Background(),
		s.config.Bucket,
		s.objectKey(identity),
		minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get state object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state object: %w", err)
	}
	return data, nil
}

// StateExists checks for the state object without downloading it.
func (s *S3Store) StateExists(identity string) (bool, error) {
	if err := validateIdentity(identity); err != nil {
		return false, fmt.Errorf("invalid identity: %w", err)
	}

	_, err := s.client.StatObject(
		context.Background(),
		s.config.Bucket,
		s.objectKey(identity),
		minio.StatObjectOptions{},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat state object: %w", err)
	}
	return true, nil
}

// DeleteState removes the state object for the identity.
func (s *S3Store) DeleteState(identity string) error {
	if err := validateIdentity(identity); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}

	exists, err := s.StateExists(identity)
	if err != nil {
		return err
	}
	if !exists {
		return ErrStateNotFound
	}

	err = s.client.RemoveObject(
		context.Background(),
		s.config.Bucket,
		s.objectKey(identity),
		minio.RemoveObjectOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to delete state object: %w", err)
	}
	return nil
}

// ListIdentities lists identities with persisted state under the prefix.
func (s *S3Store) ListIdentities() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var identities []string
	for obj := range s.client.ListObjects(ctx, s.config.Bucket, minio.ListObjectsOptions{
		Prefix: s.config.KeyPrefix,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list state objects: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.config.KeyPrefix)
		if !strings.HasSuffix(name, stateFileSuffix) || strings.Contains(name, "/") {
			continue
		}
		identities = append(identities, strings.TrimSuffix(name, stateFileSuffix))
	}

	sort.Strings(identities)
	return identities, nil
}

// Ping verifies the bucket exists and is reachable.
func (s *S3Store) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to reach S3 backend: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.config.Bucket)
	}
	return nil
}

// Close is a no-op; the minio client holds no persistent connections that
// need explicit teardown.
func (s *S3Store) Close() error {
	return nil
}

// GetType returns the backend type.
func (s *S3Store) GetType() string {
	return string(StoreTypeS3)
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
