// storage.go - Blob storage backends for uploaded file bytes.
//
// Objects are keyed by "<username>_<sanitized filename>"; the key is the
// on-disk name, distinct from the user-visible original filename. Two
// uploads of the same sanitized name by the same user share a key and the
// last write wins.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BlobStore abstracts where uploaded bytes live. Remove tolerates a
// missing object: deleting metadata for a file whose bytes are already
// gone must still succeed.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeFilename strips directory components and restricts the name to
// a safe character set before it is used as part of a storage key.
func sanitizeFilename(name string) string {
	// Normalize Windows separators before taking the base name.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "\x00", "")
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")

	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}
	if name == "" || name == "." || name == ".." {
		name = "unnamed"
	}
	return name
}

// storageKey derives the on-disk object name for an upload.
func storageKey(username, sanitized string) string {
	return username + "_" + sanitized
}

// DiskStore keeps objects in a single flat directory under root.
type DiskStore struct {
	root string
}

// NewDiskStore ensures the upload directory exists and returns a store
// rooted at it.
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("upload directory is empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(key string) string {
	// Base strips any path separator that survived sanitization.
	return filepath.Join(s.root, filepath.Base(key))
}

func (s *DiskStore) Put(_ context.Context, key string, r io.Reader) error {
	f, err := os.Create(s.path(key))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(s.path(key))
		return err
	}
	return f.Close()
}

func (s *DiskStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *DiskStore) Remove(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *DiskStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("upload root is not a directory: %s", s.root)
	}
	return nil
}

// MinioStore keeps objects in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// MinioConfig carries the S3 connection settings read from the
// environment at startup.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http(s)://minio:9000".
	if strings.Contains(raw, "://") {
		if strings.HasPrefix(raw, "https://") {
			return strings.TrimPrefix(raw, "https://"), true, nil
		}
		if strings.HasPrefix(raw, "http://") {
			return strings.TrimPrefix(raw, "http://"), false, nil
		}
		return "", false, fmt.Errorf("unsupported endpoint scheme: %s", raw)
	}

	// No scheme provided, treat as host:port (insecure local default).
	return raw, false, nil
}

// NewMinioStore connects to the configured bucket and verifies it exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket does not exist: %s", cfg.Bucket)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{})
	return err
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat forces an early error for missing objects.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	// RemoveObject succeeds for absent keys, matching DiskStore.
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket does not exist: %s", s.bucket)
	}
	return nil
}
