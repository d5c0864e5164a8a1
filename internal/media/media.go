package media

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// Upload is a raw file received from an HTTP request. Data is held in memory
// only until the file lands in object storage; task payloads carry the
// returned reference, never the bytes.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DetectContentType sniffs the content type from the file bytes. The declared
// type from the request is used only when sniffing yields the generic
// application/octet-stream, since browsers routinely send wrong types for
// recorded audio.
func DetectContentType(declared string, data []byte) string {
	mt := mimetype.Detect(data)
	if mt.Is("application/octet-stream") && declared != "" {
		return declared
	}
	return mt.String()
}

// Store writes uploaded media to a MinIO bucket and hands back stable object
// references. A nil *Store is valid and means object storage is disabled:
// Put then returns an empty reference and no error, so callers keep only
// file metadata.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore builds a MinIO-backed media store. A nil client yields a nil
// Store, meaning object storage is not enabled.
func NewStore(client *minio.Client, bucket string) *Store {
	if client == nil {
		return nil
	}
	return &Store{client: client, bucket: bucket}
}

// EnsureBucket creates the configured bucket if it does not exist yet.
// Called once at startup.
func (s *Store) EnsureBucket(ctx context.Context) error {
	if s == nil {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// Put stores an upload under a fresh object name and returns its reference
// in the form "minio://<bucket>/<object>".
func (s *Store) Put(ctx context.Context, prefix string, up Upload) (string, error) {
	if s == nil {
		return "", nil
	}
	object := objectName(prefix, up.Filename)
	contentType := up.ContentType
	if contentType == "" {
		contentType = DetectContentType("", up.Data)
	}
	_, err := s.client.PutObject(ctx, s.bucket, object,
		bytes.NewReader(up.Data), int64(len(up.Data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", object, err)
	}
	return fmt.Sprintf("minio://%s/%s", s.bucket, object), nil
}

// objectName keeps the original extension for tooling but namespaces every
// object under a uuid so concurrent uploads of "recording.webm" never collide.
func objectName(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.New().String() + ext
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
