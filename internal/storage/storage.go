// Package storage archives rendered files in an S3-compatible object store.
// Implementations stream through memory only and never touch local disk.
package storage

import (
	"context"
	"io"
	"path"
	"time"
)

// RenditionPrefix is the key prefix for rendered documents.
const RenditionPrefix = "renditions"

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible object storage client interface.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignDownload returns a time-limited URL that downloads the object
	// without credentials. A non-empty filename is suggested to the browser.
	PresignDownload(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
	// Ping checks that the bucket is reachable.
	Ping(ctx context.Context) error
}

// RenditionKey builds the object key for a rendition, e.g. renditions/<id>.pdf.
func RenditionKey(id, ext string) string {
	return path.Join(RenditionPrefix, id+ext)
}
