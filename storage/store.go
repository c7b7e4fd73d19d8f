package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"TrackFM/config"

	"github.com/google/uuid"
)

var (
	// ErrStorage wraps every backend failure.
	ErrStorage = errors.New("storage failure")
	// ErrObjectNotFound is returned for keys that do not exist.
	ErrObjectNotFound = fmt.Errorf("%w: object not found", ErrStorage)
)

// ObjectStore is a durable, key-addressed store of immutable objects.
// Ranges are inclusive on both ends.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	Size(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate objects; the storage
// CLI uses it.
type Lister interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// Backend is what the rest of the application is wired against.
type Backend interface {
	ObjectStore
	Lister
	Close() error
}

// NewTrackKey returns a fresh, never reused key for a normalized track.
func NewTrackKey(prefix string) string {
	return path.Join(strings.TrimSuffix(prefix, "/"), uuid.NewString()+".mp3")
}

// New 根据配置创建存储后端
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageDriver {
	case "", "minio":
		return NewMinioStore(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func validRange(start, end int64) error {
	if start < 0 || end < start {
		return fmt.Errorf("%w: invalid range %d-%d", ErrStorage, start, end)
	}
	return nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
