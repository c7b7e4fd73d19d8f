package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps track objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
}

// NewGCSStore uses the credentials file when given, application default
// credentials otherwise.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("GCS bucket is not configured")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucket), name: bucket}, nil
}

func (g *GCSStore) wrap(op, key string, err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("%w: gcs %s %s: %v", ErrStorage, op, key, err)
}

func (g *GCSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// DoesNotExist keeps committed objects immutable.
	w := g.bucket.Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if err := writeObject(w, cancel, r); err != nil {
		return g.wrap("put", key, err)
	}
	return nil
}

// writeObject copies r into w and commits it with Close. A GCS writer
// commits whatever it holds on Close, so a failed copy cancels the
// writer's context first and the partial object is discarded.
func writeObject(w io.WriteCloser, abort context.CancelFunc, r io.Reader) error {
	if _, err := io.Copy(w, r); err != nil {
		abort()
		w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, g.wrap("get", key, err)
	}
	return rc, nil
}

func (g *GCSStore) OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if err := validRange(start, end); err != nil {
		return nil, err
	}
	rc, err := g.bucket.Object(key).NewRangeReader(ctx, start, end-start+1)
	if err != nil {
		return nil, g.wrap("range", key, err)
	}
	return rc, nil
}

func (g *GCSStore) Size(ctx context.Context, key string) (int64, error) {
	attrs, err := g.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return 0, g.wrap("stat", key, err)
	}
	return attrs.Size, nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	if err := g.bucket.Object(key).Delete(ctx); err != nil {
		return g.wrap("delete", key, err)
	}
	return nil
}

func (g *GCSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, g.wrap("list", prefix, err)
		}
		objects = append(objects, ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
			ContentType:  attrs.ContentType,
			ETag:         attrs.Etag,
		})
	}
	return objects, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
