package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"TrackFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions MinIO 连接参数
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStore 封装了 MinIO 客户端
type MinioStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStore 创建 MinIO 客户端并确保存储桶存在
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("created bucket", logger.String("bucket", opts.Bucket))
	}

	logger.Info("MinIO client ready",
		logger.String("endpoint", opts.Endpoint),
		logger.String("bucket", opts.Bucket))
	return &MinioStore{client: client, bucketName: opts.Bucket}, nil
}

func (m *MinioStore) wrap(op, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("%w: minio %s %s: %v", ErrStorage, op, key, err)
}

// Put 上传对象
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: size >= 0 && size < 64<<20,
	})
	if err != nil {
		return m.wrap("put", key, err)
	}
	return nil
}

// Open 读取整个对象。Stat is forced so a missing key fails here rather than
// on the first Read.
func (m *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.wrap("get", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, m.wrap("get", key, err)
	}
	return obj, nil
}

// OpenRange 读取 [start, end] 字节区间
func (m *MinioStore) OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if err := validRange(start, end); err != nil {
		return nil, err
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, m.wrap("range", key, err)
	}
	obj, err := m.client.GetObject(ctx, m.bucketName, key, opts)
	if err != nil {
		return nil, m.wrap("range", key, err)
	}
	return obj, nil
}

// Size 获取对象大小
func (m *MinioStore) Size(ctx context.Context, key string) (int64, error) {
	stat, err := m.client.StatObject(ctx, m.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, m.wrap("stat", key, err)
	}
	return stat.Size, nil
}

// Delete 删除对象
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return m.wrap("delete", key, err)
	}
	return nil
}

// List 列出前缀下的所有对象
func (m *MinioStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, m.wrap("list", prefix, object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return objects, nil
}

// Close is a no-op; the MinIO client holds no long-lived resources.
func (m *MinioStore) Close() error {
	return nil
}
