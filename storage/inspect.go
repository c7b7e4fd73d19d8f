package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByType       map[string]int64 // bytes per inferred content type
}

// Summarize 统计对象列表
func Summarize(objects []ObjectInfo) *BucketStats {
	stats := &BucketStats{ByType: make(map[string]int64)}
	for _, obj := range objects {
		stats.TotalObjects++
		stats.TotalSize += obj.Size
		if obj.LastModified.After(stats.LastModified) {
			stats.LastModified = obj.LastModified
		}
		contentType := obj.ContentType
		if contentType == "" {
			contentType = inferContentType(obj.Key)
		}
		stats.ByType[contentType] += obj.Size
	}
	return stats
}

// inferContentType 从文件名推断内容类型
func inferContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav", ".flac", ".m4a", ".ogg":
		return "audio"
	default:
		return "other"
	}
}

// DeletePrefix 删除前缀下的所有对象，返回删除数量
func DeletePrefix(ctx context.Context, b Backend, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("refusing to delete with an empty prefix")
	}
	objects, err := b.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, obj := range objects {
		if err := b.Delete(ctx, obj.Key); err != nil {
			return i, err
		}
	}
	return len(objects), nil
}
