package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"TrackFM/config"
	"TrackFM/logger"
	"TrackFM/model"

	"github.com/redis/go-redis/v9"
)

// TrackCache 缓存曲目记录和对象大小.
//
// A nil *TrackCache is valid and behaves as a cache that always misses, so
// callers never branch on whether Redis is configured. Cache errors are
// logged and treated as misses; the database stays authoritative.
type TrackCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect 初始化Redis连接. Returns nil, nil when REDIS_HOST is empty.
func Connect(ctx context.Context, cfg *config.Config) (*TrackCache, error) {
	if cfg.RedisHost == "" {
		logger.Info("redis disabled, track cache off")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to redis", logger.String("addr", cfg.RedisAddr()))
	return New(client, cfg.RedisTTL), nil
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration) *TrackCache {
	return &TrackCache{client: client, ttl: ttl}
}

func trackKey(id int64) string {
	return fmt.Sprintf("track:%d", id)
}

func sizeKey(storageKey string) string {
	return "objsize:" + storageKey
}

// GetTrack returns the cached row or nil on a miss.
func (c *TrackCache) GetTrack(ctx context.Context, id int64) *model.Track {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, trackKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("track cache read failed", logger.Int64("trackId", id), logger.ErrorField(err))
		}
		return nil
	}
	var entry cachedTrack
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.Warn("track cache entry corrupt", logger.Int64("trackId", id), logger.ErrorField(err))
		return nil
	}
	track := entry.Track
	track.StorageKey = entry.StorageKey
	return &track
}

// cachedTrack carries the fields model.Track hides from JSON responses.
type cachedTrack struct {
	model.Track
	StorageKey string `json:"storage_key"`
}

// SetTrack stores the row under its id.
func (c *TrackCache) SetTrack(ctx context.Context, track *model.Track) {
	if c == nil || track == nil {
		return
	}
	data, err := json.Marshal(cachedTrack{Track: *track, StorageKey: track.StorageKey})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, trackKey(track.ID), data, c.ttl).Err(); err != nil {
		logger.Warn("track cache write failed", logger.Int64("trackId", track.ID), logger.ErrorField(err))
	}
}

// InvalidateTrack drops the cached row after a rename or delete.
func (c *TrackCache) InvalidateTrack(ctx context.Context, id int64) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, trackKey(id)).Err(); err != nil {
		logger.Warn("track cache invalidate failed", logger.Int64("trackId", id), logger.ErrorField(err))
	}
}

// GetSize returns the cached object size. Objects are immutable so the
// entry never needs invalidating.
func (c *TrackCache) GetSize(ctx context.Context, storageKey string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, sizeKey(storageKey)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("size cache read failed", logger.String("key", storageKey), logger.ErrorField(err))
		}
		return 0, false
	}
	size, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}

func (c *TrackCache) SetSize(ctx context.Context, storageKey string, size int64) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, sizeKey(storageKey), size, c.ttl).Err(); err != nil {
		logger.Warn("size cache write failed", logger.String("key", storageKey), logger.ErrorField(err))
	}
}

// Close 关闭Redis连接
func (c *TrackCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
