package track

import (
	"context"
	"errors"
	"sync"

	"TrackFM/model"
	"TrackFM/repository"
)

// Cache is the read-through cache in front of the record store.
// *cache.TrackCache satisfies it, including as a nil pointer.
type Cache interface {
	GetTrack(ctx context.Context, id int64) *model.Track
	SetTrack(ctx context.Context, track *model.Track)
	InvalidateTrack(ctx context.Context, id int64)
}

// Catalog serves track records: lookup, listing, rename and delete.
type Catalog struct {
	repo  repository.TrackRepository
	cache Cache
	rules Rules

	// fill orders cache fills against invalidations. writes counts renames
	// and deletes; a Get only caches the row it read if none landed since.
	fill   sync.RWMutex
	writes uint64
}

type noCache struct{}

func (noCache) GetTrack(context.Context, int64) *model.Track { return nil }
func (noCache) SetTrack(context.Context, *model.Track)       {}
func (noCache) InvalidateTrack(context.Context, int64)       {}

// NewCatalog 创建曲目目录服务. cache may be nil.
func NewCatalog(repo repository.TrackRepository, cache Cache, rules Rules) *Catalog {
	if cache == nil {
		cache = noCache{}
	}
	return &Catalog{repo: repo, cache: cache, rules: rules}
}

// Get 根据ID获取曲目
func (c *Catalog) Get(ctx context.Context, id int64) (*model.Track, error) {
	if t := c.cache.GetTrack(ctx, id); t != nil {
		return t, nil
	}
	seen := c.writeCount()
	t, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, serverFault(ReasonInternal, err, "failed to load track %d", id)
	}
	if t == nil {
		return nil, NotFound("track %d not found", id)
	}
	c.fill.RLock()
	if c.writes == seen {
		c.cache.SetTrack(ctx, t)
	}
	c.fill.RUnlock()
	return t, nil
}

func (c *Catalog) writeCount() uint64 {
	c.fill.RLock()
	defer c.fill.RUnlock()
	return c.writes
}

// invalidate drops the cached row once the repository write has committed.
func (c *Catalog) invalidate(ctx context.Context, id int64) {
	c.fill.Lock()
	defer c.fill.Unlock()
	c.writes++
	c.cache.InvalidateTrack(ctx, id)
}

// GetByID satisfies TrackLookup, reporting absence as nil.
func (c *Catalog) GetByID(ctx context.Context, id int64) (*model.Track, error) {
	t, err := c.Get(ctx, id)
	if err != nil {
		if ReasonOf(err) == ReasonNotFound {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// FindByName 根据名称查找曲目
func (c *Catalog) FindByName(ctx context.Context, name string) (*model.Track, error) {
	t, err := c.repo.GetByName(ctx, name)
	if err != nil {
		return nil, serverFault(ReasonInternal, err, "failed to look up track %q", name)
	}
	if t == nil {
		return nil, NotFound("track %q not found", name)
	}
	return t, nil
}

// List 获取所有曲目
func (c *Catalog) List(ctx context.Context) ([]*model.Track, error) {
	tracks, err := c.repo.List(ctx)
	if err != nil {
		return nil, serverFault(ReasonInternal, err, "failed to list tracks")
	}
	return tracks, nil
}

// Rename applies the upload naming rules to the new name.
func (c *Catalog) Rename(ctx context.Context, id int64, name string) (*model.Track, error) {
	if err := c.rules.ValidateName(name); err != nil {
		return nil, err
	}
	if err := c.repo.Rename(ctx, id, name); err != nil {
		switch {
		case errors.Is(err, repository.ErrNameTaken):
			return nil, nameTaken(name)
		case errors.Is(err, repository.ErrTrackNotFound):
			return nil, NotFound("track %d not found", id)
		default:
			return nil, serverFault(ReasonInternal, err, "failed to rename track %d", id)
		}
	}
	c.invalidate(ctx, id)
	return c.Get(ctx, id)
}

// Delete soft deletes the record. The stored object is kept and the name
// stays reserved.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTrackNotFound) {
			return NotFound("track %d not found", id)
		}
		return serverFault(ReasonInternal, err, "failed to delete track %d", id)
	}
	c.invalidate(ctx, id)
	return nil
}
