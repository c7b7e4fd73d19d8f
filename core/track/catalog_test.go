package track

import (
	"context"
	"testing"

	"TrackFM/cache"
	"TrackFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	rows        map[int64]*model.Track
	invalidated []int64
}

func (r *recordingCache) GetTrack(ctx context.Context, id int64) *model.Track { return r.rows[id] }
func (r *recordingCache) SetTrack(ctx context.Context, t *model.Track)        { r.rows[t.ID] = t }
func (r *recordingCache) InvalidateTrack(ctx context.Context, id int64) {
	delete(r.rows, id)
	r.invalidated = append(r.invalidated, id)
}

func seededCatalog(t *testing.T, c Cache) (*Catalog, *fakeTracks) {
	t.Helper()
	repo := newFakeTracks()
	for _, name := range []string{"alpha", "beta"} {
		require.NoError(t, repo.Create(context.Background(), &model.Track{Name: name, StorageKey: "tracks/" + name + ".mp3"}))
	}
	return NewCatalog(repo, c, testRules), repo
}

func TestCatalogGetReadsThroughCache(t *testing.T) {
	rc := &recordingCache{rows: map[int64]*model.Track{}}
	cat, _ := seededCatalog(t, rc)

	tr, err := cat.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alpha", tr.Name)
	assert.Contains(t, rc.rows, int64(1))

	_, err = cat.Get(context.Background(), 99)
	assert.Equal(t, ReasonNotFound, ReasonOf(err))
}

func TestCatalogWithoutCache(t *testing.T) {
	// A nil *cache.TrackCache is how the server runs without Redis.
	var disabled *cache.TrackCache
	cat, _ := seededCatalog(t, disabled)

	tr, err := cat.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "beta", tr.Name)

	cat = NewCatalog(newFakeTracks(), nil, testRules)
	_, err = cat.Get(context.Background(), 1)
	assert.Equal(t, ReasonNotFound, ReasonOf(err))
}

func TestCatalogRename(t *testing.T) {
	rc := &recordingCache{rows: map[int64]*model.Track{}}
	cat, _ := seededCatalog(t, rc)
	ctx := context.Background()

	tr, err := cat.Rename(ctx, 1, "gamma")
	require.NoError(t, err)
	assert.Equal(t, "gamma", tr.Name)
	assert.Equal(t, []int64{1}, rc.invalidated)

	_, err = cat.Rename(ctx, 1, "beta")
	assert.Equal(t, ReasonNameTaken, ReasonOf(err))

	_, err = cat.Rename(ctx, 1, "Not Valid")
	assert.Equal(t, ReasonInvalidName, ReasonOf(err))

	_, err = cat.Rename(ctx, 42, "delta")
	assert.Equal(t, ReasonNotFound, ReasonOf(err))
}

func TestCatalogDeleteKeepsNameReserved(t *testing.T) {
	rc := &recordingCache{rows: map[int64]*model.Track{}}
	cat, repo := seededCatalog(t, rc)
	ctx := context.Background()

	require.NoError(t, cat.Delete(ctx, 1))
	assert.Equal(t, []int64{1}, rc.invalidated)

	_, err := cat.Get(ctx, 1)
	assert.Equal(t, ReasonNotFound, ReasonOf(err))
	exists, err := repo.NameExists(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, ReasonNotFound, ReasonOf(cat.Delete(ctx, 1)))
}

func TestCatalogListAndFind(t *testing.T) {
	cat, _ := seededCatalog(t, nil)
	ctx := context.Background()

	tracks, err := cat.List(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	tr, err := cat.FindByName(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tr.ID)

	_, err = cat.FindByName(ctx, "nope")
	assert.Equal(t, ReasonNotFound, ReasonOf(err))

	missing, err := MissingIDs(ctx, cat, []int64{1, 2, 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, missing)
}

// pausingRepo holds GetByID after the row is read until resume is closed.
type pausingRepo struct {
	*fakeTracks
	loaded chan struct{}
	resume chan struct{}
}

func (p *pausingRepo) GetByID(ctx context.Context, id int64) (*model.Track, error) {
	t, err := p.fakeTracks.GetByID(ctx, id)
	close(p.loaded)
	<-p.resume
	return t, err
}

func TestCatalogDeleteDuringGetLeavesNoStaleRow(t *testing.T) {
	rc := &recordingCache{rows: map[int64]*model.Track{}}
	_, tracks := seededCatalog(t, nil)
	repo := &pausingRepo{fakeTracks: tracks, loaded: make(chan struct{}), resume: make(chan struct{})}
	cat := NewCatalog(repo, rc, testRules)
	ctx := context.Background()

	done := make(chan error)
	go func() {
		_, err := cat.Get(ctx, 1)
		done <- err
	}()
	<-repo.loaded
	require.NoError(t, cat.Delete(ctx, 1))
	close(repo.resume)
	require.NoError(t, <-done)

	assert.NotContains(t, rc.rows, int64(1))
	assert.Nil(t, rc.GetTrack(ctx, 1))
	row, err := tracks.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, row)
}
