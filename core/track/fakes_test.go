package track

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"TrackFM/model"
	"TrackFM/repository"
	"TrackFM/storage"

	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	meta  model.AudioMetadata
	err   error
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (model.AudioMetadata, error) {
	f.calls.Add(1)
	if _, err := os.Stat(path); err != nil {
		return model.AudioMetadata{}, fmt.Errorf("extractor given missing file: %w", err)
	}
	return f.meta, f.err
}

// fakeNormalizer writes output bytes to dst.
type fakeNormalizer struct {
	output []byte
	err    error
	calls  atomic.Int32
}

func (f *fakeNormalizer) Normalize(ctx context.Context, src, dst string, knownDuration float64) error {
	f.calls.Add(1)
	if f.err != nil {
		// leave a partial file behind to prove cleanup removes it
		_ = os.WriteFile(dst, []byte("partial"), 0o600)
		return f.err
	}
	return os.WriteFile(dst, f.output, 0o600)
}

// fakeTracks is an in-memory record store with a unique name index that,
// like MySQL, also covers soft deleted rows.
type fakeTracks struct {
	mu        sync.Mutex
	rows      map[int64]*model.Track
	deleted   map[int64]bool
	nextID    int64
	createErr error
	// precheck, when set, holds every NameExists caller until all of them
	// have arrived.
	precheck *sync.WaitGroup
}

func newFakeTracks() *fakeTracks {
	return &fakeTracks{rows: make(map[int64]*model.Track), deleted: make(map[int64]bool)}
}

func (f *fakeTracks) Create(ctx context.Context, t *model.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, row := range f.rows {
		if row.Name == t.Name {
			return fmt.Errorf("%w: %s", repository.ErrNameTaken, t.Name)
		}
	}
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeTracks) NameExists(ctx context.Context, name string) (bool, error) {
	if f.precheck != nil {
		f.precheck.Done()
		f.precheck.Wait()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTracks) GetByID(ctx context.Context, id int64) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || f.deleted[id] {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeTracks) GetByName(ctx context.Context, name string) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, row := range f.rows {
		if row.Name == name && !f.deleted[id] {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTracks) List(ctx context.Context) ([]*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Track, 0, len(f.rows))
	for id, row := range f.rows {
		if !f.deleted[id] {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTracks) Rename(ctx context.Context, id int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || f.deleted[id] {
		return repository.ErrTrackNotFound
	}
	for otherID, other := range f.rows {
		if other.Name == name && otherID != id {
			return repository.ErrNameTaken
		}
	}
	row.Name = name
	return nil
}

func (f *fakeTracks) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok || f.deleted[id] {
		return repository.ErrTrackNotFound
	}
	f.deleted[id] = true
	return nil
}

func (f *fakeTracks) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

var errInjected = errors.New("injected failure")

// faultyStore wraps a MemoryStore with switchable failures.
type faultyStore struct {
	*storage.MemoryStore
	failPut    bool
	failOpen   bool
	failSize   bool
	failDelete bool
	// breakAfter > 0 makes reads fail after that many bytes.
	breakAfter int
}

func (s *faultyStore) Put(ctx context.Context, key string, r io.Reader, size int64, ct string) error {
	if s.failPut {
		return fmt.Errorf("%w: %v", storage.ErrStorage, errInjected)
	}
	return s.MemoryStore.Put(ctx, key, r, size, ct)
}

func (s *faultyStore) Size(ctx context.Context, key string) (int64, error) {
	if s.failSize {
		return 0, fmt.Errorf("%w: %v", storage.ErrStorage, errInjected)
	}
	return s.MemoryStore.Size(ctx, key)
}

func (s *faultyStore) Delete(ctx context.Context, key string) error {
	if s.failDelete {
		return fmt.Errorf("%w: %v", storage.ErrStorage, errInjected)
	}
	return s.MemoryStore.Delete(ctx, key)
}

func (s *faultyStore) wrapReader(rc io.ReadCloser) io.ReadCloser {
	if s.breakAfter <= 0 {
		return rc
	}
	return struct {
		io.Reader
		io.Closer
	}{io.MultiReader(io.LimitReader(rc, int64(s.breakAfter)), errorReader{}), rc}
}

func (s *faultyStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.failOpen {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorage, errInjected)
	}
	rc, err := s.MemoryStore.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.wrapReader(rc), nil
}

func (s *faultyStore) OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if s.failOpen {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorage, errInjected)
	}
	rc, err := s.MemoryStore.OpenRange(ctx, key, start, end)
	if err != nil {
		return nil, err
	}
	return s.wrapReader(rc), nil
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) { return 0, errInjected }

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Empty(t, names, "temp files left behind")
}
