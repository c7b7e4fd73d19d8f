package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	payload := []byte("0123456789")

	require.NoError(t, s.Put(ctx, "tracks/a.mp3", bytes.NewReader(payload), int64(len(payload)), "audio/mpeg"))

	size, err := s.Size(ctx, "tracks/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	rc, err := s.Open(ctx, "tracks/a.mp3")
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	assert.Equal(t, payload, got)

	rc, err = s.OpenRange(ctx, "tracks/a.mp3", 2, 5)
	require.NoError(t, err)
	got, _ = io.ReadAll(rc)
	assert.Equal(t, []byte("2345"), got)
}

func TestMemoryStoreObjectsAreImmutable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "k", strings.NewReader("a"), 1, ""))

	err := s.Put(ctx, "k", strings.NewReader("b"), 1, "")
	assert.ErrorIs(t, err, ErrStorage)
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, err, ErrStorage)

	require.NoError(t, s.Put(ctx, "k", strings.NewReader("abc"), 3, ""))
	_, err = s.OpenRange(ctx, "k", 2, 1)
	assert.ErrorIs(t, err, ErrStorage)
	_, err = s.OpenRange(ctx, "k", 0, 3)
	assert.ErrorIs(t, err, ErrStorage)

	err = s.Put(ctx, "short", strings.NewReader("ab"), 5, "")
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 1, s.Len())
}

func TestNewTrackKeyIsFreshAndPrefixed(t *testing.T) {
	a := NewTrackKey("tracks/")
	b := NewTrackKey("tracks")
	assert.True(t, strings.HasPrefix(a, "tracks/"))
	assert.True(t, strings.HasSuffix(a, ".mp3"))
	assert.NotEqual(t, a, b)
}

func TestSummarizeAndDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "tracks/a.mp3", strings.NewReader("aaaa"), 4, ""))
	require.NoError(t, s.Put(ctx, "tracks/b.mp3", strings.NewReader("bb"), 2, "audio/mpeg"))
	require.NoError(t, s.Put(ctx, "other/c.txt", strings.NewReader("c"), 1, ""))

	objects, err := s.List(ctx, "tracks/")
	require.NoError(t, err)
	stats := Summarize(objects)
	assert.Equal(t, int64(2), stats.TotalObjects)
	assert.Equal(t, int64(6), stats.TotalSize)
	assert.Equal(t, int64(6), stats.ByType["audio/mpeg"])
	assert.WithinDuration(t, time.Now(), stats.LastModified, time.Minute)

	n, err := DeletePrefix(ctx, s, "tracks/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.Len())

	_, err = DeletePrefix(ctx, s, " ")
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.9 MB", FormatSize(3000000))
}

type recordingWriter struct {
	buf    bytes.Buffer
	events []string
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.events = append(w.events, "write")
	return w.buf.Write(p)
}

func (w *recordingWriter) Close() error {
	w.events = append(w.events, "close")
	return nil
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestWriteObjectAbortsBeforeCloseOnReadError(t *testing.T) {
	w := &recordingWriter{}
	abort := func() { w.events = append(w.events, "abort") }

	err := writeObject(w, abort, io.MultiReader(strings.NewReader("partial"), brokenReader{}))

	require.Error(t, err)
	assert.Equal(t, []string{"write", "abort", "close"}, w.events)
}

func TestWriteObjectCommitsOnSuccess(t *testing.T) {
	w := &recordingWriter{}
	abort := func() { w.events = append(w.events, "abort") }

	require.NoError(t, writeObject(w, abort, strings.NewReader("whole")))

	assert.Equal(t, []string{"write", "close"}, w.events)
	assert.Equal(t, "whole", w.buf.String())
}
