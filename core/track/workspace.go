package track

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"TrackFM/logger"

	"github.com/google/uuid"
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

// workspace is a per-request temp directory. Everything an ingestion writes
// lives inside it and goes away with release.
type workspace struct {
	dir string
}

func newWorkspace(root string) (*workspace, error) {
	dir := filepath.Join(root, "ingest-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) file(prefix, ext string) string {
	return filepath.Join(w.dir, prefix+"-"+uuid.NewString()+ext)
}

// spool copies r into a new file, failing with errUploadTooLarge once more
// than limit bytes have been read.
func (w *workspace) spool(r io.Reader, limit int64, ext string) (string, int64, error) {
	path := w.file("upload", ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if err != nil {
		return "", n, fmt.Errorf("failed to read upload: %w", err)
	}
	if n > limit {
		return "", n, errUploadTooLarge
	}
	if err := f.Sync(); err != nil {
		return "", n, fmt.Errorf("failed to flush upload: %w", err)
	}
	return path, n, nil
}

// release removes the workspace. Failures are logged only.
func (w *workspace) release() {
	if err := os.RemoveAll(w.dir); err != nil {
		logger.Warn("failed to clean up workspace",
			logger.String("dir", w.dir),
			logger.ErrorField(err))
	}
}
