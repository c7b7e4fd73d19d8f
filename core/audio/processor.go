package audio

import (
	"context"
	"errors"

	"TrackFM/model"
)

var (
	// ErrUnreadableMedia marks input ffprobe cannot make sense of: corrupt,
	// truncated, no audio stream, or an unknown container.
	ErrUnreadableMedia = errors.New("unreadable media")
	// ErrNormalizationFailed marks a failed or timed out ffmpeg run.
	ErrNormalizationFailed = errors.New("normalization failed")
)

// Extractor reads container and stream metadata from a local file.
type Extractor interface {
	Extract(ctx context.Context, path string) (model.AudioMetadata, error)
}

// Normalizer re-encodes src into dst. knownDuration is the already validated
// duration in seconds and bounds how long the run may take.
type Normalizer interface {
	Normalize(ctx context.Context, src, dst string, knownDuration float64) error
}
