package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"TrackFM/model"
)

// FFprobeExtractor implements Extractor with ffprobe.
type FFprobeExtractor struct {
	ffprobePath string
}

// NewFFprobeExtractor creates a new FFprobeExtractor.
func NewFFprobeExtractor(ffprobePath string) *FFprobeExtractor {
	return &FFprobeExtractor{ffprobePath: ffprobePath}
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecName string `json:"codec_name"`
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=format_name,duration:stream=codec_name,codec_type",
		"-of", "json",
		path,
	}
}

// Extract 获取音频文件的格式和时长. The container is inspected directly; the
// file extension plays no part.
func (p *FFprobeExtractor) Extract(ctx context.Context, path string) (model.AudioMetadata, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath, probeArgs(path)...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return model.AudioMetadata{}, fmt.Errorf("ffprobe interrupted for %s: %w", path, ctx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// ffprobe itself could not be started.
			return model.AudioMetadata{}, fmt.Errorf("ffprobe execution failed: %w", err)
		}
		return model.AudioMetadata{}, fmt.Errorf("%w: ffprobe rejected %s: %s",
			ErrUnreadableMedia, path, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(out.Bytes())
}

func parseProbeOutput(data []byte) (model.AudioMetadata, error) {
	var probeData ffprobeOutput
	if err := json.Unmarshal(data, &probeData); err != nil {
		return model.AudioMetadata{}, fmt.Errorf("%w: failed to unmarshal ffprobe output: %v", ErrUnreadableMedia, err)
	}

	if probeData.Format.FormatName == "" {
		return model.AudioMetadata{}, fmt.Errorf("%w: no container format detected", ErrUnreadableMedia)
	}

	codec := ""
	for _, s := range probeData.Streams {
		if s.CodecType == "audio" {
			codec = s.CodecName
			break
		}
	}
	if codec == "" {
		return model.AudioMetadata{}, fmt.Errorf("%w: no audio streams found in file", ErrUnreadableMedia)
	}

	if probeData.Format.Duration == "" || probeData.Format.Duration == "N/A" {
		return model.AudioMetadata{}, fmt.Errorf("%w: duration not found in ffprobe output", ErrUnreadableMedia)
	}
	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil || duration < 0 {
		return model.AudioMetadata{}, fmt.Errorf("%w: bad duration %q", ErrUnreadableMedia, probeData.Format.Duration)
	}

	return model.AudioMetadata{
		FormatName: probeData.Format.FormatName,
		CodecName:  codec,
		Duration:   duration,
	}, nil
}
