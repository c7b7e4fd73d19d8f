package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"TrackFM/logger"
)

// NormalizeOptions ffmpeg 编码参数
type NormalizeOptions struct {
	Bitrate        string  // e.g. "128k"
	LoudnessTarget float64 // integrated loudness, LUFS
	BaseTimeout    time.Duration
	TimeoutFactor  float64 // processing seconds allowed per second of audio
}

// FFmpegNormalizer implements Normalizer using ffmpeg's loudnorm filter.
type FFmpegNormalizer struct {
	ffmpegPath string
	opts       NormalizeOptions
}

// NewFFmpegNormalizer creates a new FFmpegNormalizer.
func NewFFmpegNormalizer(ffmpegPath string, opts NormalizeOptions) *FFmpegNormalizer {
	if opts.Bitrate == "" {
		opts.Bitrate = "128k"
	}
	return &FFmpegNormalizer{ffmpegPath: ffmpegPath, opts: opts}
}

func (n *FFmpegNormalizer) args(src, dst string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-v", "error",
		"-i", src,
		"-vn", // 丢弃封面等视频流
		"-af", fmt.Sprintf("loudnorm=I=%g:TP=-1.5:LRA=11", n.opts.LoudnessTarget),
		"-c:a", "libmp3lame", // 使用 LAME 编码器
		"-b:a", n.opts.Bitrate,
		"-ar", "44100", // 设置采样率
		"-ac", "2", // 双声道
		"-map_metadata", "-1", // 移除元数据
		"-f", "mp3",
		dst,
	}
}

// timeout 根据已知时长计算处理超时
func (n *FFmpegNormalizer) timeout(knownDuration float64) time.Duration {
	if knownDuration < 0 {
		knownDuration = 0
	}
	return n.opts.BaseTimeout + time.Duration(knownDuration*n.opts.TimeoutFactor*float64(time.Second))
}

// Normalize 规范化响度并重新编码为 MP3
func (n *FFmpegNormalizer) Normalize(ctx context.Context, src, dst string, knownDuration float64) error {
	limit := n.timeout(knownDuration)
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	args := n.args(src, dst)
	cmd := exec.CommandContext(ctx, n.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("executing ffmpeg",
		logger.String("cmd", n.ffmpegPath+" "+strings.Join(args, " ")),
		logger.Duration("timeout", limit))

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: ffmpeg exceeded %s for %s", ErrNormalizationFailed, limit, src)
		}
		return fmt.Errorf("%w: ffmpeg execution failed for %s: %v: %s",
			ErrNormalizationFailed, src, err, strings.TrimSpace(stderr.String()))
	}

	logger.Debug("normalized audio",
		logger.String("src", src),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}
