package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"TrackFM/cache"
	"TrackFM/core/audio"
	"TrackFM/core/track"
	"TrackFM/db"
	"TrackFM/logger"
	"TrackFM/repository"
	"TrackFM/server"
	"TrackFM/storage"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 TrackFM 服务器",
	Long:  `启动 HTTP 服务器，提供曲目上传、下载和按字节范围流式播放的 API。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

// runServer builds every dependency, serves until SIGINT/SIGTERM and tears
// everything down in reverse order.
func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	// Initialize database schema
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer objects.Close()

	trackCache, err := cache.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer trackCache.Close()

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp dir %s: %w", cfg.TempDir, err)
	}

	repo := repository.NewGormTrackRepository(gdb)
	rules := track.RulesFromConfig(cfg)
	extractor := audio.NewFFprobeExtractor(cfg.FFprobePath)
	normalizer := audio.NewFFmpegNormalizer(cfg.FFmpegPath, audio.NormalizeOptions{
		Bitrate:        cfg.AudioBitrate,
		LoudnessTarget: cfg.LoudnessTarget,
		BaseTimeout:    cfg.NormalizeBaseTimeout,
		TimeoutFactor:  cfg.NormalizeTimeoutFactor,
	})

	ingestor := track.NewIngestor(track.IngestOptions{
		Rules:         rules,
		TempDir:       cfg.TempDir,
		KeyPrefix:     cfg.StoragePrefix,
		MaxConcurrent: cfg.MaxConcurrentIngests,
		QueueWait:     cfg.IngestQueueWait,
	}, extractor, normalizer, objects, repo)

	handler := server.NewTrackHandler(
		ingestor,
		track.NewDeliverer(objects, trackCache),
		track.NewCatalog(repo, trackCache, rules),
		cfg.MaxUploadSize,
		cfg.VerifyConcurrency,
	)

	logger.Info("trackfm configured",
		logger.String("storage", cfg.StorageDriver),
		logger.Bool("cache", trackCache != nil),
		logger.Int64("maxUploadSize", cfg.MaxUploadSize),
		logger.Float64("maxTrackDuration", cfg.MaxTrackDuration))

	return server.New(cfg, server.NewRouter(cfg, handler)).Run(ctx)
}
