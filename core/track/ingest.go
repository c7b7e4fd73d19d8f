package track

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"TrackFM/core/audio"
	"TrackFM/logger"
	"TrackFM/model"
	"TrackFM/repository"
	"TrackFM/storage"
)

const (
	contentTypeMP3  = "audio/mpeg"
	rollbackTimeout = 30 * time.Second
)

// TrackStore is the part of the record store ingestion needs.
type TrackStore interface {
	Create(ctx context.Context, track *model.Track) error
	NameExists(ctx context.Context, name string) (bool, error)
}

// IngestRequest is one upload. Size is the declared size, or -1 when unknown.
type IngestRequest struct {
	Name     string
	Filename string
	Size     int64
	Body     io.Reader
}

// IngestOptions 摄取流水线配置
type IngestOptions struct {
	Rules         Rules
	TempDir       string
	KeyPrefix     string
	MaxConcurrent int
	// QueueWait is how long an upload waits for a free slot before it is
	// rejected. Zero rejects immediately.
	QueueWait time.Duration
}

// Ingestor turns uploads into stored tracks.
type Ingestor struct {
	rules      Rules
	tempDir    string
	keyPrefix  string
	extractor  audio.Extractor
	normalizer audio.Normalizer
	objects    storage.ObjectStore
	tracks     TrackStore
	slots      chan struct{}
	queueWait  time.Duration
}

// NewIngestor 创建摄取流水线
func NewIngestor(opts IngestOptions, extractor audio.Extractor, normalizer audio.Normalizer,
	objects storage.ObjectStore, tracks TrackStore) *Ingestor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Ingestor{
		rules:      opts.Rules,
		tempDir:    opts.TempDir,
		keyPrefix:  opts.KeyPrefix,
		extractor:  extractor,
		normalizer: normalizer,
		objects:    objects,
		tracks:     tracks,
		slots:      make(chan struct{}, opts.MaxConcurrent),
		queueWait:  opts.QueueWait,
	}
}

// Ingest validates, normalizes and stores one upload. The first failing
// gate ends the request; temp files are removed on every path and nothing
// durable is written before the storage put.
func (in *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*model.Track, error) {
	if err := in.rules.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := in.rules.ValidateSize(req.Size); err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, clientError(ReasonMissingFile, "no file uploaded")
	}
	ext, err := in.rules.ValidateExtension(req.Filename)
	if err != nil {
		return nil, err
	}

	if err := in.acquire(ctx, req.Name); err != nil {
		return nil, err
	}
	defer func() { <-in.slots }()

	ws, err := newWorkspace(in.tempDir)
	if err != nil {
		return nil, serverFault(ReasonInternal, err, "failed to prepare upload")
	}
	defer ws.release()

	upload, err := in.spool(ws, req, ext)
	if err != nil {
		return nil, err
	}

	meta, err := in.extractor.Extract(ctx, upload.Path)
	if err != nil {
		if errors.Is(err, audio.ErrUnreadableMedia) {
			return nil, &Error{Kind: ClientInput, Reason: ReasonUnreadableMedia,
				Message: "file is not readable audio", Err: err}
		}
		return nil, serverFault(ReasonInternal, err, "failed to inspect upload")
	}
	if err := in.rules.ValidateMetadata(meta.FormatName, meta.Duration); err != nil {
		return nil, err
	}

	// Advisory only; the unique index decides at commit.
	taken, err := in.tracks.NameExists(ctx, upload.Name)
	if err != nil {
		return nil, serverFault(ReasonInternal, err, "failed to check track name")
	}
	if taken {
		return nil, nameTaken(upload.Name)
	}

	normalized, err := in.normalize(ctx, ws, upload, meta)
	if err != nil {
		return nil, err
	}

	return in.commit(ctx, upload.Name, normalized)
}

// acquire takes an ingest slot, waiting up to queueWait for one. A request
// that still finds no slot is told its name is taken when a concurrent
// upload has already committed it, and that the server is busy otherwise.
func (in *Ingestor) acquire(ctx context.Context, name string) error {
	select {
	case in.slots <- struct{}{}:
		return nil
	default:
	}

	if in.queueWait > 0 {
		timer := time.NewTimer(in.queueWait)
		defer timer.Stop()
		select {
		case in.slots <- struct{}{}:
			return nil
		case <-ctx.Done():
			return serverFault(ReasonInternal, ctx.Err(), "upload cancelled while waiting for a slot")
		case <-timer.C:
		}
	}

	if taken, err := in.tracks.NameExists(ctx, name); err == nil && taken {
		return nameTaken(name)
	}
	return serverFault(ReasonServerBusy, nil, "too many uploads in progress, try again later")
}

func nameTaken(name string) *Error {
	return clientError(ReasonNameTaken, "a track named %q already exists", name)
}

func (in *Ingestor) spool(ws *workspace, req IngestRequest, ext string) (model.UploadedAsset, error) {
	path, n, err := ws.spool(req.Body, in.rules.MaxUploadSize, ext)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return model.UploadedAsset{}, in.rules.tooLarge()
		}
		return model.UploadedAsset{}, &Error{Kind: ClientInput, Reason: ReasonMissingFile,
			Message: "upload could not be read", Err: err}
	}
	if n == 0 {
		return model.UploadedAsset{}, clientError(ReasonMissingFile, "uploaded file is empty")
	}
	return model.UploadedAsset{Path: path, Name: req.Name, Size: n, Extension: ext}, nil
}

func (in *Ingestor) normalize(ctx context.Context, ws *workspace, upload model.UploadedAsset, meta model.AudioMetadata) (model.NormalizedAsset, error) {
	dst := ws.file("normalized", ".mp3")
	if err := in.normalizer.Normalize(ctx, upload.Path, dst, meta.Duration); err != nil {
		return model.NormalizedAsset{}, serverFault(ReasonNormalizationFailed, err, "failed to normalize audio")
	}
	info, err := os.Stat(dst)
	if err != nil {
		return model.NormalizedAsset{}, serverFault(ReasonNormalizationFailed, err, "normalizer produced no output")
	}
	return model.NormalizedAsset{Path: dst, Duration: meta.Duration, Size: info.Size()}, nil
}

// commit puts the object, then creates the record. A failed record
// creation deletes the object again.
func (in *Ingestor) commit(ctx context.Context, name string, asset model.NormalizedAsset) (*model.Track, error) {
	f, err := os.Open(asset.Path)
	if err != nil {
		return nil, serverFault(ReasonStorageFailure, err, "failed to read normalized audio")
	}
	defer f.Close()

	key := storage.NewTrackKey(in.keyPrefix)
	if err := in.objects.Put(ctx, key, f, asset.Size, contentTypeMP3); err != nil {
		return nil, serverFault(ReasonStorageFailure, err, "failed to store track")
	}

	track := &model.Track{
		Name:       name,
		Duration:   asset.Duration,
		StorageKey: key,
		Size:       asset.Size,
	}
	if err := in.tracks.Create(ctx, track); err != nil {
		in.rollback(ctx, key)
		if errors.Is(err, repository.ErrNameTaken) {
			return nil, nameTaken(name)
		}
		return nil, serverFault(ReasonRecordCreationFailure, err, "failed to save track")
	}

	logger.Info("track ingested",
		logger.Int64("trackId", track.ID),
		logger.String("name", track.Name),
		logger.String("key", key),
		logger.Int64("size", track.Size),
		logger.Float64("duration", track.Duration))
	return track, nil
}

// rollback runs even when the request context is already cancelled.
func (in *Ingestor) rollback(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := in.objects.Delete(ctx, key); err != nil {
		logger.Error("failed to roll back stored object, orphan left behind",
			logger.String("key", key),
			logger.ErrorField(fmt.Errorf("rollback: %w", err)))
	}
}
