package track

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"TrackFM/logger"
	"TrackFM/model"
	"TrackFM/storage"
)

// StreamRange is a satisfiable byte range: 0 <= Start <= End < Total.
type StreamRange struct {
	Start int64
	End   int64 // inclusive
	Total int64
}

// Length 返回区间字节数
func (r StreamRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value.
func (r StreamRange) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Total)
}

func rangeError(format string, args ...any) *Error {
	return clientError(ReasonRangeNotSatisfiable, format, args...)
}

// ParseRange parses a single "bytes=<start>-[<end>]" range against an
// object of total bytes. A missing end means the last byte. Suffix ranges,
// multiple ranges and anything non-numeric are rejected.
func ParseRange(header string, total int64) (StreamRange, error) {
	rng, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return StreamRange{}, rangeError("Requested range not satisfiable: unsupported range unit")
	}
	if strings.Contains(rng, ",") {
		return StreamRange{}, rangeError("Requested range not satisfiable: multiple ranges are not supported")
	}
	startStr, endStr, ok := strings.Cut(rng, "-")
	if !ok {
		return StreamRange{}, rangeError("Requested range not satisfiable: malformed range %q", rng)
	}
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)

	start, ok := parseOffset(startStr)
	if !ok {
		return StreamRange{}, rangeError("Requested range not satisfiable: invalid range start %q", startStr)
	}
	end := total - 1
	if endStr != "" {
		if end, ok = parseOffset(endStr); !ok {
			return StreamRange{}, rangeError("Requested range not satisfiable: invalid range end %q", endStr)
		}
	}
	if start > end {
		return StreamRange{}, rangeError("Requested range not satisfiable: start %d is after end %d", start, end)
	}
	if start >= total || end >= total {
		return StreamRange{}, rangeError("Requested range not satisfiable: %d-%d is outside 0-%d", start, end, total-1)
	}
	return StreamRange{Start: start, End: end, Total: total}, nil
}

// parseOffset accepts plain decimal digits only.
func parseOffset(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// SizeCache remembers object sizes. Objects never change so entries never
// go stale.
type SizeCache interface {
	GetSize(ctx context.Context, key string) (int64, bool)
	SetSize(ctx context.Context, key string, size int64)
}

// StreamOutcome summarizes a delivery.
type StreamOutcome struct {
	Status    int
	Range     *StreamRange
	BytesSent int64
}

// Deliverer serves stored tracks over HTTP.
type Deliverer struct {
	objects storage.ObjectStore
	sizes   SizeCache
}

// NewDeliverer 创建流式分发器. sizes may be nil.
func NewDeliverer(objects storage.ObjectStore, sizes SizeCache) *Deliverer {
	return &Deliverer{objects: objects, sizes: sizes}
}

func (d *Deliverer) size(ctx context.Context, t *model.Track) (int64, error) {
	if d.sizes != nil {
		if size, ok := d.sizes.GetSize(ctx, t.StorageKey); ok {
			return size, nil
		}
	}
	size, err := d.objects.Size(ctx, t.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, &Error{Kind: ClientInput, Reason: ReasonNotFound,
				Message: fmt.Sprintf("file for track %d not found", t.ID), Err: err}
		}
		return 0, serverFault(ReasonStorageFailure, err, "failed to stat track %d", t.ID)
	}
	if d.sizes != nil {
		d.sizes.SetSize(ctx, t.StorageKey, size)
	}
	return size, nil
}

func statusOf(err error) int {
	if ReasonOf(err) == ReasonNotFound {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Stream serves t inline, honoring a Range header. On a range error the
// Content-Range header is set on w and nothing is written; the caller
// renders the error.
func (d *Deliverer) Stream(ctx context.Context, w http.ResponseWriter, t *model.Track, rangeHeader string) (StreamOutcome, error) {
	total, err := d.size(ctx, t)
	if err != nil {
		return StreamOutcome{Status: statusOf(err)}, err
	}

	if rangeHeader == "" {
		return d.send(ctx, w, t, nil, total, "inline")
	}

	r, err := ParseRange(rangeHeader, total)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", total))
		return StreamOutcome{Status: http.StatusRequestedRangeNotSatisfiable}, err
	}
	return d.send(ctx, w, t, &r, total, "inline")
}

// Download serves the whole object as an attachment.
func (d *Deliverer) Download(ctx context.Context, w http.ResponseWriter, t *model.Track) (StreamOutcome, error) {
	total, err := d.size(ctx, t)
	if err != nil {
		return StreamOutcome{Status: statusOf(err)}, err
	}
	return d.send(ctx, w, t, nil, total, "attachment")
}

func (d *Deliverer) send(ctx context.Context, w http.ResponseWriter, t *model.Track, r *StreamRange, total int64, disposition string) (StreamOutcome, error) {
	var (
		body io.ReadCloser
		err  error
	)
	lw := &lazyWriter{w: w, header: make(http.Header)}
	lw.header.Set("Content-Type", contentTypeMP3)
	lw.header.Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, t.FileName()))
	if disposition == "inline" {
		lw.header.Set("Accept-Ranges", "bytes")
	}

	expected := total
	if r != nil {
		expected = r.Length()
		lw.status = http.StatusPartialContent
		lw.header.Set("Content-Range", r.ContentRange())
		body, err = d.objects.OpenRange(ctx, t.StorageKey, r.Start, r.End)
	} else {
		lw.status = http.StatusOK
		body, err = d.objects.Open(ctx, t.StorageKey)
	}
	lw.header.Set("Content-Length", strconv.FormatInt(expected, 10))
	if err != nil {
		return StreamOutcome{Status: http.StatusInternalServerError},
			serverFault(ReasonStorageFailure, err, "failed to open track %d", t.ID)
	}
	defer body.Close()

	n, err := io.Copy(lw, io.LimitReader(body, expected))
	if err == nil && n < expected {
		err = io.ErrUnexpectedEOF
	}
	outcome := StreamOutcome{Status: lw.status, Range: r, BytesSent: lw.written}
	if err != nil {
		if !lw.committed {
			outcome.Status = http.StatusInternalServerError
			return outcome, serverFault(ReasonDeliveryFailed, err, "failed to read track %d", t.ID)
		}
		fault := &PartialDeliveryFault{
			TrackID:   t.ID,
			Key:       t.StorageKey,
			BytesSent: lw.written,
			Expected:  expected,
			Err:       err,
		}
		logger.Error("partial delivery fault",
			logger.Int64("trackId", t.ID),
			logger.String("key", t.StorageKey),
			logger.Int64("bytesSent", lw.written),
			logger.Int64("expected", expected),
			logger.ErrorField(err))
		return outcome, fault
	}
	// Empty bodies never call Write.
	lw.commit()
	return outcome, nil
}

// lazyWriter holds back the status line and headers until the first body
// byte, so a failure before that can still become an error response.
type lazyWriter struct {
	w         http.ResponseWriter
	header    http.Header
	status    int
	committed bool
	written   int64
}

func (l *lazyWriter) commit() {
	if l.committed {
		return
	}
	l.committed = true
	dst := l.w.Header()
	for k, v := range l.header {
		dst[k] = v
	}
	l.w.WriteHeader(l.status)
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	l.commit()
	n, err := l.w.Write(p)
	l.written += int64(n)
	return n, err
}
