package server

import (
	"errors"
	"net/http"

	"TrackFM/core/track"
	"TrackFM/model"
)

// StreamTrackHandler handles GET /tracks/{id}/stream, honoring Range.
func (h *TrackHandler) StreamTrackHandler(w http.ResponseWriter, r *http.Request) {
	tr, ok := h.lookup(w, r)
	if !ok {
		return
	}
	_, err := h.deliverer.Stream(r.Context(), w, tr, r.Header.Get("Range"))
	h.finishDelivery(w, r, err)
}

// DownloadTrackHandler handles GET /tracks/{id}/download.
func (h *TrackHandler) DownloadTrackHandler(w http.ResponseWriter, r *http.Request) {
	tr, ok := h.lookup(w, r)
	if !ok {
		return
	}
	_, err := h.deliverer.Download(r.Context(), w, tr)
	h.finishDelivery(w, r, err)
}

func (h *TrackHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Track, bool) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	tr, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return tr, true
}

// finishDelivery renders errors that happened before the first body byte.
// Once the body has started the status line is gone, so the connection is
// aborted instead; the deliverer has already logged the fault.
func (h *TrackHandler) finishDelivery(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	var fault *track.PartialDeliveryFault
	if errors.As(err, &fault) {
		panic(http.ErrAbortHandler)
	}
	writeError(w, r, err)
}
