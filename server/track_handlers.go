package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"TrackFM/core/track"
	"TrackFM/logger"
	"TrackFM/model"

	"github.com/gorilla/mux"
)

const (
	// multipartOverhead allows for boundaries and the name field on top of
	// the file itself.
	multipartOverhead = 64 << 10
	multipartMemory   = 32 << 20
)

// TrackHandler serves the /tracks API.
type TrackHandler struct {
	ingestor          *track.Ingestor
	deliverer         *track.Deliverer
	catalog           *track.Catalog
	maxUploadSize     int64
	verifyConcurrency int
}

// NewTrackHandler 创建曲目处理器
func NewTrackHandler(ingestor *track.Ingestor, deliverer *track.Deliverer, catalog *track.Catalog,
	maxUploadSize int64, verifyConcurrency int) *TrackHandler {
	return &TrackHandler{
		ingestor:          ingestor,
		deliverer:         deliverer,
		catalog:           catalog,
		maxUploadSize:     maxUploadSize,
		verifyConcurrency: verifyConcurrency,
	}
}

// RegisterRoutes 注册曲目相关路由
func (h *TrackHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tracks", h.UploadTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/tracks", h.ListTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/tracks/verify", h.VerifyTracksHandler).Methods(http.MethodPost)
	router.HandleFunc("/tracks/{id:[0-9]+}", h.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/tracks/{id:[0-9]+}", h.RenameTrackHandler).Methods(http.MethodPatch)
	router.HandleFunc("/tracks/{id:[0-9]+}", h.DeleteTrackHandler).Methods(http.MethodDelete)
	router.HandleFunc("/tracks/{id:[0-9]+}/download", h.DownloadTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/tracks/{id:[0-9]+}/stream", h.StreamTrackHandler).Methods(http.MethodGet)
}

func trackID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, track.NotFound("track %s not found", raw)
	}
	return id, nil
}

func invalidRequest(msg string, err error) error {
	return track.NewError(track.ClientInput, track.ReasonInvalidRequest, msg, err)
}

// UploadTrackHandler handles POST /tracks with multipart fields "file" and "name".
func (h *TrackHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	limit := h.maxUploadSize + multipartOverhead
	if r.ContentLength > limit {
		writeError(w, r, track.NewError(track.ClientInput, track.ReasonFileTooLarge,
			"file exceeds the maximum size of "+strconv.FormatInt(h.maxUploadSize, 10)+" bytes", nil))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	// 解析表单
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, track.NewError(track.ClientInput, track.ReasonFileTooLarge,
				"file exceeds the maximum size of "+strconv.FormatInt(h.maxUploadSize, 10)+" bytes", err))
			return
		}
		writeError(w, r, invalidRequest("expected a multipart form with fields file and name", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := track.IngestRequest{Name: r.FormValue("name"), Size: -1}
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.Filename = header.Filename
		req.Size = header.Size
		req.Body = file
	}

	tr, err := h.ingestor.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

// ListTracksHandler handles GET /tracks, or a lookup with ?name=.
func (h *TrackHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		tr, err := h.catalog.FindByName(r.Context(), name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tr)
		return
	}

	tracks, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// GetTrackHandler handles GET /tracks/{id}.
func (h *TrackHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tr, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// RenameTrackHandler handles PATCH /tracks/{id}.
func (h *TrackHandler) RenameTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body model.RenameTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, invalidRequest("request body must be JSON with a name field", err))
		return
	}
	tr, err := h.catalog.Rename(r.Context(), id, body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("track renamed", logger.Int64("trackId", id), logger.String("name", tr.Name))
	writeJSON(w, http.StatusOK, tr)
}

// DeleteTrackHandler 软删除曲目
func (h *TrackHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("track deleted", logger.Int64("trackId", id))
	w.WriteHeader(http.StatusNoContent)
}

// VerifyTracksHandler handles POST /tracks/verify and reports the ids that
// do not belong to a live track.
func (h *TrackHandler) VerifyTracksHandler(w http.ResponseWriter, r *http.Request) {
	var body model.VerifyTracksRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, invalidRequest("request body must be JSON with a track_ids array", err))
		return
	}
	missing, err := track.MissingIDs(r.Context(), h.catalog, body.TrackIDs, h.verifyConcurrency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.VerifyTracksResponse{InvalidTrackIDs: missing})
}
