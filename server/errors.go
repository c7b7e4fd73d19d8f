package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"TrackFM/core/track"
	"TrackFM/logger"
	"TrackFM/model"
)

func statusFor(reason track.Reason) int {
	switch reason {
	case track.ReasonInvalidRequest,
		track.ReasonInvalidName,
		track.ReasonMissingFile,
		track.ReasonUnsupportedExtension,
		track.ReasonUnreadableMedia,
		track.ReasonUnsupportedFormat,
		track.ReasonDurationExceeded:
		return http.StatusBadRequest
	case track.ReasonFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case track.ReasonNameTaken:
		return http.StatusConflict
	case track.ReasonRangeNotSatisfiable:
		return http.StatusRequestedRangeNotSatisfiable
	case track.ReasonNotFound:
		return http.StatusNotFound
	case track.ReasonServerBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(msg, reason string) model.ErrorResponse {
	return model.ErrorResponse{Error: msg, Reason: reason}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

// writeError renders err as JSON. Server faults hide their cause from the
// client and are logged at error level; client errors at warn.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reason := track.ReasonOf(err)
	status := statusFor(reason)
	msg := "internal server error"
	var te *track.Error
	if errors.As(err, &te) {
		msg = te.Message
	}

	if track.KindOf(err) == track.ServerFault {
		logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("reason", string(reason)),
			logger.Int("status", status),
			logger.ErrorField(err))
	} else {
		logger.Warn("request rejected",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("reason", string(reason)),
			logger.Int("status", status),
			logger.String("detail", msg))
	}
	writeJSON(w, status, errorBody(msg, string(reason)))
}
